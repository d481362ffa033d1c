// Command salesReport serves GET /reports/sales and DELETE /sales behind API Gateway
package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"gitlab.connectwisedev.com/paint-service/pkg/app"
)

var application *app.App

func init() {
	var err error
	application, err = app.New()
	if err != nil {
		log.Fatalf("Failed to initialize salesReport: %v", err)
	}
}

func main() {
	defer application.Close()
	lambda.Start(application.Handler.Sales)
}
