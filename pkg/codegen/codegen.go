// Package codegen mints the human-readable MMDDYYNNN identifiers used for
// inventory batches and sale references.
//
// A code is a six digit date prefix (month, day, two digit year) followed by a
// three digit increment that restarts at 001 every calendar day. Batch codes
// and sale references are counted independently
package codegen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Namespace selects an independent counting scope
type Namespace string

const (
	NamespaceBatch Namespace = "batch"
	NamespaceSale  Namespace = "sale"
)

const (
	prefixLen = 6
	codeLen   = 9

	// DefaultGuardAttempts bounds the increment loop in Guard
	DefaultGuardAttempts = 10
)

// Lookup reads the codes already stored for a namespace
type Lookup interface {
	CodesWithPrefix(ctx context.Context, ns Namespace, prefix string) ([]string, error)
	Exists(ctx context.Context, ns Namespace, code string) (bool, error)
}

// Prefix returns the MMDDYY prefix for date
func Prefix(date time.Time) string {
	return fmt.Sprintf("%02d%02d%02d", int(date.Month()), date.Day(), date.Year()%100)
}

// Next returns the code following the highest valid increment among existing.
// Codes of the wrong length, with another prefix or a non-numeric suffix are
// ignored
func Next(date time.Time, existing []string) string {
	prefix := Prefix(date)
	highest := 0
	for _, code := range existing {
		n, ok := increment(prefix, code)
		if ok && n > highest {
			highest = n
		}
	}
	return format(prefix, highest+1)
}

// Fallback builds the degraded code used when the store cannot be read.
// It is not guaranteed unique
func Fallback(prefix string, now time.Time) string {
	return format(prefix, int(now.UnixMilli()%1000))
}

// increment reads the 3-digit suffix. Signed suffixes such as "+99" or "-01"
// are malformed, not numbers
func increment(prefix, code string) (int, bool) {
	if len(code) != codeLen || !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	n := 0
	for _, r := range code[prefixLen:] {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

func format(prefix string, n int) string {
	return prefix + fmt.Sprintf("%03d", n)
}

// Generator mints codes against a Lookup. It holds no state between calls
// and is safe for concurrent use
type Generator struct {
	lookup   Lookup
	logger   *zap.Logger
	now      func() time.Time
	attempts int
}

// Option configures a Generator
type Option func(*Generator)

// WithClock overrides time.Now, for "today" and the fallback suffix
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithGuardAttempts overrides DefaultGuardAttempts
func WithGuardAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.attempts = n
		}
	}
}

// NewGenerator returns a Generator. A nil lookup behaves as an unreachable
// store and always yields fallback codes
func NewGenerator(lookup Lookup, logger *zap.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{lookup: lookup, logger: logger, now: time.Now, attempts: DefaultGuardAttempts}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mint returns the next code for date in ns. A zero date means today.
// Lookup failures degrade to Fallback and are logged, never returned
func (g *Generator) Mint(ctx context.Context, ns Namespace, date time.Time) string {
	if date.IsZero() {
		date = g.now()
	}
	prefix := Prefix(date)
	if g.lookup == nil {
		g.logger.Warn("code lookup unavailable, using fallback", zap.String("namespace", string(ns)))
		return Fallback(prefix, g.now())
	}

	codes, err := g.lookup.CodesWithPrefix(ctx, ns, prefix)
	if err != nil {
		g.logger.Warn("code lookup failed, using fallback",
			zap.String("namespace", string(ns)), zap.String("prefix", prefix), zap.Error(err))
		return Fallback(prefix, g.now())
	}
	return Next(date, codes)
}

// Guard re-checks a freshly minted code and walks its suffix forward while it
// is taken. If the suffix cannot be parsed, or every attempt collides, the
// timestamp fallback is returned. A failed existence check counts as free
func (g *Generator) Guard(ctx context.Context, ns Namespace, code string) string {
	if g.lookup == nil || !g.exists(ctx, ns, code) {
		return code
	}
	g.logger.Warn("minted code already exists", zap.String("namespace", string(ns)), zap.String("code", code))

	for attempt := 0; attempt < g.attempts; attempt++ {
		if len(code) < prefixLen {
			return Fallback(Prefix(g.now()), g.now())
		}
		prefix := code[:prefixLen]
		n, ok := increment(prefix, code)
		if !ok {
			return Fallback(prefix, g.now())
		}
		code = format(prefix, n+1)
		if !g.exists(ctx, ns, code) {
			return code
		}
	}
	return Fallback(code[:prefixLen], g.now())
}

// MintBatchCode mints a batch code and runs it through Guard
func (g *Generator) MintBatchCode(ctx context.Context, date time.Time) string {
	return g.Guard(ctx, NamespaceBatch, g.Mint(ctx, NamespaceBatch, date))
}

// MintSaleReference mints a sale reference. Sale references are not guarded;
// the sales table constraint is the backstop
func (g *Generator) MintSaleReference(ctx context.Context, date time.Time) string {
	return g.Mint(ctx, NamespaceSale, date)
}

func (g *Generator) exists(ctx context.Context, ns Namespace, code string) bool {
	ok, err := g.lookup.Exists(ctx, ns, code)
	if err != nil {
		g.logger.Warn("code existence check failed", zap.String("code", code), zap.Error(err))
		return false
	}
	return ok
}
