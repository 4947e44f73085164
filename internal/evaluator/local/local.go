// Package local is an in-process protection evaluator. It is the development
// and test stand-in for the external evaluator service: it honors rule order
// (first deny, else first error, else allow) and DRY_RUN semantics, but its
// heuristics are intentionally simple.
package local

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dhawalhost/gatewarden/internal/decision"
	"github.com/dhawalhost/gatewarden/internal/evaluator"
	"github.com/dhawalhost/gatewarden/internal/policy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MXResolver looks up MX records for email-domain validation.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// IPInfoFunc resolves IP analysis (country, VPN) for a client address.
type IPInfoFunc func(ip string) decision.IPInfo

// Evaluator implements evaluator.Client in process.
type Evaluator struct {
	counters CounterStore
	resolver MXResolver
	ipInfo   IPInfoFunc
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCounterStore overrides the window counter store (e.g. Redis).
func WithCounterStore(cs CounterStore) Option {
	return func(e *Evaluator) { e.counters = cs }
}

// WithResolver overrides the MX resolver.
func WithResolver(r MXResolver) Option {
	return func(e *Evaluator) { e.resolver = r }
}

// WithIPInfo installs an IP analysis lookup.
func WithIPInfo(fn IPInfoFunc) Option {
	return func(e *Evaluator) { e.ipInfo = fn }
}

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(e *Evaluator) { e.now = fn }
}

// New creates a local evaluator with an in-memory counter store and the
// default DNS resolver.
func New(logger *zap.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		resolver: net.DefaultResolver,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.counters == nil {
		e.counters = NewMemoryStore()
	}
	return e
}

type ruleResult struct {
	flagged   bool
	shield    bool
	bot       bool
	rateLimit *decision.RateLimitReason
	email     *decision.EmailReason
	sensitive bool
}

// Evaluate walks the policy's rules in order. The first LIVE rule that flags
// the request denies it; DRY_RUN matches are logged and skipped. Rule errors
// are recorded and only surface when nothing denied. IP analysis is attached
// to every decision, allows included.
func (e *Evaluator) Evaluate(ctx context.Context, req evaluator.Request, fingerprint string, pol policy.Policy) decision.Decision {
	d := decision.Decision{
		ID:         uuid.NewString(),
		Conclusion: decision.Allow,
	}
	if e.ipInfo != nil {
		d.IP = e.ipInfo(req.IP)
	}

	var firstErr error

	for _, rule := range pol.Rules {
		res, err := e.applyRule(ctx, rule, req, fingerprint)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		// Counter state is reported even when the limit was not hit, so
		// allowed responses can include the remaining allowance.
		if res.rateLimit != nil && d.Reason.RateLimit == nil {
			d.Reason.RateLimit = res.rateLimit
		}

		if !res.flagged {
			continue
		}

		if rule.Mode == policy.ModeDryRun {
			e.logger.Info("dry run rule matched",
				zap.String("kind", string(rule.Kind)),
				zap.String("fingerprint", fingerprint),
			)
			continue
		}

		d.Conclusion = decision.Deny
		d.Reason.Shield = res.shield
		d.Reason.Bot = res.bot
		d.Reason.SensitiveInfo = res.sensitive
		if res.rateLimit != nil {
			d.Reason.RateLimit = res.rateLimit
		}
		if res.email != nil {
			d.Reason.Email = res.email
		}
		break
	}

	if d.Conclusion != decision.Deny && firstErr != nil {
		d.Conclusion = decision.Error
		d.Reason.Message = firstErr.Error()
	}

	return d
}

func (e *Evaluator) applyRule(ctx context.Context, rule policy.Rule, req evaluator.Request, fingerprint string) (ruleResult, error) {
	switch rule.Kind {
	case policy.KindShield:
		flagged := suspicious(req)
		return ruleResult{flagged: flagged, shield: flagged}, nil

	case policy.KindBot:
		flagged := isBot(req, rule.Allow)
		return ruleResult{flagged: flagged, bot: flagged}, nil

	case policy.KindRateLimit:
		return e.applyRateLimit(ctx, rule, fingerprint)

	case policy.KindEmail:
		detected, err := e.classifyEmail(ctx, req.Email)
		if err != nil {
			return ruleResult{}, err
		}
		if blocked(detected, rule.Block) {
			return ruleResult{flagged: true, email: &decision.EmailReason{Types: detected}}, nil
		}
		return ruleResult{}, nil

	case policy.KindSensitiveInfo:
		flagged := containsSensitive(req.Body, rule.Deny)
		return ruleResult{flagged: flagged, sensitive: flagged}, nil

	default:
		return ruleResult{}, fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
}

func (e *Evaluator) applyRateLimit(ctx context.Context, rule policy.Rule, fingerprint string) (ruleResult, error) {
	w := rule.Window
	if w == nil || w.Max <= 0 || w.Period <= 0 {
		return ruleResult{}, fmt.Errorf("rate limit rule missing window parameters")
	}

	key := fmt.Sprintf("%s:%s:%d", fingerprint, w.Kind, int(w.Period.Seconds()))
	count, err := e.counters.Incr(ctx, key, *w, e.now())
	if err != nil {
		return ruleResult{}, fmt.Errorf("window counter: %w", err)
	}

	remaining := w.Max - count.Used
	if remaining < 0 {
		remaining = 0
	}
	reset := count.Reset
	flagged := count.Used > w.Max

	return ruleResult{
		flagged: flagged,
		rateLimit: &decision.RateLimitReason{
			Max:       w.Max,
			Remaining: remaining,
			Reset:     &reset,
			Triggered: flagged,
		},
	}, nil
}

func blocked(detected []decision.EmailType, block []string) bool {
	for _, d := range detected {
		for _, b := range block {
			if string(d) == b {
				return true
			}
		}
	}
	return false
}
