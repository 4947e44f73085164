// Package guard runs the access-control decision pipeline for one request:
// fingerprint resolution, policy selection, evaluator call, decision audit,
// interpretation, and mapping to an HTTP response.
package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dhawalhost/gatewarden/internal/actor"
	"github.com/dhawalhost/gatewarden/internal/audit"
	"github.com/dhawalhost/gatewarden/internal/decision"
	"github.com/dhawalhost/gatewarden/internal/evaluator"
	"github.com/dhawalhost/gatewarden/internal/policy"
	"github.com/dhawalhost/gatewarden/pkg/observability"
	"go.uber.org/zap"
)

// Guard orchestrates the decision pipeline. It holds no per-request state;
// one Guard serves all requests concurrently.
type Guard struct {
	evaluator evaluator.Client
	logger    *zap.Logger
	sink      audit.Sink
	metrics   *observability.Metrics
}

// Option configures a Guard.
type Option func(*Guard)

// WithAuditSink installs a persistent audit sink in addition to the
// structured decision log.
func WithAuditSink(s audit.Sink) Option {
	return func(g *Guard) { g.sink = s }
}

// WithMetrics installs Prometheus decision metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// New creates a Guard around an evaluator client.
func New(eval evaluator.Client, logger *zap.Logger, opts ...Option) *Guard {
	g := &Guard{evaluator: eval, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckInput carries the per-request inputs of the pipeline. Email and Body
// are optional context for email-validation and sensitive-info rules.
type CheckInput struct {
	Template policy.Template
	Actor    actor.Actor
	Email    string
	Body     string
}

// Check runs the pipeline. The evaluator call is the only suspension point;
// everything else is a pure transformation of its inputs. The full decision
// is logged before interpretation, on every conclusion including Allow.
func (g *Guard) Check(ctx context.Context, r *http.Request, in CheckInput) decision.Outcome {
	fingerprint := in.Actor.Fingerprint()
	pol := in.Template.Select(in.Actor)

	req := evaluator.FromHTTP(r, in.Actor.IP)
	req.Email = in.Email
	req.Body = in.Body

	start := time.Now()
	d := g.evaluator.Evaluate(ctx, req, fingerprint, pol)
	if g.metrics != nil {
		g.metrics.EvaluatorDuration.Observe(time.Since(start).Seconds())
	}

	g.logDecision(req, fingerprint, d)

	out := decision.Interpret(d)

	if g.metrics != nil {
		g.metrics.DecisionsTotal.WithLabelValues(string(d.Conclusion), string(out.Kind)).Inc()
	}
	if g.sink != nil {
		g.record(ctx, req, fingerprint, d, out)
	}

	return out
}

func (g *Guard) logDecision(req evaluator.Request, fingerprint string, d decision.Decision) {
	fields := []zap.Field{
		zap.String("decision_id", d.ID),
		zap.String("conclusion", string(d.Conclusion)),
		zap.String("fingerprint", fingerprint),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Bool("shield", d.Reason.Shield),
		zap.Bool("bot", d.Reason.Bot),
		zap.Bool("sensitive_info", d.Reason.SensitiveInfo),
	}
	if rl := d.Reason.RateLimit; rl != nil {
		fields = append(fields,
			zap.Int("rate_limit_max", rl.Max),
			zap.Int("rate_limit_remaining", rl.Remaining),
		)
		if rl.Reset != nil {
			fields = append(fields, zap.Time("rate_limit_reset", *rl.Reset))
		}
	}
	if em := d.Reason.Email; em != nil {
		types := make([]string, len(em.Types))
		for i, t := range em.Types {
			types[i] = string(t)
		}
		fields = append(fields, zap.Strings("email_types", types))
	}
	if d.IP.HasCountry() {
		fields = append(fields, zap.String("ip_country", d.IP.Country))
	}
	if d.IP.IsVPN() {
		fields = append(fields, zap.Bool("ip_vpn", true))
	}

	if d.IsErrored() {
		// Full error detail goes to the log; the response body gets a
		// redacted message.
		fields = append(fields, zap.String("error", d.Reason.Message))
		g.logger.Error("protection decision", fields...)
		return
	}
	g.logger.Info("protection decision", fields...)
}

func (g *Guard) record(ctx context.Context, req evaluator.Request, fingerprint string, d decision.Decision, out decision.Outcome) {
	detail, err := json.Marshal(d)
	if err != nil {
		g.logger.Warn("encode audit detail", zap.Error(err))
		detail = nil
	}
	e := audit.Event{
		DecisionID:  d.ID,
		Fingerprint: fingerprint,
		Method:      req.Method,
		Path:        req.Path,
		Conclusion:  string(d.Conclusion),
		Outcome:     string(out.Kind),
		Detail:      detail,
	}
	if err := g.sink.Record(ctx, e); err != nil {
		g.logger.Warn("record audit event", zap.Error(err), zap.String("decision_id", d.ID))
	}
}
