package local

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/dhawalhost/gatewarden/internal/decision"
	"github.com/dhawalhost/gatewarden/internal/evaluator"
	"github.com/dhawalhost/gatewarden/internal/policy"
	"go.uber.org/zap"
)

type fakeResolver struct {
	mx map[string][]*net.MX
}

func (f fakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if records, ok := f.mx[name]; ok {
		return records, nil
	}
	return nil, fmt.Errorf("no such host %q", name)
}

func browserRequest() evaluator.Request {
	return evaluator.Request{
		Method:  "GET",
		Path:    "/",
		IP:      "203.0.113.9",
		Headers: http.Header{"User-Agent": []string{"Mozilla/5.0 (X11; Linux x86_64)"}},
	}
}

func TestShieldDeniesSuspiciousRequest(t *testing.T) {
	e := New(zap.NewNop())
	req := browserRequest()
	req.Headers.Set("X-Gatewarden-Suspicious", "true")

	d := e.Evaluate(context.Background(), req, "fp", policy.Policy{Rules: []policy.Rule{policy.Shield(policy.ModeLive)}})
	if !d.IsDenied() || !d.Reason.Shield {
		t.Fatalf("decision = %+v, want shield denial", d)
	}
}

func TestDryRunObservesWithoutDenying(t *testing.T) {
	e := New(zap.NewNop())
	req := browserRequest()
	req.Headers.Set("X-Gatewarden-Suspicious", "true")

	d := e.Evaluate(context.Background(), req, "fp", policy.Policy{Rules: []policy.Rule{policy.Shield(policy.ModeDryRun)}})
	if !d.IsAllowed() {
		t.Fatalf("DRY_RUN rule denied the request: %+v", d)
	}
}

func TestBotDetection(t *testing.T) {
	e := New(zap.NewNop())
	pol := policy.Policy{Rules: []policy.Rule{policy.DetectBot(policy.ModeLive)}}

	req := browserRequest()
	req.Headers.Set("User-Agent", "curl/8.5.0")
	if d := e.Evaluate(context.Background(), req, "fp", pol); !d.IsDenied() || !d.Reason.Bot {
		t.Errorf("curl should be denied as a bot: %+v", d)
	}

	if d := e.Evaluate(context.Background(), browserRequest(), "fp", pol); !d.IsAllowed() {
		t.Errorf("browser UA should pass: %+v", d)
	}

	missing := browserRequest()
	missing.Headers.Del("User-Agent")
	if d := e.Evaluate(context.Background(), missing, "fp", pol); !d.IsDenied() {
		t.Errorf("missing UA should be denied: %+v", d)
	}
}

func TestBotAllowList(t *testing.T) {
	e := New(zap.NewNop())
	pol := policy.Policy{Rules: []policy.Rule{policy.DetectBot(policy.ModeLive, "googlebot")}}

	req := browserRequest()
	req.Headers.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1)")
	if d := e.Evaluate(context.Background(), req, "fp", pol); !d.IsAllowed() {
		t.Fatalf("allow-listed bot was denied: %+v", d)
	}
}

func TestFixedWindowExhaustion(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := New(zap.NewNop(), WithClock(func() time.Time { return now }))
	pol := policy.Policy{Rules: []policy.Rule{policy.FixedWindow(policy.ModeLive, 2, time.Minute)}}

	for i, wantRemaining := range []int{1, 0} {
		d := e.Evaluate(context.Background(), browserRequest(), "fp", pol)
		if !d.IsAllowed() {
			t.Fatalf("request %d unexpectedly denied: %+v", i+1, d)
		}
		if d.Reason.RateLimit == nil || d.Reason.RateLimit.Remaining != wantRemaining {
			t.Errorf("request %d remaining = %+v, want %d", i+1, d.Reason.RateLimit, wantRemaining)
		}
	}

	d := e.Evaluate(context.Background(), browserRequest(), "fp", pol)
	if !d.IsDenied() || d.Reason.RateLimit == nil {
		t.Fatalf("third request should be rate limited: %+v", d)
	}
	if !d.Reason.RateLimit.Triggered {
		t.Errorf("denying rule should mark its counter state as triggered")
	}
	if d.Reason.RateLimit.Remaining != 0 {
		t.Errorf("remaining = %d, want 0", d.Reason.RateLimit.Remaining)
	}
	if d.Reason.RateLimit.Reset == nil || !d.Reason.RateLimit.Reset.After(now) {
		t.Errorf("reset = %v, want a future instant", d.Reason.RateLimit.Reset)
	}

	// A different fingerprint has its own counter.
	if d := e.Evaluate(context.Background(), browserRequest(), "other", pol); !d.IsAllowed() {
		t.Errorf("separate fingerprint shares the counter: %+v", d)
	}
}

func TestFirstDenyWins(t *testing.T) {
	e := New(zap.NewNop())
	pol := policy.Policy{Rules: []policy.Rule{
		policy.DetectBot(policy.ModeLive),
		policy.FixedWindow(policy.ModeLive, 1, time.Minute),
	}}

	req := browserRequest()
	req.Headers.Set("User-Agent", "python-requests/2.31")

	d := e.Evaluate(context.Background(), req, "fp", pol)
	if !d.IsDenied() || !d.Reason.Bot {
		t.Fatalf("bot rule should deny before the rate limit runs: %+v", d)
	}
	if out := decision.Interpret(d); out.Kind != decision.OutcomeDeniedBot {
		t.Errorf("interpreted kind = %q, want denied_bot", out.Kind)
	}
}

func TestEmailClassification(t *testing.T) {
	resolver := fakeResolver{mx: map[string][]*net.MX{
		"mailinator.com": {{Host: "mx.mailinator.com"}},
		"example.com":    {{Host: "mx.example.com"}},
	}}
	e := New(zap.NewNop(), WithResolver(resolver))
	pol := policy.Policy{Rules: []policy.Rule{
		policy.ValidateEmail(policy.ModeLive, "INVALID", "DISPOSABLE", "NO_MX_RECORDS"),
	}}

	tests := []struct {
		email string
		want  decision.EmailType
	}{
		{"not-an-email", decision.EmailInvalid},
		{"user@mailinator.com", decision.EmailDisposable},
		{"user@unresolvable.test", decision.EmailNoMXRecords},
	}

	for _, tt := range tests {
		req := browserRequest()
		req.Email = tt.email
		d := e.Evaluate(context.Background(), req, "fp", pol)
		if !d.IsDenied() || d.Reason.Email == nil {
			t.Errorf("%s: decision = %+v, want email denial", tt.email, d)
			continue
		}
		found := false
		for _, et := range d.Reason.Email.Types {
			if et == tt.want {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: types = %v, want %s", tt.email, d.Reason.Email.Types, tt.want)
		}
	}

	req := browserRequest()
	req.Email = "user@example.com"
	if d := e.Evaluate(context.Background(), req, "fp", pol); !d.IsAllowed() {
		t.Errorf("valid email was denied: %+v", d)
	}
}

func TestEmailDenialWithIdleRateLimitRule(t *testing.T) {
	resolver := fakeResolver{mx: map[string][]*net.MX{
		"mailinator.com": {{Host: "mx.mailinator.com"}},
	}}
	e := New(zap.NewNop(), WithResolver(resolver))
	// Signup-shaped policy: the sliding window evaluates before the email
	// rule but has plenty of headroom on a first submission.
	pol := policy.Policy{Rules: []policy.Rule{
		policy.SlidingWindow(policy.ModeLive, 5, 2*time.Minute),
		policy.ValidateEmail(policy.ModeLive, "DISPOSABLE", "INVALID", "NO_MX_RECORDS"),
	}}

	req := browserRequest()
	req.Email = "user@mailinator.com"
	d := e.Evaluate(context.Background(), req, "fp", pol)
	if !d.IsDenied() || d.Reason.Email == nil {
		t.Fatalf("decision = %+v, want email denial", d)
	}

	out := decision.Interpret(d)
	if out.Kind != decision.OutcomeDeniedEmail {
		t.Fatalf("kind = %q, want denied_email: idle counter state must not claim the denial", out.Kind)
	}
	if out.RateLimit == nil || out.RateLimit.Remaining != 4 {
		t.Errorf("counter annotation dropped: %+v", out.RateLimit)
	}
}

func TestSensitiveInfoDetection(t *testing.T) {
	e := New(zap.NewNop())
	pol := policy.Policy{Rules: []policy.Rule{policy.SensitiveInfo(policy.ModeLive, "CREDIT_CARD_NUMBER")}}

	req := browserRequest()
	req.Body = "my card is 4111 1111 1111 1111 thanks"
	d := e.Evaluate(context.Background(), req, "fp", pol)
	if !d.IsDenied() || !d.Reason.SensitiveInfo {
		t.Fatalf("credit card number not detected: %+v", d)
	}

	req.Body = "order number 1234 5678 9012 3456 7"
	if d := e.Evaluate(context.Background(), req, "fp", pol); d.IsDenied() {
		// 17 digits failing the Luhn check must not be flagged.
		t.Errorf("non-card digit run was denied: %+v", d)
	}

	req.Body = "no digits here"
	if d := e.Evaluate(context.Background(), req, "fp", pol); !d.IsAllowed() {
		t.Errorf("clean body was denied: %+v", d)
	}
}

func TestRuleErrorSurfacesWhenNothingDenies(t *testing.T) {
	e := New(zap.NewNop())
	pol := policy.Policy{Rules: []policy.Rule{{Kind: "bogus", Mode: policy.ModeLive}}}

	d := e.Evaluate(context.Background(), browserRequest(), "fp", pol)
	if !d.IsErrored() {
		t.Fatalf("conclusion = %q, want ERROR", d.Conclusion)
	}
}

func TestIPInfoAttachedOnAllow(t *testing.T) {
	e := New(zap.NewNop(), WithIPInfo(func(ip string) decision.IPInfo {
		return decision.IPInfo{Country: "JP", CountryName: "Japan"}
	}))

	d := e.Evaluate(context.Background(), browserRequest(), "fp", policy.Policy{Rules: []policy.Rule{policy.Shield(policy.ModeLive)}})
	if !d.IsAllowed() {
		t.Fatalf("decision = %+v", d)
	}
	if !d.IP.HasCountry() || d.IP.CountryName != "Japan" {
		t.Errorf("IP analysis missing on allow: %+v", d.IP)
	}
}
