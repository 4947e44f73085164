package evaluator

import (
	"context"
	"net/http"

	"github.com/dhawalhost/gatewarden/internal/decision"
	"github.com/dhawalhost/gatewarden/internal/policy"
	"github.com/google/uuid"
)

// MsgInvalidKey is the error message an evaluator returns when it cannot
// authenticate the caller. The response mapper matches on it to surface an
// operator hint instead of a generic 500.
const MsgInvalidKey = "[unauthenticated] invalid key"

// Request carries the request identity submitted for evaluation. Email and
// Body are optional context consumed only by specific rules (email validation
// and sensitive-info scanning).
type Request struct {
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Headers http.Header `json:"headers,omitempty"`
	IP      string      `json:"ip"`
	Email   string      `json:"email,omitempty"`
	Body    string      `json:"body,omitempty"`
}

// FromHTTP extracts the evaluation-relevant identity of an HTTP request.
func FromHTTP(r *http.Request, ip string) Request {
	return Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: r.Header,
		IP:      ip,
	}
}

// Client submits a request, fingerprint and policy for evaluation. It is the
// sole I/O boundary of the decision pipeline. Implementations never return a
// Go error: evaluator failure of any kind (timeout, transport, bad key,
// internal fault) is reported as a Decision with the Error conclusion, so
// callers always have a verdict to map into a response.
type Client interface {
	Evaluate(ctx context.Context, req Request, fingerprint string, pol policy.Policy) decision.Decision
}

// ErrorDecision builds the Error-conclusion decision used for infrastructure
// failure.
func ErrorDecision(message string) decision.Decision {
	return decision.Decision{
		ID:         uuid.NewString(),
		Conclusion: decision.Error,
		Reason:     decision.Reason{Message: message},
	}
}
