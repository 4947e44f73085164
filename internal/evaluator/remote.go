package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dhawalhost/gatewarden/internal/decision"
	"github.com/dhawalhost/gatewarden/internal/policy"
)

// RemoteConfig holds configuration for the remote evaluator client.
type RemoteConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Remote is a Client backed by the external evaluator's HTTP API.
type Remote struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRemote creates a new remote evaluator client. The timeout bounds every
// evaluation so a stalled evaluator degrades to an Error decision instead of
// backpressuring the calling service.
func NewRemote(cfg RemoteConfig) *Remote {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Remote{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type evaluateRequest struct {
	Request     Request       `json:"request"`
	Fingerprint string        `json:"fingerprint"`
	Policy      policy.Policy `json:"policy"`
}

// Evaluate submits the request to the evaluator. All failure modes come back
// as Error decisions; a missing or rejected API key uses the distinguished
// invalid-key message so operators get an actionable hint.
func (c *Remote) Evaluate(ctx context.Context, req Request, fingerprint string, pol policy.Policy) decision.Decision {
	if c.apiKey == "" {
		return ErrorDecision(MsgInvalidKey)
	}

	payload, err := json.Marshal(evaluateRequest{Request: req, Fingerprint: fingerprint, Policy: pol})
	if err != nil {
		return ErrorDecision(fmt.Sprintf("encode evaluation request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/decisions", bytes.NewReader(payload))
	if err != nil {
		return ErrorDecision(fmt.Sprintf("build evaluation request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ErrorDecision(fmt.Sprintf("evaluator unreachable: %v", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrorDecision(MsgInvalidKey)
	case resp.StatusCode >= 400:
		return ErrorDecision(fmt.Sprintf("evaluator returned status %d", resp.StatusCode))
	}

	var d decision.Decision
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return ErrorDecision(fmt.Sprintf("malformed evaluator response: %v", err))
	}
	return d
}
