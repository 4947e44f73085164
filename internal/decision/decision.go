package decision

import "time"

// Conclusion is the evaluator's verdict on a request.
type Conclusion string

const (
	Allow Conclusion = "ALLOW"
	Deny  Conclusion = "DENY"
	Error Conclusion = "ERROR"
)

// EmailType classifies why an email address was rejected.
type EmailType string

const (
	EmailInvalid     EmailType = "INVALID"
	EmailDisposable  EmailType = "DISPOSABLE"
	EmailNoMXRecords EmailType = "NO_MX_RECORDS"
	EmailFree        EmailType = "FREE"
)

// RateLimitReason carries the counter state of a rate-limit rule. It is
// present whenever a rate-limit rule was in the policy, triggered or not, so
// callers can report the remaining allowance even on allows. Triggered marks
// the rule as the one that actually blocked the request; untriggered state is
// annotation only and never names the rate limit as the deny reason.
type RateLimitReason struct {
	Max       int        `json:"max"`
	Remaining int        `json:"remaining"`
	Reset     *time.Time `json:"reset,omitempty"`
	Triggered bool       `json:"triggered,omitempty"`
}

// EmailReason lists the email classifications that matched.
type EmailReason struct {
	Types []EmailType `json:"types"`
}

// Reason records which rules flagged the request. A well-formed policy
// produces at most one flag, but the fields are independent so an evaluator
// returning overlapping flags is still representable; Interpret owns the
// precedence between them.
type Reason struct {
	Shield        bool             `json:"shield,omitempty"`
	Bot           bool             `json:"bot,omitempty"`
	RateLimit     *RateLimitReason `json:"rate_limit,omitempty"`
	Email         *EmailReason     `json:"email,omitempty"`
	SensitiveInfo bool             `json:"sensitive_info,omitempty"`

	// Message holds the error detail when the conclusion is Error.
	Message string `json:"message,omitempty"`
}

// IPInfo is the evaluator's analysis of the client IP. It is populated on
// every decision, including allows, so business rules can branch on it.
type IPInfo struct {
	Country     string `json:"country,omitempty"`
	CountryName string `json:"country_name,omitempty"`
	VPN         bool   `json:"vpn,omitempty"`
}

// HasCountry reports whether the IP resolved to a country.
func (ip IPInfo) HasCountry() bool { return ip.Country != "" }

// IsVPN reports whether the IP belongs to a known VPN range.
func (ip IPInfo) IsVPN() bool { return ip.VPN }

// Decision is the structured verdict for one request. Decisions are produced
// once by the evaluator, consumed immediately, and never persisted.
type Decision struct {
	ID         string     `json:"id"`
	Conclusion Conclusion `json:"conclusion"`
	Reason     Reason     `json:"reason"`
	IP         IPInfo     `json:"ip"`
}

// IsDenied reports whether the verdict blocks the request.
func (d Decision) IsDenied() bool { return d.Conclusion == Deny }

// IsErrored reports whether the evaluator failed. Failure is data, never a
// thrown error: an invalid API key or an evaluator outage both surface here.
func (d Decision) IsErrored() bool { return d.Conclusion == Error }

// IsAllowed reports whether the request passed every rule.
func (d Decision) IsAllowed() bool { return d.Conclusion == Allow }
