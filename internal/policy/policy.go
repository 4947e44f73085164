package policy

import (
	"time"
)

// Mode controls whether a rule enforces or only observes.
type Mode string

const (
	// ModeLive blocks requests that match the rule.
	ModeLive Mode = "LIVE"
	// ModeDryRun evaluates the rule and logs the result without blocking.
	ModeDryRun Mode = "DRY_RUN"
)

// Kind identifies the rule family.
type Kind string

const (
	KindShield        Kind = "shield"
	KindBot           Kind = "bot"
	KindRateLimit     Kind = "rate_limit"
	KindEmail         Kind = "email"
	KindSensitiveInfo Kind = "sensitive_info"
)

// WindowKind discriminates the two rate-limit window algorithms.
type WindowKind string

const (
	// WindowFixed resets the counter at fixed time boundaries.
	WindowFixed WindowKind = "fixed"
	// WindowSliding counts events within a continuously moving interval.
	WindowSliding WindowKind = "sliding"
)

// Window holds the parameters of a rate-limit rule.
type Window struct {
	Kind   WindowKind    `json:"kind"`
	Max    int           `json:"max"`
	Period time.Duration `json:"period"`
}

// Rule is a single protection rule. Parameters are kind-specific: Window for
// rate limits, Allow for bot rules, Block for email rules, Deny for
// sensitive-info rules.
type Rule struct {
	Kind   Kind     `json:"kind"`
	Mode   Mode     `json:"mode"`
	Window *Window  `json:"window,omitempty"`
	Allow  []string `json:"allow,omitempty"`
	Block  []string `json:"block,omitempty"`
	Deny   []string `json:"deny,omitempty"`
}

// Policy is the ordered rule list submitted to the evaluator for one request.
// The evaluator walks rules left to right and returns the first deny, else
// the first error, else allow, so ordering is significant.
type Policy struct {
	Rules []Rule `json:"rules"`
}

// RateLimit returns the first rate-limit rule in the policy, or nil.
func (p Policy) RateLimit() *Rule {
	for i := range p.Rules {
		if p.Rules[i].Kind == KindRateLimit {
			return &p.Rules[i]
		}
	}
	return nil
}

// Shield returns an attack-detection rule (SQL injection, XSS and similar
// suspicious request patterns).
func Shield(mode Mode) Rule {
	return Rule{Kind: KindShield, Mode: mode}
}

// DetectBot returns a bot-filtering rule. Clients matching an entry in allow
// are exempt; an empty list blocks all automated clients.
func DetectBot(mode Mode, allow ...string) Rule {
	return Rule{Kind: KindBot, Mode: mode, Allow: allowList(allow)}
}

// FixedWindow returns a rate-limit rule with a fixed window: max requests per
// period, counter reset at period boundaries.
func FixedWindow(mode Mode, max int, period time.Duration) Rule {
	return Rule{Kind: KindRateLimit, Mode: mode, Window: &Window{Kind: WindowFixed, Max: max, Period: period}}
}

// SlidingWindow returns a rate-limit rule counting requests over a moving
// interval.
func SlidingWindow(mode Mode, max int, interval time.Duration) Rule {
	return Rule{Kind: KindRateLimit, Mode: mode, Window: &Window{Kind: WindowSliding, Max: max, Period: interval}}
}

// ValidateEmail returns an email-validation rule blocking the listed email
// types (e.g. INVALID, DISPOSABLE, NO_MX_RECORDS).
func ValidateEmail(mode Mode, block ...string) Rule {
	return Rule{Kind: KindEmail, Mode: mode, Block: block}
}

// SensitiveInfo returns a rule denying requests whose body contains the
// listed sensitive entity types (e.g. CREDIT_CARD_NUMBER).
func SensitiveInfo(mode Mode, deny ...string) Rule {
	return Rule{Kind: KindSensitiveInfo, Mode: mode, Deny: deny}
}

// SignupOptions configures the composite signup-protection rule.
type SignupOptions struct {
	EmailMode  Mode
	EmailBlock []string
	BotMode    Mode
	BotAllow   []string
	RateMode   Mode
	RateMax    int
	Interval   time.Duration
}

// ProtectSignup expands the composite signup rule into its bot, sliding
// window and email sub-rules, already in evaluation priority order.
func ProtectSignup(opts SignupOptions) []Rule {
	return []Rule{
		DetectBot(opts.BotMode, opts.BotAllow...),
		SlidingWindow(opts.RateMode, opts.RateMax, opts.Interval),
		ValidateEmail(opts.EmailMode, opts.EmailBlock...),
	}
}

// allowList distinguishes "no allow list given" from "explicit empty allow
// list": both block everything, but the wire format keeps the empty list.
func allowList(allow []string) []string {
	if allow == nil {
		return []string{}
	}
	return allow
}
