package decision

// OutcomeKind is the classified result of interpreting a Decision.
type OutcomeKind string

const (
	OutcomeAllowed             OutcomeKind = "allowed"
	OutcomeDeniedShield        OutcomeKind = "denied_shield"
	OutcomeDeniedBot           OutcomeKind = "denied_bot"
	OutcomeDeniedRateLimit     OutcomeKind = "denied_rate_limit"
	OutcomeDeniedEmail         OutcomeKind = "denied_email"
	OutcomeDeniedSensitiveInfo OutcomeKind = "denied_sensitive_info"
	OutcomeDeniedGeneric       OutcomeKind = "denied"
	OutcomeErrored             OutcomeKind = "errored"
)

// Outcome is the interpreted decision handed to the response mapper. IP info
// is always carried, including on allows, so callers can veto VPNs or branch
// on country on top of the rule verdict. RateLimit is carried whenever the
// evaluator reported counter state, triggered or not.
type Outcome struct {
	Kind       OutcomeKind
	IP         IPInfo
	RateLimit  *RateLimitReason
	EmailTypes []EmailType
	ErrMessage string
}

// Interpret classifies a Decision. Denials are resolved in fixed precedence:
// shield, bot, rate limit, email, sensitive info — the first matching flag
// wins, which makes the order authoritative even if an evaluator ever sets
// overlapping flags. Error is only considered when the conclusion is not
// Deny; anything else is an allow.
func Interpret(d Decision) Outcome {
	out := Outcome{IP: d.IP, RateLimit: d.Reason.RateLimit}

	switch {
	case d.IsDenied():
		switch {
		case d.Reason.Shield:
			out.Kind = OutcomeDeniedShield
		case d.Reason.Bot:
			out.Kind = OutcomeDeniedBot
		case d.Reason.RateLimit != nil && d.Reason.RateLimit.Triggered:
			out.Kind = OutcomeDeniedRateLimit
		case d.Reason.Email != nil:
			out.Kind = OutcomeDeniedEmail
			out.EmailTypes = d.Reason.Email.Types
		case d.Reason.SensitiveInfo:
			out.Kind = OutcomeDeniedSensitiveInfo
		default:
			out.Kind = OutcomeDeniedGeneric
		}
	case d.IsErrored():
		out.Kind = OutcomeErrored
		out.ErrMessage = d.Reason.Message
	default:
		out.Kind = OutcomeAllowed
	}

	return out
}

// HasEmailType reports whether the outcome carries the given classification.
func (o Outcome) HasEmailType(t EmailType) bool {
	for _, et := range o.EmailTypes {
		if et == t {
			return true
		}
	}
	return false
}
