package policy

import (
	"sort"

	"github.com/dhawalhost/gatewarden/internal/actor"
)

// Template builds per-request policies from a fixed base rule list plus an
// optional override resolved from the requesting actor (e.g. an auth-tiered
// rate limit). Templates are immutable: WithRules and WithActorRules return
// copies, so a Template built at startup can be shared across requests.
type Template struct {
	base     []Rule
	forActor func(actor.Actor) []Rule
}

// NewTemplate returns a template with the given static base rules.
func NewTemplate(rules ...Rule) Template {
	return Template{base: rules}
}

// WithRules returns a copy of the template with extra static rules appended.
func (t Template) WithRules(rules ...Rule) Template {
	base := make([]Rule, 0, len(t.base)+len(rules))
	base = append(base, t.base...)
	base = append(base, rules...)
	return Template{base: base, forActor: t.forActor}
}

// WithActorRules returns a copy of the template whose Select resolves extra
// rules from the actor. At most one override function is held; setting a new
// one replaces the previous.
func (t Template) WithActorRules(fn func(actor.Actor) []Rule) Template {
	return Template{base: t.base, forActor: fn}
}

// Select produces the policy for one request. Rules are emitted in the
// product's precedence order regardless of how the template was assembled:
// shield, then bot, then rate limit, then email, then sensitive info.
// Insertion order is preserved within a kind.
func (t Template) Select(a actor.Actor) Policy {
	rules := make([]Rule, 0, len(t.base)+2)
	rules = append(rules, t.base...)
	if t.forActor != nil {
		rules = append(rules, t.forActor(a)...)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rulePriority(rules[i].Kind) < rulePriority(rules[j].Kind)
	})

	return Policy{Rules: rules}
}

func rulePriority(k Kind) int {
	switch k {
	case KindShield:
		return 0
	case KindBot:
		return 1
	case KindRateLimit:
		return 2
	case KindEmail:
		return 3
	case KindSensitiveInfo:
		return 4
	default:
		return 5
	}
}
