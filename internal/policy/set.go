package policy

import (
	"time"

	"github.com/dhawalhost/gatewarden/internal/actor"
)

// Set bundles the per-route templates. It is built once at startup and shared
// read-only by every request, replacing ad-hoc module-scope rule chains.
type Set struct {
	Attack        Template
	Bots          Template
	RateLimit     Template
	Signup        Template
	SensitiveInfo Template
}

// Defaults returns the route templates. Shield is the always-on base rule;
// each route layers its own protections on top.
func Defaults() Set {
	base := NewTemplate(Shield(ModeLive))

	return Set{
		Attack: base,

		Bots: base.WithRules(
			DetectBot(ModeLive), // blocks all automated clients
			FixedWindow(ModeLive, 100, 60*time.Second),
		),

		// The rate limit tier depends on the session: authenticated users get
		// a higher allowance than anonymous visitors.
		RateLimit: base.WithActorRules(func(a actor.Actor) []Rule {
			if a.IsAuthenticated() {
				return []Rule{FixedWindow(ModeLive, 5, 60*time.Second)}
			}
			return []Rule{FixedWindow(ModeLive, 2, 60*time.Second)}
		}),

		// It would be unusual for a signup form to be submitted more than 5
		// times in 2 minutes from the same client.
		Signup: base.WithRules(ProtectSignup(SignupOptions{
			EmailMode:  ModeLive,
			EmailBlock: []string{"DISPOSABLE", "INVALID", "NO_MX_RECORDS"},
			BotMode:    ModeLive,
			RateMode:   ModeLive,
			RateMax:    5,
			Interval:   2 * time.Minute,
		})...),

		SensitiveInfo: base.WithRules(
			SensitiveInfo(ModeLive, "CREDIT_CARD_NUMBER"),
		),
	}
}
