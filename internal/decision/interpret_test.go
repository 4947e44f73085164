package decision

import (
	"testing"
	"time"
)

func TestInterpretDenyPrecedence(t *testing.T) {
	reset := time.Now().Add(time.Minute)

	tests := []struct {
		name   string
		reason Reason
		want   OutcomeKind
	}{
		{
			name:   "bot beats rate limit",
			reason: Reason{Bot: true, RateLimit: &RateLimitReason{Max: 5, Reset: &reset, Triggered: true}},
			want:   OutcomeDeniedBot,
		},
		{
			name:   "shield beats bot",
			reason: Reason{Shield: true, Bot: true},
			want:   OutcomeDeniedShield,
		},
		{
			name:   "rate limit beats email",
			reason: Reason{RateLimit: &RateLimitReason{Max: 5, Triggered: true}, Email: &EmailReason{Types: []EmailType{EmailInvalid}}},
			want:   OutcomeDeniedRateLimit,
		},
		{
			// Counter state from a rule that did not trip is annotation, not
			// the deny reason.
			name: "untriggered counter state does not claim the denial",
			reason: Reason{
				RateLimit: &RateLimitReason{Max: 5, Remaining: 4, Reset: &reset},
				Email:     &EmailReason{Types: []EmailType{EmailDisposable}},
			},
			want: OutcomeDeniedEmail,
		},
		{
			name:   "email beats sensitive info",
			reason: Reason{Email: &EmailReason{Types: []EmailType{EmailInvalid}}, SensitiveInfo: true},
			want:   OutcomeDeniedEmail,
		},
		{
			name:   "no flags is a generic denial",
			reason: Reason{},
			want:   OutcomeDeniedGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Interpret(Decision{Conclusion: Deny, Reason: tt.reason})
			if out.Kind != tt.want {
				t.Errorf("Interpret kind = %q, want %q", out.Kind, tt.want)
			}
		})
	}
}

func TestInterpretDenyBeatsError(t *testing.T) {
	// An error message alongside a Deny conclusion must not turn the
	// outcome into Errored; Error is only checked when nothing denied.
	out := Interpret(Decision{Conclusion: Deny, Reason: Reason{Message: "partial failure"}})
	if out.Kind != OutcomeDeniedGeneric {
		t.Fatalf("kind = %q, want %q", out.Kind, OutcomeDeniedGeneric)
	}
}

func TestInterpretErrored(t *testing.T) {
	out := Interpret(Decision{Conclusion: Error, Reason: Reason{Message: "[unauthenticated] invalid key"}})
	if out.Kind != OutcomeErrored {
		t.Fatalf("kind = %q, want %q", out.Kind, OutcomeErrored)
	}
	if out.ErrMessage != "[unauthenticated] invalid key" {
		t.Errorf("error message not carried: %q", out.ErrMessage)
	}
}

func TestInterpretAllowCarriesIPAndCounters(t *testing.T) {
	reset := time.Now().Add(30 * time.Second)
	d := Decision{
		Conclusion: Allow,
		Reason:     Reason{RateLimit: &RateLimitReason{Max: 5, Remaining: 3, Reset: &reset}},
		IP:         IPInfo{Country: "JP", CountryName: "Japan", VPN: true},
	}

	out := Interpret(d)
	if out.Kind != OutcomeAllowed {
		t.Fatalf("kind = %q, want %q", out.Kind, OutcomeAllowed)
	}
	if !out.IP.HasCountry() || !out.IP.IsVPN() {
		t.Errorf("IP notes dropped on allow: %+v", out.IP)
	}
	if out.RateLimit == nil || out.RateLimit.Remaining != 3 {
		t.Errorf("rate limit counters dropped on allow: %+v", out.RateLimit)
	}
}

func TestInterpretEmailPayload(t *testing.T) {
	d := Decision{
		Conclusion: Deny,
		Reason:     Reason{Email: &EmailReason{Types: []EmailType{EmailDisposable, EmailNoMXRecords}}},
	}
	out := Interpret(d)
	if out.Kind != OutcomeDeniedEmail {
		t.Fatalf("kind = %q, want %q", out.Kind, OutcomeDeniedEmail)
	}
	if !out.HasEmailType(EmailDisposable) || !out.HasEmailType(EmailNoMXRecords) {
		t.Errorf("email types dropped: %v", out.EmailTypes)
	}
	if out.HasEmailType(EmailInvalid) {
		t.Errorf("unexpected INVALID classification")
	}
}
