package local

import (
	"context"
	"regexp"
	"strings"

	"github.com/dhawalhost/gatewarden/internal/decision"
	"github.com/dhawalhost/gatewarden/internal/evaluator"
)

// suspicious is the shield heuristic: requests carrying the probe header are
// treated as attack traffic. Real shield analysis (SQLi, XSS patterns) is the
// remote evaluator's job.
func suspicious(req evaluator.Request) bool {
	return strings.EqualFold(req.Headers.Get("X-Gatewarden-Suspicious"), "true")
}

var botMarkers = []string{
	"bot", "crawler", "spider", "curl", "wget",
	"python-requests", "scrapy", "httpclient", "headless", "phantom",
}

// isBot classifies a client from its User-Agent. A missing UA or one carrying
// a known automation marker counts as a bot unless an allow-list entry
// matches it.
func isBot(req evaluator.Request, allow []string) bool {
	ua := strings.ToLower(req.Headers.Get("User-Agent"))
	if ua == "" {
		return true
	}

	matched := false
	for _, marker := range botMarkers {
		if strings.Contains(ua, marker) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}

	for _, a := range allow {
		if a != "" && strings.Contains(ua, strings.ToLower(a)) {
			return false
		}
	}
	return true
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@([^\s@]+\.[^\s@]+)$`)

var disposableDomains = map[string]bool{
	"mailinator.com":    true,
	"guerrillamail.com": true,
	"10minutemail.com":  true,
	"tempmail.com":      true,
	"trashmail.com":     true,
	"yopmail.com":       true,
	"sharklasers.com":   true,
	"discard.email":     true,
}

// classifyEmail returns every classification that applies to the address.
// Format problems short-circuit the domain checks; an unresolvable domain is
// reported as NO_MX_RECORDS rather than as an evaluator error.
func (e *Evaluator) classifyEmail(ctx context.Context, email string) ([]decision.EmailType, error) {
	m := emailPattern.FindStringSubmatch(strings.TrimSpace(email))
	if m == nil {
		return []decision.EmailType{decision.EmailInvalid}, nil
	}

	var detected []decision.EmailType
	domain := strings.ToLower(m[1])

	if disposableDomains[domain] {
		detected = append(detected, decision.EmailDisposable)
	}

	mx, err := e.resolver.LookupMX(ctx, domain)
	if err != nil || len(mx) == 0 {
		detected = append(detected, decision.EmailNoMXRecords)
	}

	return detected, nil
}

var cardCandidate = regexp.MustCompile(`(?:\d[ -]?){13,19}`)

// containsSensitive scans the submitted body for the denied entity types.
// Only credit card numbers are recognized locally.
func containsSensitive(body string, deny []string) bool {
	denyCards := false
	for _, d := range deny {
		if d == "CREDIT_CARD_NUMBER" {
			denyCards = true
		}
	}
	if !denyCards || body == "" {
		return false
	}

	for _, candidate := range cardCandidate.FindAllString(body, -1) {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, candidate)
		if len(digits) >= 13 && len(digits) <= 19 && luhnValid(digits) {
			return true
		}
	}
	return false
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
