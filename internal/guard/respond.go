package guard

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dhawalhost/gatewarden/internal/decision"
	"github.com/dhawalhost/gatewarden/internal/evaluator"
)

// Response is the HTTP rendering of an outcome: status, header set and a
// user-facing message. Handlers decide the body shape ({message} or
// form-style {errors, values}) around the message.
type Response struct {
	Status  int
	Headers map[string]string
	Message string
}

// MapToResponse turns an interpreted outcome into an HTTP response. Pure
// given (out, now): identical inputs yield identical responses.
//
// Rate-limit headers follow draft-polli-ratelimit-headers and are attached
// whenever the policy carried a rate-limit rule, triggered or not. A VPN
// client is refused even when the rules allowed the request.
func MapToResponse(out decision.Outcome, now time.Time) Response {
	headers := rateLimitHeaders(out.RateLimit, now)

	switch out.Kind {
	case decision.OutcomeAllowed:
		if out.IP.IsVPN() {
			return Response{Status: http.StatusForbidden, Headers: headers, Message: "VPNs are forbidden"}
		}
		if rl := out.RateLimit; rl != nil {
			msg := fmt.Sprintf("HTTP 200: OK. %d requests remaining.", rl.Remaining)
			if phrase, ok := decision.RetryPhrase(rl.Reset, now); ok {
				msg += fmt.Sprintf(" Reset in %s.", phrase)
			}
			return Response{Status: http.StatusOK, Headers: headers, Message: msg}
		}
		return Response{Status: http.StatusOK, Headers: headers, Message: "Hello, world!"}

	case decision.OutcomeDeniedShield:
		return Response{Status: http.StatusForbidden, Headers: headers, Message: "forbidden"}

	case decision.OutcomeDeniedBot:
		return Response{Status: http.StatusForbidden, Headers: headers, Message: "bots are forbidden"}

	case decision.OutcomeDeniedRateLimit:
		var reset *time.Time
		if out.RateLimit != nil {
			reset = out.RateLimit.Reset
		}
		msg := "too many requests. Please try again later."
		if phrase, ok := decision.RetryPhrase(reset, now); ok {
			msg = fmt.Sprintf("too many requests. Please try again in %s.", phrase)
		}
		return Response{Status: http.StatusTooManyRequests, Headers: headers, Message: msg}

	case decision.OutcomeDeniedEmail:
		return Response{Status: http.StatusBadRequest, Headers: headers, Message: emailMessage(out)}

	case decision.OutcomeDeniedSensitiveInfo:
		return Response{Status: http.StatusBadRequest, Headers: headers, Message: "please do not include credit card numbers."}

	case decision.OutcomeErrored:
		if out.ErrMessage == evaluator.MsgInvalidKey {
			return Response{
				Status:  http.StatusInternalServerError,
				Headers: headers,
				Message: "invalid evaluator key. Is the GATEWARDEN_KEY environment variable set?",
			}
		}
		return Response{Status: http.StatusInternalServerError, Headers: headers, Message: "internal server error"}

	default:
		return Response{Status: http.StatusForbidden, Headers: headers, Message: "forbidden"}
	}
}

// emailMessage selects the most actionable rejection reason. Priority is
// INVALID, then DISPOSABLE, then NO_MX_RECORDS, then a generic fallback, and
// a country greeting is appended when the IP resolved to one.
func emailMessage(out decision.Outcome) string {
	var msg string
	switch {
	case out.HasEmailType(decision.EmailInvalid):
		msg = "email address format is invalid. Is there a typo?"
	case out.HasEmailType(decision.EmailDisposable):
		msg = "we do not allow disposable email addresses."
	case out.HasEmailType(decision.EmailNoMXRecords):
		msg = "your email domain does not have an MX record. Is there a typo?"
	default:
		msg = "invalid email."
	}

	if out.IP.HasCountry() {
		msg += fmt.Sprintf(" PS: Hello to you in %s!", out.IP.CountryName)
	}
	return msg
}

func rateLimitHeaders(rl *decision.RateLimitReason, now time.Time) map[string]string {
	headers := map[string]string{}
	if rl == nil {
		return headers
	}

	headers["RateLimit-Limit"] = strconv.Itoa(rl.Max)
	headers["RateLimit-Remaining"] = strconv.Itoa(rl.Remaining)
	if rl.Reset != nil {
		seconds := int(rl.Reset.Sub(now).Seconds())
		if seconds < 0 {
			seconds = 0
		}
		headers["RateLimit-Reset"] = strconv.Itoa(seconds)
	}
	return headers
}
