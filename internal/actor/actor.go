package actor

// Actor is the identity a request is evaluated as: an authenticated user or
// an anonymous visitor known only by IP. Immutable for the life of a request.
type Actor struct {
	UserID string
	Email  string
	IP     string
}

// Anonymous returns an Actor identified only by IP address.
func Anonymous(ip string) Actor {
	return Actor{IP: ip}
}

// Authenticated returns an Actor for a logged-in user.
func Authenticated(id, email, ip string) Actor {
	return Actor{UserID: id, Email: email, IP: ip}
}

// IsAuthenticated reports whether the actor is a logged-in user.
func (a Actor) IsAuthenticated() bool {
	return a.UserID != ""
}

// Fingerprint derives the stable identity key used to scope enforcement
// counters. Authenticated users are tracked by user ID so the limit follows
// them across browsers; anonymous visitors are tracked by IP. A user logging
// in mid-window moves to a fresh key, which resets their counter.
func (a Actor) Fingerprint() string {
	if a.IsAuthenticated() {
		return a.UserID
	}
	return a.IP
}
