// Package nav decides whether the current screen is permitted for the
// session. The decision is pure; callers re-evaluate it on every session or
// route change.
package nav

import "bookworm/pkg/domain"

type Decision int

const (
	DecisionNone Decision = iota
	DecisionRedirectToAuth
	DecisionRedirectToApp
)

func (d Decision) String() string {
	switch d {
	case DecisionRedirectToAuth:
		return "redirect-to-auth"
	case DecisionRedirectToApp:
		return "redirect-to-app"
	default:
		return "none"
	}
}

// Decide evaluates the guard rules in order. While the session is still
// unknown it always defers, so the initial check never causes a redirect
// flicker. It never recommends navigating to the area already active.
func Decide(status domain.SessionStatus, hasToken, inAuthArea bool) Decision {
	if status == domain.SessionUnknown {
		return DecisionNone
	}
	signedIn := status == domain.SessionAuthenticated && hasToken
	if !signedIn && !inAuthArea {
		return DecisionRedirectToAuth
	}
	if signedIn && inAuthArea {
		return DecisionRedirectToApp
	}
	return DecisionNone
}
