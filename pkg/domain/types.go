package domain

import "time"

type SessionStatus string

const (
	SessionUnknown         SessionStatus = "unknown"
	SessionAuthenticating  SessionStatus = "authenticating"
	SessionAuthenticated   SessionStatus = "authenticated"
	SessionUnauthenticated SessionStatus = "unauthenticated"
)

type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	ProfileImage string    `json:"profileImage"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Author struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

type Book struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	Caption   string    `json:"caption"`
	Ratings   int       `json:"ratings"`
	Image     string    `json:"image"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials is the blob persisted between runs: the bearer token plus the
// profile it was issued for.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
