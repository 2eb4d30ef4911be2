package auth

// User is the signed-in identity as the session sees it. Token is the opaque
// session token handed out at sign-in; it means nothing to the client beyond
// "send it back".
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}
