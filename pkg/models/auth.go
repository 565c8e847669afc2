package models

// User is the signed-in operator as reported by the profile endpoint.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// DisplayName returns the name if set, else the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// LoginRequest ist der Payload für den Login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult enthält das Ergebnis eines Logins.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user,omitempty"`
}
