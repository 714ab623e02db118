package types

// User represents a recipe author or commenter
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AuthResponse is returned by the login and register endpoints. Login
// returns an access/refresh pair, register returns a single token.
type AuthResponse struct {
	Token   string `json:"token"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

// AccessToken returns whichever token field the backend populated
func (r *AuthResponse) AccessToken() string {
	if r.Token != "" {
		return r.Token
	}
	return r.Access
}
