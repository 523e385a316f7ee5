package types

// NextStep tells the client which verification endpoint to call next.
type NextStep struct {
	Step LoginStep `json:"step"`
	URL  string    `json:"url"`
}

// RequestLoginResponse is returned for the initial login request. Unknown
// emails get the exact same shape with a fake password-only profile, so
// callers cannot enumerate accounts from the response.
type RequestLoginResponse struct {
	Email              string   `json:"email"`
	Token              string   `json:"token"`
	IsPasswordRequired bool     `json:"isPasswordRequired"`
	IsOtpRequired      bool     `json:"isOtpRequired"`
	HasPasskey         bool     `json:"hasPasskey"`
	PasskeyChallenge   string   `json:"passkeyChallenge,omitempty"`
	Next               NextStep `json:"next"`
}

// OtpRequiredResponse is returned after a correct password when MFA is on.
type OtpRequiredResponse struct {
	Email string   `json:"email"`
	Token string   `json:"token"`
	Next  NextStep `json:"next"`
}

// PasskeyChallengeResponse carries a fresh challenge for the passkey
// ceremony; the client must echo it back on verification.
type PasskeyChallengeResponse struct {
	Challenge string `json:"challenge"`
}

// LoginOutcome is the result of a verification step: either the next MFA
// step or the final authorized session, never both.
type LoginOutcome struct {
	OtpRequired *OtpRequiredResponse
	Auth        *AuthResponse
}

// Payload returns whichever half is populated, for serialization.
func (o LoginOutcome) Payload() interface{} {
	if o.OtpRequired != nil {
		return o.OtpRequired
	}
	return o.Auth
}

// AuthResponse is the terminal, authorized login payload. It never carries
// the password hash and never the TOTP secret.
type AuthResponse struct {
	Email        string    `json:"email"`
	UUID         string    `json:"uuid"`
	Token        string    `json:"token"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	IsMFAEnabled bool      `json:"isMFAEnabled"`
	IsAuthorized bool      `json:"isAuthorized"`
	Passkeys     []Passkey `json:"passkeys,omitempty"`
}

// RegisterResponse is the one place the TOTP secret is ever returned.
type RegisterResponse struct {
	UUID                string `json:"uuid"`
	Email               string `json:"email"`
	Token               string `json:"token"`
	TotpSecret          string `json:"totp_secret"`
	PublicEncryptionKey string `json:"public_encryption_key"`
	CreatedDate         string `json:"created_date"`
}

// UserInfoResponse is the authenticated profile read.
type UserInfoResponse struct {
	Email          string    `json:"email"`
	UUID           string    `json:"uuid"`
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	IsMFAEnabled   bool      `json:"isMFAEnabled"`
	Passkeys       []Passkey `json:"passkeys,omitempty"`
	CreatedDate    string    `json:"created_date,omitempty"`
	LastUpdateDate string    `json:"last_update_date,omitempty"`
	LastLoginDate  string    `json:"last_login_date,omitempty"`
}

// AccountsPage is a paged vault entry listing.
type AccountsPage struct {
	TotalAccounts int64      `json:"totalAccounts"`
	Accounts      []*Account `json:"accounts"`
	Next          *PageRef   `json:"next,omitempty"`
	Previous      *PageRef   `json:"previous,omitempty"`
}

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
