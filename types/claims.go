package types

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginStep names the state machine position a token was issued for. Each
// verification endpoint accepts exactly one step; tokens are never valid out
// of sequence.
type LoginStep string

const (
	StepRegister        LoginStep = "register"
	StepRequestPassword LoginStep = "requestPassword"
	StepRequestOtp      LoginStep = "requestOtp"
	StepRequestPasskey  LoginStep = "requestPasskey"
	StepLoggedIn        LoginStep = "loggedIn"
)

// Client is the fingerprint of the calling browser, captured by the transport
// layer from request headers and connection metadata. Tokens and passkey
// challenges are bound to it at issuance.
type Client struct {
	Agent   string `json:"agent"`
	Referer string `json:"referer"`
	IP      string `json:"ip"`
}

// Matches reports whether two fingerprints describe the same caller.
func (c Client) Matches(other Client) bool {
	return c.Agent == other.Agent && c.Referer == other.Referer && c.IP == other.IP
}

// AccessTokenClaims is the claim set of a session token. The same superset of
// fields is used for every step; Step gates which transition may consume the
// token and IsAuthorized is true only for loggedIn tokens.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Email        string    `json:"email,omitempty"`
	UUID         string    `json:"uuid,omitempty"`
	Step         LoginStep `json:"step"`
	IsAuthorized bool      `json:"isAuthorized"`
	Agent        string    `json:"agent,omitempty"`
	Referer      string    `json:"referer,omitempty"`
	IP           string    `json:"ip,omitempty"`
}

// Client returns the fingerprint bound into the token at issuance.
func (c *AccessTokenClaims) Client() Client {
	return Client{Agent: c.Agent, Referer: c.Referer, IP: c.IP}
}

// PasskeyChallengeClaims is the claim set of a passkey login challenge,
// signed with a challenge-specific key distinct from the session signing key.
// Salt makes every challenge unique and unpredictable.
type PasskeyChallengeClaims struct {
	jwt.RegisteredClaims
	Agent   string `json:"agent"`
	Referer string `json:"referer"`
	IP      string `json:"ip"`
	Salt    string `json:"salt"`
}

// Client returns the fingerprint the challenge was issued for.
func (c *PasskeyChallengeClaims) Client() Client {
	return Client{Agent: c.Agent, Referer: c.Referer, IP: c.IP}
}
