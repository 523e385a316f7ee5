package types

import (
	"github.com/go-webauthn/webauthn/protocol"
)

type InputRegister struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type InputLogin struct {
	Email string `json:"email" validate:"required,email"`
}

type InputPassword struct {
	Password        string `json:"password" validate:"required"`
	ExtendedSession bool   `json:"extendedSession"`
}

type InputOtp struct {
	TotpToken       string `json:"totpToken" validate:"required"`
	ExtendedSession bool   `json:"extendedSession"`
}

// InputPasskeyLogin carries the challenge issued at request time and the
// client's assertion from the passkey ceremony. The assertion's userHandle
// identifies the account; its credential ID must be registered on it.
type InputPasskeyLogin struct {
	Challenge       string                                `json:"challenge" validate:"required"`
	Assertion       *protocol.CredentialAssertionResponse `json:"assertion" validate:"required"`
	ExtendedSession bool                                  `json:"extendedSession"`
}

type InputUserUpdate struct {
	Password  string    `json:"password,omitempty"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Passkeys  []Passkey `json:"passkeys,omitempty"`
}
