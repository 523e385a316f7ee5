package util

import (
	"net/http"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/passlock/go-passlock-server/types"
)

// TotpService wraps time-based one-time-password generation and validation
// for the MFA login step.
type TotpService struct {
	issuer string
}

func NewTotpService(issuer string) *TotpService {
	if issuer == "" {
		issuer = "passlock"
	}
	return &TotpService{issuer: issuer}
}

// GenerateTotpSecret creates a fresh per-user MFA seed at registration.
func (s *TotpService) GenerateTotpSecret(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", types.NewServiceError("TOTP generation failed", err.Error(), http.StatusInternalServerError)
	}
	return key.Secret(), nil
}

// IsTotpValid checks a one-time code against the user's secret, tolerating
// one period of clock skew in either direction. Internal verification errors
// surface as a 401, never raw.
func (s *TotpService) IsTotpValid(code, secret string) (bool, error) {
	valid, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: 6,
	})
	if err != nil {
		return false, types.NewServiceError("TOTP verification failed", err.Error(), http.StatusUnauthorized)
	}
	return valid, nil
}
