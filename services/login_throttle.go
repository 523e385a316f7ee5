package services

import (
	"net/http"
	"time"

	"github.com/passlock/go-passlock-server/types"
)

const defaultLoginDelay = 300 * time.Second

// LoginThrottle enforces a minimum interval between successful logins for one
// identity. It only looks at last_login_date, so it restricts repeat-success
// velocity, not failed guesses. It is applied on the password path only,
// passkeys are not applicable.
type LoginThrottle struct {
	delay time.Duration
}

func NewLoginThrottle(delaySeconds int) *LoginThrottle {
	delay := defaultLoginDelay
	if delaySeconds > 0 {
		delay = time.Duration(delaySeconds) * time.Second
	}
	return &LoginThrottle{delay: delay}
}

// MayAttempt reports whether enough time has passed since the last
// successful login. A zero lastLogin always allows.
func (t *LoginThrottle) MayAttempt(lastLogin time.Time, now time.Time) bool {
	if lastLogin.IsZero() {
		return true
	}
	return now.Sub(lastLogin) >= t.delay
}

// Check parses the stored last_login_date and converts a violation into the
// uniform 401 the orchestrator returns. Unparseable or absent dates allow
// the attempt.
func (t *LoginThrottle) Check(lastLoginDate string, now time.Time) error {
	if lastLoginDate == "" {
		return nil
	}
	lastLogin, err := time.Parse(time.RFC3339, lastLoginDate)
	if err != nil {
		return nil
	}
	if !t.MayAttempt(lastLogin, now) {
		return types.NewServiceError("Too many login attempts", "Please retry later", http.StatusUnauthorized)
	}
	return nil
}
