package util

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/passlock/go-passlock-server/types"
)

const (
	sessionTokenExpiry  = 72 * time.Hour
	extendedTokenExpiry = 90 * 24 * time.Hour
)

// TokenService issues and verifies the signed session tokens that carry the
// login state machine between stateless requests. Tokens are HS256 JWTs bound
// to the caller's fingerprint at issuance; comparing that fingerprint against
// the next request is the orchestrator's job, not this service's.
type TokenService struct {
	secret []byte
}

func NewTokenService(masterSecret string) *TokenService {
	return &TokenService{secret: []byte(masterSecret)}
}

func (ts *TokenService) issue(claims types.AccessTokenClaims, expiry time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiry))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
}

// IssueUnauthorized signs an intermediate, step-scoped token. The step in
// progress is recorded in the claims; isAuthorized stays false.
func (ts *TokenService) IssueUnauthorized(email, uuid string, step types.LoginStep, client types.Client) (string, error) {
	return ts.issue(types.AccessTokenClaims{
		Email:        email,
		UUID:         uuid,
		Step:         step,
		IsAuthorized: false,
		Agent:        client.Agent,
		Referer:      client.Referer,
		IP:           client.IP,
	}, sessionTokenExpiry)
}

// IssueAuthorized signs the terminal loggedIn token. Extended sessions get
// the 90 day expiry, normal ones 72 hours.
func (ts *TokenService) IssueAuthorized(email, uuid string, client types.Client, extended bool) (string, error) {
	expiry := sessionTokenExpiry
	if extended {
		expiry = extendedTokenExpiry
	}
	return ts.issue(types.AccessTokenClaims{
		Email:        email,
		UUID:         uuid,
		Step:         types.StepLoggedIn,
		IsAuthorized: true,
		Agent:        client.Agent,
		Referer:      client.Referer,
		IP:           client.IP,
	}, expiry)
}

// Verify strips the bearer prefix from an Authorization header, checks the
// signature and expiry and returns the claims. Expired tokens are reported
// with their original expiry timestamp so clients can tell a stale session
// from a forged one.
func (ts *TokenService) Verify(authorization string) (*types.AccessTokenClaims, error) {
	accessToken := stripBearer(authorization)
	if accessToken == "" {
		return nil, types.NewServiceError("Error while verifying token", "Access token not found", http.StatusUnauthorized)
	}

	claims := &types.AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		return ts.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason := "Token expired"
			if claims.ExpiresAt != nil {
				reason = "Expired at " + claims.ExpiresAt.Time.UTC().Format(time.RFC3339)
			}
			return nil, types.NewServiceError("Token expired", reason, http.StatusUnauthorized)
		}
		return nil, types.NewServiceError("Error while verifying token", err.Error(), http.StatusUnauthorized)
	}
	if !token.Valid {
		return nil, types.NewServiceError("Error while verifying token", "invalid token", http.StatusUnauthorized)
	}
	return claims, nil
}

func stripBearer(authorization string) string {
	if authorization == "" {
		return ""
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
