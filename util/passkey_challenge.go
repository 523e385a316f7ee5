package util

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/passlock/go-passlock-server/types"
)

const passkeyChallengeExpiry = 5 * time.Minute

// PasskeyChallengeService issues and verifies the short-lived challenges of
// the passkey login ceremony. Challenges are signed with their own key, never
// the session token secret, and embed the requesting client's fingerprint so
// a captured challenge cannot be replayed from another origin.
type PasskeyChallengeService struct {
	secret []byte
}

func NewPasskeyChallengeService(challengeSecret string) *PasskeyChallengeService {
	return &PasskeyChallengeService{secret: []byte(challengeSecret)}
}

// IssuePasskeyChallenge signs a fresh challenge for the given client. The
// random salt keeps challenges unique and unpredictable.
func (ps *PasskeyChallengeService) IssuePasskeyChallenge(client types.Client) (string, error) {
	now := time.Now()
	claims := types.PasskeyChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(passkeyChallengeExpiry)),
		},
		Agent:   client.Agent,
		Referer: client.Referer,
		IP:      client.IP,
		Salt:    uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ps.secret)
}

// VerifyPasskeyChallenge checks signature and expiry and returns the
// fingerprint the challenge was issued for. Expired or malformed challenges
// fail with 401.
func (ps *PasskeyChallengeService) VerifyPasskeyChallenge(challenge string) (*types.Client, error) {
	claims := &types.PasskeyChallengeClaims{}
	token, err := jwt.ParseWithClaims(challenge, claims, func(t *jwt.Token) (interface{}, error) {
		return ps.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, types.NewServiceError("Error while verifying passkey challenge", err.Error(), http.StatusUnauthorized)
	}
	if !token.Valid {
		return nil, types.NewServiceError("Error while verifying passkey challenge", "invalid challenge", http.StatusUnauthorized)
	}
	client := claims.Client()
	return &client, nil
}
