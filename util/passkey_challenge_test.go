package util

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/passlock/go-passlock-server/types"
	"github.com/tj/assert"
)

func TestPasskeyChallengeRoundTrip(t *testing.T) {
	ps := NewPasskeyChallengeService("challenge-secret")
	challenge, err := ps.IssuePasskeyChallenge(testClient)
	if err != nil {
		t.Fatal(err)
	}

	client, err := ps.VerifyPasskeyChallenge(challenge)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, client.Matches(testClient))
}

func TestPasskeyChallengesAreUnique(t *testing.T) {
	ps := NewPasskeyChallengeService("challenge-secret")
	first, err := ps.IssuePasskeyChallenge(testClient)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ps.IssuePasskeyChallenge(testClient)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotEqual(t, first, second)
}

func TestPasskeyChallengeRejectsForeignKey(t *testing.T) {
	ps := NewPasskeyChallengeService("challenge-secret")
	other := NewPasskeyChallengeService("session-secret")

	challenge, err := other.IssuePasskeyChallenge(testClient)
	if err != nil {
		t.Fatal(err)
	}
	_, err = ps.VerifyPasskeyChallenge(challenge)
	if err == nil {
		t.Fatal("expected challenge signed with another key to fail")
	}
	assert.Equal(t, http.StatusUnauthorized, types.AsServiceError(err).Code)
}

func TestPasskeyChallengeRejectsExpired(t *testing.T) {
	secret := "challenge-secret"
	ps := NewPasskeyChallengeService(secret)

	expired := types.PasskeyChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-10 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-5 * time.Minute)),
		},
		Agent:   testClient.Agent,
		Referer: testClient.Referer,
		IP:      testClient.IP,
		Salt:    "salt",
	}
	challenge, err := jwt.NewWithClaims(jwt.SigningMethodHS256, expired).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	_, err = ps.VerifyPasskeyChallenge(challenge)
	if err == nil {
		t.Fatal("expected expired challenge to be rejected")
	}
	assert.Equal(t, http.StatusUnauthorized, types.AsServiceError(err).Code)
}
