package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/passlock/go-passlock-server/repository"
	"github.com/passlock/go-passlock-server/types"
	"github.com/passlock/go-passlock-server/util"
	"github.com/pquerna/otp/totp"
	"github.com/tj/assert"
)

const (
	testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testIVHex  = "000102030405060708090a0b0c0d0e0f"
	testSalt   = "pepper"
)

var testClient = types.Client{
	Agent:   "Mozilla/5.0",
	Referer: "https://vault.example.com",
	IP:      "203.0.113.7",
}

type testEnv struct {
	users    *repository.MockRepository
	cipher   *util.Cipher
	tokens   *util.TokenService
	userSvc  *UserService
	activity *ActivityService
}

func newTestEnv(t *testing.T) *testEnv {
	cipher, err := util.NewCipher(testKeyHex, testIVHex, testSalt)
	if err != nil {
		t.Fatal(err)
	}
	users := repository.NewMockRepository(repository.Users)
	selector := repository.NewSelector()
	selector.AddDB(users)
	selector.AddDB(repository.NewMockRepository(repository.Accounts))
	selector.AddDB(repository.NewMockRepository(repository.UserActivities))

	tokens := util.NewTokenService("token-master-secret")
	challenges := util.NewPasskeyChallengeService("challenge-secret")
	totpSvc := util.NewTotpService("passlock")
	throttle := NewLoginThrottle(300)
	activity := NewActivityService(selector, cipher)

	userSvc := NewUserService(selector, cipher, tokens, challenges, totpSvc, throttle, activity, "public-key-salt")
	return &testEnv{
		users:    users,
		cipher:   cipher,
		tokens:   tokens,
		userSvc:  userSvc,
		activity: activity,
	}
}

func (e *testEnv) register(t *testing.T, email, password string) *types.RegisterResponse {
	response, err := e.userSvc.Register(&types.InputRegister{Email: email, Password: password}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	return response
}

// patchUser mutates the stored user document directly, bypassing the service
// layer, for flags the public API does not expose.
func (e *testEnv) patchUser(t *testing.T, email string, patch map[string]interface{}) {
	encryptedEmail, err := e.cipher.Encrypt(email)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.users.UpdateOne(context.Background(), map[string]interface{}{"email": encryptedEmail}, patch); err != nil {
		t.Fatal(err)
	}
}

func statusOf(t *testing.T, err error) int {
	if err == nil {
		t.Fatal("expected an error")
	}
	return types.AsServiceError(err).Code
}

func TestRegisterReturnsSecretsOnce(t *testing.T) {
	env := newTestEnv(t)
	response := env.register(t, "alice@example.com", "hunter2")

	assert.Equal(t, "alice@example.com", response.Email)
	assert.NotEmpty(t, response.UUID)
	assert.NotEmpty(t, response.Token)
	assert.NotEmpty(t, response.TotpSecret)
	assert.NotEmpty(t, response.PublicEncryptionKey)

	claims, err := env.tokens.Verify("Bearer " + response.Token)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, types.StepRegister, claims.Step)
	assert.False(t, claims.IsAuthorized)
}

func TestRegisterStoresEncryptedFields(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	// the raw document must not contain the plaintext email
	_, err := env.users.FindOne(context.Background(), map[string]interface{}{"email": "alice@example.com"})
	assert.Equal(t, types.ErrNotFound, err)

	encryptedEmail, err := env.cipher.Encrypt("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := env.users.FindOne(context.Background(), map[string]interface{}{"email": encryptedEmail})
	if err != nil {
		t.Fatal(err)
	}
	assert.NotEqual(t, "alice@example.com", doc["email"])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	_, err := env.userSvc.Register(&types.InputRegister{Email: "alice@example.com", Password: "other-password"}, testClient)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestPasswordLoginHappyPath(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, login.IsPasswordRequired)
	assert.False(t, login.IsOtpRequired)
	assert.False(t, login.HasPasskey)
	assert.Equal(t, types.StepRequestPassword, login.Next.Step)

	outcome, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Auth == nil {
		t.Fatal("expected a finished session, got an MFA step")
	}
	assert.True(t, outcome.Auth.IsAuthorized)
	assert.Equal(t, "alice@example.com", outcome.Auth.Email)

	claims, err := env.tokens.Verify("Bearer " + outcome.Auth.Token)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, types.StepLoggedIn, claims.Step)
	assert.True(t, claims.IsAuthorized)
}

func TestRequestLoginUnknownEmailLooksReal(t *testing.T) {
	env := newTestEnv(t)

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "nobody@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	// same shape and step as a password-only user
	assert.True(t, login.IsPasswordRequired)
	assert.False(t, login.HasPasskey)
	assert.Empty(t, login.PasskeyChallenge)
	assert.Equal(t, types.StepRequestPassword, login.Next.Step)

	// the token is genuinely signed and carries the placeholder uuid
	claims, err := env.tokens.Verify("Bearer " + login.Token)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, fakeUserUUID, claims.UUID)

	// the password step can only ever fail
	_, err = env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "anything"}, testClient)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestVerifyPasswordWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "wrong"}, testClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	// failed guesses do not advance the throttle window
	outcome, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotNil(t, outcome.Auth)
}

func TestStepGating(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}

	// a requestPassword token is not accepted by the otp step
	_, err = env.userSvc.VerifyOtp("Bearer "+login.Token, &types.InputOtp{TotpToken: "123456"}, testClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	// nor is an authorized session token accepted by the password step
	outcome, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.userSvc.VerifyPassword("Bearer "+outcome.Auth.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestFingerprintMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}

	otherClient := types.Client{Agent: "curl/8.0", Referer: "", IP: "198.51.100.1"}
	_, err = env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, otherClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestThrottleBlocksRapidSuccessiveLogins(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient); err != nil {
		t.Fatal(err)
	}

	// second password verification inside the delay window
	login, err = env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.Equal(t, "Too many login attempts", types.AsServiceError(err).Message)
}

func TestMfaLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "alice@example.com", "hunter2")
	env.patchUser(t, "alice@example.com", map[string]interface{}{"isMFAEnabled": true})

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, login.IsOtpRequired)

	outcome, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.OtpRequired == nil {
		t.Fatal("expected an otp step, got a finished session")
	}
	assert.Equal(t, types.StepRequestOtp, outcome.OtpRequired.Next.Step)

	// wrong code first
	_, err = env.userSvc.VerifyOtp("Bearer "+outcome.OtpRequired.Token, &types.InputOtp{TotpToken: "000000"}, testClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	code, err := totp.GenerateCode(registered.TotpSecret, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	auth, err := env.userSvc.VerifyOtp("Bearer "+outcome.OtpRequired.Token, &types.InputOtp{TotpToken: code}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, auth.IsAuthorized)
	assert.True(t, auth.IsMFAEnabled)
}

func passkeyAssertion(credentialID, userHandle string) *protocol.CredentialAssertionResponse {
	return &protocol.CredentialAssertionResponse{
		PublicKeyCredential: protocol.PublicKeyCredential{
			Credential: protocol.Credential{ID: credentialID, Type: "public-key"},
		},
		AssertionResponse: protocol.AuthenticatorAssertionResponse{
			UserHandle: protocol.URLEncodedBase64(userHandle),
		},
	}
}

func TestPasskeyLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "alice@example.com", "hunter2")
	env.patchUser(t, "alice@example.com", map[string]interface{}{
		"passkeys": []map[string]interface{}{{"credentialId": "cred-1", "displayName": "laptop"}},
	})

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, login.HasPasskey)
	assert.False(t, login.IsPasswordRequired)
	assert.NotEmpty(t, login.PasskeyChallenge)
	assert.Equal(t, types.StepRequestPasskey, login.Next.Step)

	auth, err := env.userSvc.VerifyPasskey(&types.InputPasskeyLogin{
		Challenge: login.PasskeyChallenge,
		Assertion: passkeyAssertion("cred-1", registered.UUID),
	}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	assert.True(t, auth.IsAuthorized)
	assert.Equal(t, "alice@example.com", auth.Email)
}

func TestPasskeyChallengeBoundToClient(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "alice@example.com", "hunter2")
	env.patchUser(t, "alice@example.com", map[string]interface{}{
		"passkeys": []map[string]interface{}{{"credentialId": "cred-1", "displayName": "laptop"}},
	})

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}

	otherClient := types.Client{Agent: "curl/8.0", Referer: "", IP: "198.51.100.1"}
	_, err = env.userSvc.VerifyPasskey(&types.InputPasskeyLogin{
		Challenge: login.PasskeyChallenge,
		Assertion: passkeyAssertion("cred-1", registered.UUID),
	}, otherClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestPasskeyUnknownCredentialRejected(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "alice@example.com", "hunter2")
	env.patchUser(t, "alice@example.com", map[string]interface{}{
		"passkeys": []map[string]interface{}{{"credentialId": "cred-1", "displayName": "laptop"}},
	})

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.userSvc.VerifyPasskey(&types.InputPasskeyLogin{
		Challenge: login.PasskeyChallenge,
		Assertion: passkeyAssertion("cred-unknown", registered.UUID),
	}, testClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestGetInformationRequiresAuthorizedToken(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	// a step token is not an authorized session
	_, err = env.userSvc.GetInformation("Bearer " + login.Token)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	outcome, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	info, err := env.userSvc.GetInformation("Bearer " + outcome.Auth.Token)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "alice@example.com", info.Email)
	assert.NotEmpty(t, info.LastLoginDate)
}

func TestUpdateChangesPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "hunter2")

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	outcome, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	if err != nil {
		t.Fatal(err)
	}

	_, err = env.userSvc.Update("Bearer "+outcome.Auth.Token, &types.InputUserUpdate{Password: "correct-horse-battery"})
	if err != nil {
		t.Fatal(err)
	}

	// old password no longer works, new one does (outside the throttle window)
	env.patchUser(t, "alice@example.com", map[string]interface{}{
		"last_login_date": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
	})
	login, err = env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	login, err = env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	verified, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "correct-horse-battery"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	assert.NotNil(t, verified.Auth)
}

func TestSuccessfulLoginRecordsActivity(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "alice@example.com", "hunter2")

	login, err := env.userSvc.RequestLogin(&types.InputLogin{Email: "alice@example.com"}, testClient)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.userSvc.VerifyPassword("Bearer "+login.Token, &types.InputPassword{Password: "hunter2"}, testClient); err != nil {
		t.Fatal(err)
	}

	entries, err := env.activity.List(registered.UUID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, "login", entries[0].Action)
	assert.Equal(t, testClient.Agent, entries[0].Agent)
}
