package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-kit/log/level"
	"github.com/passlock/go-passlock-server/global"
	"github.com/passlock/go-passlock-server/repository"
	"github.com/passlock/go-passlock-server/types"
	"github.com/passlock/go-passlock-server/util"
)

// fakeUserUUID is the uuid baked into tokens issued for unknown emails. The
// login request path never reveals whether an email exists, so unknown
// callers get a real signed token carrying this placeholder identity.
const fakeUserUUID = "00000000-0000-0000-0000-000000000000"

const (
	verifyPasswordURL = "/api/v1/users/login/password"
	verifyOtpURL      = "/api/v1/users/login/otp"
	verifyPasskeyURL  = "/api/v1/users/login-passkey"
)

// UserService is the login orchestrator. It owns the step state machine
// (register, requestPassword, requestOtp, requestPasskey, loggedIn), decides
// which factors a user must present and issues the step-scoped tokens that
// carry login state between stateless requests.
type UserService struct {
	userRepo      repository.Repository
	cipher        *util.Cipher
	tokens        *util.TokenService
	challenges    *util.PasskeyChallengeService
	totp          *util.TotpService
	throttle      *LoginThrottle
	activity      *ActivityService
	publicKeySalt string
}

func NewUserService(
	dbSelector repository.DBSelector,
	cipher *util.Cipher,
	tokens *util.TokenService,
	challenges *util.PasskeyChallengeService,
	totp *util.TotpService,
	throttle *LoginThrottle,
	activity *ActivityService,
	publicKeySalt string,
) *UserService {
	db, err := dbSelector.ChooseDB(repository.Users)
	if err != nil {
		panic(err)
	}
	return &UserService{
		userRepo:      db,
		cipher:        cipher,
		tokens:        tokens,
		challenges:    challenges,
		totp:          totp,
		throttle:      throttle,
		activity:      activity,
		publicKeySalt: publicKeySalt,
	}
}

// identityFilter builds the encrypted equality filter for one user. Filters
// must carry already encrypted values since storage is encrypted at rest.
func (s *UserService) identityFilter(email, uuid string) (map[string]interface{}, error) {
	filter := map[string]interface{}{}
	if email != "" {
		encrypted, err := s.cipher.Encrypt(email)
		if err != nil {
			return nil, err
		}
		filter["email"] = encrypted
	}
	if uuid != "" {
		encrypted, err := s.cipher.Encrypt(uuid)
		if err != nil {
			return nil, err
		}
		filter["uuid"] = encrypted
	}
	return filter, nil
}

// fetchUser reads and decrypts one user record. Missing users come back as a
// 404 service error.
func (s *UserService) fetchUser(ctx context.Context, filter map[string]interface{}) (*types.User, error) {
	doc, err := s.userRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.NewServiceError("User not found", "User not found", http.StatusNotFound)
		}
		return nil, err
	}
	var user types.User
	if err := repository.MapToObject(doc, &user); err != nil {
		return nil, err
	}
	if err := s.cipher.DecryptFields(user.SensitiveFields()); err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates a new user. The TOTP secret is returned exactly once,
// here, so the caller can store it in their authenticator.
func (s *UserService) Register(input *types.InputRegister, client types.Client) (*types.RegisterResponse, error) {
	if input == nil || input.Email == "" || input.Password == "" {
		return nil, types.NewServiceError("Invalid user input", "Must provide an email and password", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.identityFilter(input.Email, "")
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindOne(ctx, filter); err == nil {
		return nil, types.NewServiceError("Error", "User already exists", http.StatusForbidden)
	} else if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	uuid := s.cipher.Hash(input.Email + input.Password)
	totpSecret, err := s.totp.GenerateTotpSecret(input.Email)
	if err != nil {
		return nil, err
	}
	publicEncryptionKey := util.GeneratePublicEncryptionKey(input.Email, input.Password, s.publicKeySalt)
	token, err := s.tokens.IssueUnauthorized(input.Email, uuid, types.StepRegister, client)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	user := types.User{
		UUID:                uuid,
		Email:               input.Email,
		Password:            s.cipher.Hash(input.Password),
		TotpSecret:          totpSecret,
		PublicEncryptionKey: publicEncryptionKey,
		Token:               token,
		CreatedDate:         now,
		LastUpdateDate:      now,
	}
	if err := s.cipher.EncryptFields(user.SensitiveFields()); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.InsertOne(ctx, &user); err != nil {
		return nil, types.NewServiceError("Failed to create new user", err.Error(), http.StatusForbidden)
	}

	return &types.RegisterResponse{
		UUID:                uuid,
		Email:               input.Email,
		Token:               token,
		TotpSecret:          totpSecret,
		PublicEncryptionKey: publicEncryptionKey,
		CreatedDate:         now,
	}, nil
}

// RequestLogin starts the login state machine: it decides which factors the
// caller must present and hands out the first step-scoped token. Unknown
// emails get the exact same response shape as a password-only user, backed
// by a real signed token, so the endpoint cannot be used for enumeration.
func (s *UserService) RequestLogin(input *types.InputLogin, client types.Client) (*types.RequestLoginResponse, error) {
	if input == nil || input.Email == "" {
		return nil, types.NewServiceError("Invalid user input", "Must provide an email", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.identityFilter(input.Email, "")
	if err != nil {
		return nil, err
	}
	user, err := s.fetchUser(ctx, filter)
	if err != nil {
		var svcErr *types.ServiceError
		if !errors.As(err, &svcErr) || svcErr.Code != http.StatusNotFound {
			return nil, err
		}
		return s.fakeLoginResponse(input.Email, client)
	}

	if user.HasPasskey() {
		token, err := s.tokens.IssueUnauthorized(user.Email, user.UUID, types.StepRequestPasskey, client)
		if err != nil {
			return nil, err
		}
		challenge, err := s.challenges.IssuePasskeyChallenge(client)
		if err != nil {
			return nil, err
		}
		return &types.RequestLoginResponse{
			Email:              user.Email,
			Token:              token,
			IsPasswordRequired: false,
			IsOtpRequired:      user.IsMFAEnabled,
			HasPasskey:         true,
			PasskeyChallenge:   challenge,
			Next:               types.NextStep{Step: types.StepRequestPasskey, URL: verifyPasskeyURL},
		}, nil
	}

	token, err := s.tokens.IssueUnauthorized(user.Email, user.UUID, types.StepRequestPassword, client)
	if err != nil {
		return nil, err
	}
	return &types.RequestLoginResponse{
		Email:              user.Email,
		Token:              token,
		IsPasswordRequired: true,
		IsOtpRequired:      user.IsMFAEnabled,
		HasPasskey:         false,
		Next:               types.NextStep{Step: types.StepRequestPassword, URL: verifyPasswordURL},
	}, nil
}

// fakeLoginResponse fabricates a plausible password-only login response for
// an email that has no account. The token is genuinely signed, carries the
// placeholder uuid and can only ever fail at the password step.
func (s *UserService) fakeLoginResponse(email string, client types.Client) (*types.RequestLoginResponse, error) {
	token, err := s.tokens.IssueUnauthorized(email, fakeUserUUID, types.StepRequestPassword, client)
	if err != nil {
		return nil, err
	}
	return &types.RequestLoginResponse{
		Email:              email,
		Token:              token,
		IsPasswordRequired: true,
		IsOtpRequired:      true,
		HasPasskey:         false,
		Next:               types.NextStep{Step: types.StepRequestPassword, URL: verifyPasswordURL},
	}, nil
}

// consumeStepToken verifies a step-scoped token, checks it was issued for
// the expected step and for the calling client.
func (s *UserService) consumeStepToken(authorization string, step types.LoginStep, client types.Client) (*types.AccessTokenClaims, error) {
	claims, err := s.tokens.Verify(authorization)
	if err != nil {
		return nil, err
	}
	if claims.Step != step {
		return nil, types.NewServiceError("Error while verifying token", "Unexpected login step", http.StatusUnauthorized)
	}
	if !claims.Client().Matches(client) {
		return nil, types.NewServiceError("Error while verifying token", "Token was issued for a different client", http.StatusUnauthorized)
	}
	return claims, nil
}

// VerifyPassword consumes a requestPassword token and checks the password.
// Users with MFA enabled get a requestOtp token instead of a session.
func (s *UserService) VerifyPassword(authorization string, input *types.InputPassword, client types.Client) (*types.LoginOutcome, error) {
	if input == nil || input.Password == "" {
		return nil, types.NewServiceError("Invalid user input", "Must provide a password", http.StatusBadRequest)
	}
	claims, err := s.consumeStepToken(authorization, types.StepRequestPassword, client)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.identityFilter(claims.Email, claims.UUID)
	if err != nil {
		return nil, err
	}
	user, err := s.fetchUser(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.throttle.Check(user.LastLoginDate, time.Now()); err != nil {
		return nil, err
	}
	if s.cipher.Hash(input.Password) != user.Password {
		return nil, types.NewServiceError("Error while verifying password", "Invalid credentials", http.StatusUnauthorized)
	}

	if user.IsMFAEnabled {
		otpToken, err := s.tokens.IssueUnauthorized(user.Email, user.UUID, types.StepRequestOtp, client)
		if err != nil {
			return nil, err
		}
		return &types.LoginOutcome{OtpRequired: &types.OtpRequiredResponse{
			Email: user.Email,
			Token: otpToken,
			Next:  types.NextStep{Step: types.StepRequestOtp, URL: verifyOtpURL},
		}}, nil
	}

	auth, err := s.finalize(ctx, user, client, input.ExtendedSession)
	if err != nil {
		return nil, err
	}
	return &types.LoginOutcome{Auth: auth}, nil
}

// VerifyOtp consumes a requestOtp token and checks the one time code against
// the user's TOTP secret.
func (s *UserService) VerifyOtp(authorization string, input *types.InputOtp, client types.Client) (*types.AuthResponse, error) {
	if input == nil || input.TotpToken == "" {
		return nil, types.NewServiceError("Invalid user input", "Must provide a TOTP token", http.StatusBadRequest)
	}
	claims, err := s.consumeStepToken(authorization, types.StepRequestOtp, client)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.identityFilter(claims.Email, claims.UUID)
	if err != nil {
		return nil, err
	}
	user, err := s.fetchUser(ctx, filter)
	if err != nil {
		return nil, err
	}

	valid, err := s.totp.IsTotpValid(input.TotpToken, user.TotpSecret)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, types.NewServiceError("Invalid user input", "Invalid TOTP token", http.StatusUnauthorized)
	}
	return s.finalize(ctx, user, client, input.ExtendedSession)
}

// RequestLoginWithPasskey hands out a fresh challenge for the passkey
// ceremony. No identity is needed; the assertion names the user.
func (s *UserService) RequestLoginWithPasskey(client types.Client) (*types.PasskeyChallengeResponse, error) {
	challenge, err := s.challenges.IssuePasskeyChallenge(client)
	if err != nil {
		return nil, err
	}
	return &types.PasskeyChallengeResponse{Challenge: challenge}, nil
}

// VerifyPasskey finishes a passkey login. The echoed challenge must verify
// and must have been issued to the same client; the asserted credential must
// be registered on the user named by the assertion's user handle. Passkey
// logins are not throttled.
func (s *UserService) VerifyPasskey(input *types.InputPasskeyLogin, client types.Client) (*types.AuthResponse, error) {
	if input == nil || input.Challenge == "" || input.Assertion == nil {
		return nil, types.NewServiceError("Invalid user input", "Must provide a passkey", http.StatusBadRequest)
	}
	issuedFor, err := s.challenges.VerifyPasskeyChallenge(input.Challenge)
	if err != nil {
		return nil, err
	}
	if !issuedFor.Matches(client) {
		return nil, types.NewServiceError("Error while verifying passkey challenge", "Challenge was issued for a different client", http.StatusUnauthorized)
	}

	userHandle := string(input.Assertion.AssertionResponse.UserHandle)
	if userHandle == "" {
		return nil, types.NewServiceError("Invalid user input", "Must provide a passkey", http.StatusBadRequest)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.identityFilter("", userHandle)
	if err != nil {
		return nil, err
	}
	user, err := s.fetchUser(ctx, filter)
	if err != nil {
		return nil, err
	}
	if user.FindPasskey(input.Assertion.ID) == nil {
		return nil, types.NewServiceError("Error", "Invalid passkey", http.StatusUnauthorized)
	}
	return s.finalize(ctx, user, client, input.ExtendedSession)
}

// finalize is the shared terminal action of every successful login path: it
// issues the authorized session token, persists it together with the login
// timestamp and records the activity entry. Activity logging is best effort
// and never fails the login.
func (s *UserService) finalize(ctx context.Context, user *types.User, client types.Client, extended bool) (*types.AuthResponse, error) {
	token, err := s.tokens.IssueAuthorized(user.Email, user.UUID, client, extended)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	filter, err := s.identityFilter(user.Email, user.UUID)
	if err != nil {
		return nil, err
	}
	update := map[string]interface{}{
		"token":           token,
		"last_login_date": now,
	}
	if err := s.userRepo.UpdateOne(ctx, filter, update); err != nil {
		level.Error(global.Logger).Log("msg", "failed to persist session token", "error", err)
		return nil, err
	}

	s.activity.Record(user.UUID, "login", client)

	return &types.AuthResponse{
		Email:        user.Email,
		UUID:         user.UUID,
		Token:        token,
		AvatarURL:    user.AvatarURL,
		IsMFAEnabled: user.IsMFAEnabled,
		IsAuthorized: true,
		Passkeys:     user.Passkeys,
	}, nil
}

// requireAuthorized verifies a session token and rejects anything that is
// not a terminal loggedIn token.
func (s *UserService) requireAuthorized(authorization string) (*types.AccessTokenClaims, error) {
	claims, err := s.tokens.Verify(authorization)
	if err != nil {
		return nil, err
	}
	if !claims.IsAuthorized || claims.Step != types.StepLoggedIn {
		return nil, types.NewServiceError("Error while verifying token", "Not an authorized session", http.StatusUnauthorized)
	}
	return claims, nil
}

// GetInformation returns the authenticated user's profile. The TOTP secret
// is never part of it.
func (s *UserService) GetInformation(authorization string) (*types.UserInfoResponse, error) {
	claims, err := s.requireAuthorized(authorization)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.identityFilter(claims.Email, claims.UUID)
	if err != nil {
		return nil, err
	}
	user, err := s.fetchUser(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &types.UserInfoResponse{
		Email:          user.Email,
		UUID:           user.UUID,
		AvatarURL:      user.AvatarURL,
		IsMFAEnabled:   user.IsMFAEnabled,
		Passkeys:       user.Passkeys,
		CreatedDate:    user.CreatedDate,
		LastUpdateDate: user.LastUpdateDate,
		LastLoginDate:  user.LastLoginDate,
	}, nil
}

// Update applies a profile change for the authenticated user: a new password
// (stored as a fresh salted hash), avatar or passkey list. Unset fields keep
// their stored values.
func (s *UserService) Update(authorization string, input *types.InputUserUpdate) (*types.UserInfoResponse, error) {
	claims, err := s.requireAuthorized(authorization)
	if err != nil {
		return nil, err
	}
	if input == nil {
		return nil, types.NewServiceError("Invalid user input", "Must provide an update payload", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.identityFilter(claims.Email, claims.UUID)
	if err != nil {
		return nil, err
	}
	user, err := s.fetchUser(ctx, filter)
	if err != nil {
		return nil, err
	}

	if input.Password != "" {
		user.Password = s.cipher.Hash(input.Password)
	}
	if input.AvatarURL != "" {
		user.AvatarURL = input.AvatarURL
	}
	if input.Passkeys != nil {
		user.Passkeys = input.Passkeys
	}
	user.LastUpdateDate = time.Now().UTC().Format(time.RFC3339)

	updated := *user
	updated.ID = ""
	if err := s.cipher.EncryptFields(updated.SensitiveFields()); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateOne(ctx, filter, &updated); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.NewServiceError("User not found", "User not found", http.StatusNotFound)
		}
		return nil, types.NewServiceError("Error", "Failed to update user", http.StatusGone)
	}

	return &types.UserInfoResponse{
		Email:          user.Email,
		UUID:           user.UUID,
		AvatarURL:      user.AvatarURL,
		IsMFAEnabled:   user.IsMFAEnabled,
		Passkeys:       user.Passkeys,
		CreatedDate:    user.CreatedDate,
		LastUpdateDate: user.LastUpdateDate,
		LastLoginDate:  user.LastLoginDate,
	}, nil
}

// Activity returns the authenticated user's recent login activity.
func (s *UserService) Activity(authorization string) ([]*types.ActivityLogEntry, error) {
	claims, err := s.requireAuthorized(authorization)
	if err != nil {
		return nil, err
	}
	return s.activity.List(claims.UUID)
}
