package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apiutil "github.com/passlock/go-passlock-server/api/util"
	"github.com/passlock/go-passlock-server/metrics"
	"github.com/passlock/go-passlock-server/services"
	"github.com/passlock/go-passlock-server/types"
)

type UserAccountApi struct {
	userService *services.UserService
	validate    *validator.Validate
}

func NewUserAccountApi(userService *services.UserService) *UserAccountApi {
	return &UserAccountApi{
		userService: userService,
		validate:    validator.New(),
	}
}

// Register a new user
// @Summary Register a new user
// @Description Creates a user and returns the one-time-visible TOTP secret
// @Tags User Account
// @Param registration body types.InputRegister true "registration input"
// @Success 201 {object} types.RegisterResponse
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 403 {object} api.ApiError "user already exists"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Router /api/v1/users/register [post]
func (ua *UserAccountApi) Register(c *gin.Context) {
	var input types.InputRegister
	if !bindAndValidate(c, ua.validate, &input) {
		return
	}
	client := apiutil.ClientFromContext(c)
	response, err := ua.userService.Register(&input, client)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	metrics.RegistrationMetricsCount.Inc()
	c.JSON(http.StatusCreated, response)
}

// Request a login
// @Summary Request a login
// @Description Starts the login flow and returns the first step-scoped token
// @Tags User Account
// @Param login body types.InputLogin true "login input"
// @Success 200 {object} types.RequestLoginResponse
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Router /api/v1/users/login [post]
func (ua *UserAccountApi) RequestLogin(c *gin.Context) {
	var input types.InputLogin
	if !bindAndValidate(c, ua.validate, &input) {
		return
	}
	client := apiutil.ClientFromContext(c)
	response, err := ua.userService.RequestLogin(&input, client)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Verify a password
// @Summary Verify a password
// @Description Consumes a requestPassword token; returns a session or a requestOtp token
// @Tags User Account
// @Security Bearer
// @Param password body types.InputPassword true "password input"
// @Success 200 {object} types.AuthResponse
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 401 {object} api.ApiError "invalid credentials, step or client"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Router /api/v1/users/login/password [post]
func (ua *UserAccountApi) VerifyPassword(c *gin.Context) {
	var input types.InputPassword
	if !bindAndValidate(c, ua.validate, &input) {
		return
	}
	client := apiutil.ClientFromContext(c)
	outcome, err := ua.userService.VerifyPassword(c.GetHeader("Authorization"), &input, client)
	if err != nil {
		metrics.LoginFailedMetricsCount.Inc()
		AbortWithError(c, err)
		return
	}
	if outcome.Auth != nil {
		metrics.LoginSuccessMetricsCount.Inc()
	}
	c.JSON(http.StatusOK, outcome.Payload())
}

// Verify a one time code
// @Summary Verify a one time code
// @Description Consumes a requestOtp token and finishes an MFA login
// @Tags User Account
// @Security Bearer
// @Param otp body types.InputOtp true "one time code input"
// @Success 200 {object} types.AuthResponse
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 401 {object} api.ApiError "invalid code, step or client"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Router /api/v1/users/login/otp [post]
func (ua *UserAccountApi) VerifyOtp(c *gin.Context) {
	var input types.InputOtp
	if !bindAndValidate(c, ua.validate, &input) {
		return
	}
	client := apiutil.ClientFromContext(c)
	auth, err := ua.userService.VerifyOtp(c.GetHeader("Authorization"), &input, client)
	if err != nil {
		metrics.LoginFailedMetricsCount.Inc()
		AbortWithError(c, err)
		return
	}
	metrics.LoginSuccessMetricsCount.Inc()
	c.JSON(http.StatusOK, auth)
}

// Request a passkey login
// @Summary Request a passkey login
// @Description Returns a fresh client-bound challenge for the passkey ceremony
// @Tags User Account
// @Success 200 {object} types.PasskeyChallengeResponse
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Produce json
// @Router /api/v1/users/login-passkey [get]
func (ua *UserAccountApi) RequestLoginWithPasskey(c *gin.Context) {
	client := apiutil.ClientFromContext(c)
	response, err := ua.userService.RequestLoginWithPasskey(client)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Verify a passkey assertion
// @Summary Verify a passkey assertion
// @Description Finishes a passkey login with the echoed challenge and assertion
// @Tags User Account
// @Param passkey body types.InputPasskeyLogin true "challenge and assertion"
// @Success 200 {object} types.AuthResponse
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 401 {object} api.ApiError "invalid challenge, client or passkey"
// @Failure 429 {object} api.ApiError "rate limit exceeded"
// @Accept json
// @Produce json
// @Router /api/v1/users/login-passkey [post]
func (ua *UserAccountApi) VerifyPasskey(c *gin.Context) {
	var input types.InputPasskeyLogin
	if !bindAndValidate(c, ua.validate, &input) {
		return
	}
	client := apiutil.ClientFromContext(c)
	auth, err := ua.userService.VerifyPasskey(&input, client)
	if err != nil {
		metrics.LoginFailedMetricsCount.Inc()
		AbortWithError(c, err)
		return
	}
	metrics.LoginSuccessMetricsCount.Inc()
	c.JSON(http.StatusOK, auth)
}

// Get user information
// @Summary Get user information
// @Description Returns the authenticated user's profile
// @Tags User Account
// @Security Bearer
// @Success 200 {object} types.UserInfoResponse
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Produce json
// @Router /api/v1/users [get]
func (ua *UserAccountApi) GetInformation(c *gin.Context) {
	response, err := ua.userService.GetInformation(c.GetHeader("Authorization"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Update user
// @Summary Update user
// @Description Updates the authenticated user's password, avatar or passkeys
// @Tags User Account
// @Security Bearer
// @Param update body types.InputUserUpdate true "update payload"
// @Success 200 {object} types.UserInfoResponse
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Accept json
// @Produce json
// @Router /api/v1/users [put]
func (ua *UserAccountApi) UpdateUser(c *gin.Context) {
	var input types.InputUserUpdate
	if err := c.ShouldBindJSON(&input); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return
	}
	response, err := ua.userService.Update(c.GetHeader("Authorization"), &input)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// List login activity
// @Summary List login activity
// @Description Returns the authenticated user's recent login activity
// @Tags User Account
// @Security Bearer
// @Success 200 {object} []types.ActivityLogEntry
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Produce json
// @Router /api/v1/users/activity [get]
func (ua *UserAccountApi) Activity(c *gin.Context) {
	entries, err := ua.userService.Activity(c.GetHeader("Authorization"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
