package apiroutes

import (
	"github.com/gin-gonic/gin"
	"github.com/passlock/go-passlock-server/api"
	restinterceptors "github.com/passlock/go-passlock-server/api/interceptors"
	"github.com/passlock/go-passlock-server/global"
	"github.com/passlock/go-passlock-server/metrics"
	"github.com/passlock/go-passlock-server/repository"
	"github.com/passlock/go-passlock-server/services"
	"github.com/passlock/go-passlock-server/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// REST API routes
func ConfigRoutes(router *gin.Engine, dbSelector repository.DBSelector) *gin.Engine {
	// init metrics
	if global.Conf.Prometheus.Enabled {

		metrics.InitMetrics()

		authorized := router.Group("/metrics", gin.BasicAuth(gin.Accounts{
			global.Conf.Prometheus.Username: global.Conf.Prometheus.Password,
		}))

		authorized.GET("", gin.WrapH(promhttp.Handler()))
	}

	vaultConf := global.Conf.Vault
	cipher, cipherErr := util.NewCipher(vaultConf.EncryptionKeyHex, vaultConf.EncryptionIVHex, vaultConf.HashSalt)
	if cipherErr != nil {
		panic(cipherErr)
	}
	tokens := util.NewTokenService(vaultConf.TokenMasterSecret)
	challenges := util.NewPasskeyChallengeService(vaultConf.PasskeyChallengeSecret)
	totp := util.NewTotpService(vaultConf.TotpIssuer)
	throttle := services.NewLoginThrottle(vaultConf.LoginDelaySeconds)

	// SERVICE definitions
	activityService := services.NewActivityService(dbSelector, cipher)
	userService := services.NewUserService(dbSelector, cipher, tokens, challenges, totp, throttle, activityService, vaultConf.PublicKeySalt)
	accountService := services.NewAccountService(dbSelector, cipher)

	// API definitions
	accountApi := api.NewUserAccountApi(userService)
	vaultApi := api.NewVaultAccountApi(accountService, tokens)
	healthApi := api.NewHealthCheckAPI()

	router.GET("/api/v1/healthcheck", healthApi.HealthCheck)

	// PUBLIC API (login flow, rate limited per client fingerprint)
	publicApi := router.Group("/api", metrics.MetricsMiddleware(), restinterceptors.RateLimitMiddleware())
	{
		publicApi.POST("/v1/users/register", accountApi.Register)
		publicApi.POST("/v1/users/login", accountApi.RequestLogin)
		publicApi.POST("/v1/users/login/password", accountApi.VerifyPassword)
		publicApi.POST("/v1/users/login/otp", accountApi.VerifyOtp)
		publicApi.GET("/v1/users/login-passkey", accountApi.RequestLoginWithPasskey)
		publicApi.POST("/v1/users/login-passkey", accountApi.VerifyPasskey)
	}

	// AUTHORIZED API (requires a loggedIn session token)
	rootApi := router.Group("/api", metrics.MetricsMiddleware())
	{
		rootApi.GET("/v1/users", accountApi.GetInformation)
		rootApi.PUT("/v1/users", accountApi.UpdateUser)
		rootApi.GET("/v1/users/activity", accountApi.Activity)

		rootApi.GET("/v1/accounts", vaultApi.List)
		rootApi.GET("/v1/accounts/recent", vaultApi.Recents)
		rootApi.GET("/v1/accounts/count", vaultApi.Count)
		rootApi.GET("/v1/accounts/:id", vaultApi.Get)
		rootApi.POST("/v1/accounts", vaultApi.Create)
		rootApi.POST("/v1/accounts/enable-server-encryption", vaultApi.EnableServerEncryption)
		rootApi.PUT("/v1/accounts/:id", vaultApi.Update)
		rootApi.DELETE("/v1/accounts/:id", vaultApi.Delete)
	}

	return router
}
