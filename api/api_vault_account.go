package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/passlock/go-passlock-server/metrics"
	"github.com/passlock/go-passlock-server/services"
	"github.com/passlock/go-passlock-server/types"
	"github.com/passlock/go-passlock-server/util"
)

type VaultAccountApi struct {
	accountService *services.AccountService
	tokens         *util.TokenService
	validate       *validator.Validate
}

func NewVaultAccountApi(accountService *services.AccountService, tokens *util.TokenService) *VaultAccountApi {
	return &VaultAccountApi{
		accountService: accountService,
		tokens:         tokens,
		validate:       validator.New(),
	}
}

// authorizedUUID resolves the owning uuid from an authorized session token.
func (va *VaultAccountApi) authorizedUUID(c *gin.Context) (string, bool) {
	claims, err := va.tokens.Verify(c.GetHeader("Authorization"))
	if err != nil {
		AbortWithError(c, err)
		return "", false
	}
	if !claims.IsAuthorized {
		ApiErrorf(c, http.StatusUnauthorized, "not an authorized session")
		return "", false
	}
	return claims.UUID, true
}

// List vault entries
// @Summary List vault entries
// @Description Returns one page of the user's vault entries
// @Tags Vault
// @Security Bearer
// @Param limit query int false "page size" default(50)
// @Param page query int false "zero based page" default(0)
// @Success 200 {object} types.AccountsPage
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Produce json
// @Router /api/v1/accounts [get]
func (va *VaultAccountApi) List(c *gin.Context) {
	uuid, ok := va.authorizedUUID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	result, err := va.accountService.FindAll(uuid, limit, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// List recently opened vault entries
// @Summary List recently opened vault entries
// @Description Returns the ten most recently opened entries
// @Tags Vault
// @Security Bearer
// @Success 200 {object} []types.Account
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Produce json
// @Router /api/v1/accounts/recent [get]
func (va *VaultAccountApi) Recents(c *gin.Context) {
	uuid, ok := va.authorizedUUID(c)
	if !ok {
		return
	}
	accounts, err := va.accountService.FindRecents(uuid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// Count vault entries
// @Summary Count vault entries
// @Tags Vault
// @Security Bearer
// @Success 200 {object} map[string]int64
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Produce json
// @Router /api/v1/accounts/count [get]
func (va *VaultAccountApi) Count(c *gin.Context) {
	uuid, ok := va.authorizedUUID(c)
	if !ok {
		return
	}
	count, err := va.accountService.Count(uuid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalAccounts": count})
}

// Get one vault entry
// @Summary Get one vault entry
// @Tags Vault
// @Security Bearer
// @Param id path string true "account id"
// @Success 200 {object} types.Account
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Failure 404 {object} api.ApiError "no account found"
// @Produce json
// @Router /api/v1/accounts/{id} [get]
func (va *VaultAccountApi) Get(c *gin.Context) {
	uuid, ok := va.authorizedUUID(c)
	if !ok {
		return
	}
	account, err := va.accountService.FindOne(c.Param("id"), uuid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// Create a vault entry
// @Summary Create a vault entry
// @Tags Vault
// @Security Bearer
// @Param account body types.Account true "vault entry"
// @Success 201 {object} types.Account
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Accept json
// @Produce json
// @Router /api/v1/accounts [post]
func (va *VaultAccountApi) Create(c *gin.Context) {
	uuid, ok := va.authorizedUUID(c)
	if !ok {
		return
	}
	var account types.Account
	if err := c.ShouldBindJSON(&account); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := va.accountService.Create(&account, uuid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	metrics.VaultEntriesCreatedMetricsCount.Inc()
	c.JSON(http.StatusCreated, created)
}

// Update a vault entry
// @Summary Update a vault entry
// @Tags Vault
// @Security Bearer
// @Param id path string true "account id"
// @Param account body types.Account true "vault entry"
// @Success 200 {object} types.Account
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Failure 404 {object} api.ApiError "no account found"
// @Accept json
// @Produce json
// @Router /api/v1/accounts/{id} [put]
func (va *VaultAccountApi) Update(c *gin.Context) {
	uuid, ok := va.authorizedUUID(c)
	if !ok {
		return
	}
	var account types.Account
	if err := c.ShouldBindJSON(&account); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return
	}
	updated, err := va.accountService.Update(c.Param("id"), &account, uuid)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete a vault entry
// @Summary Delete a vault entry
// @Tags Vault
// @Security Bearer
// @Param id path string true "account id"
// @Success 204
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Failure 404 {object} api.ApiError "no account found"
// @Router /api/v1/accounts/{id} [delete]
func (va *VaultAccountApi) Delete(c *gin.Context) {
	uuid, ok := va.authorizedUUID(c)
	if !ok {
		return
	}
	if err := va.accountService.Remove(c.Param("id"), uuid); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Enable server side encryption
// @Summary Enable server side encryption
// @Description Migrates legacy plaintext vault entries to encrypted form
// @Tags Vault
// @Security Bearer
// @Param accounts body []types.Account true "entries to migrate"
// @Success 200 {object} []types.Account
// @Failure 400 {object} api.ApiError "invalid input"
// @Failure 401 {object} api.ApiError "not an authorized session"
// @Accept json
// @Produce json
// @Router /api/v1/accounts/enable-server-encryption [post]
func (va *VaultAccountApi) EnableServerEncryption(c *gin.Context) {
	uuid, ok := va.authorizedUUID(c)
	if !ok {
		return
	}
	var accounts []*types.Account
	if err := c.ShouldBindJSON(&accounts); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return
	}
	migrated, err := va.accountService.EnableServerEncryption(uuid, accounts)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, migrated)
}
