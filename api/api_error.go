package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log/level"
	"github.com/go-playground/validator/v10"
	"github.com/passlock/go-passlock-server/global"
	"github.com/passlock/go-passlock-server/types"
)

// ErrorBody is the uniform error payload. Reason never carries internals for
// 500-class failures, only a generic message.
type ErrorBody struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type ApiError struct {
	Error ErrorBody `json:"error"`
}

func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) ApiError {
	ar := ApiError{
		Error: ErrorBody{
			Message: fmt.Sprintf(format, args...),
		},
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

// AbortWithError converts a service error into the uniform error envelope.
// Unexpected failures are logged server side and surfaced with a generic
// message.
func AbortWithError(c *gin.Context, err error) ApiError {
	svcErr := types.AsServiceError(err)
	if svcErr.Code >= 500 {
		level.Error(global.Logger).Log("msg", "request failed", "path", c.FullPath(), "error", err)
	}
	ar := ApiError{
		Error: ErrorBody{
			Message: svcErr.Message,
			Reason:  svcErr.Reason,
		},
	}
	c.AbortWithStatusJSON(svcErr.Code, ar)
	return ar
}

func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		case "email":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is not a valid email", err.Field()))
		case "min":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is too short", err.Field()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}

// bindAndValidate binds the JSON body and runs struct validation, aborting
// with a 400 on failure.
func bindAndValidate(c *gin.Context, validate *validator.Validate, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		ApiErrorf(c, 400, "invalid request body")
		return false
	}
	if err := validate.Struct(obj); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			ApiErrorf(c, 400, "%s", ValidatorErrorToUser(ve))
		} else {
			ApiErrorf(c, 400, "invalid request body")
		}
		return false
	}
	return true
}
