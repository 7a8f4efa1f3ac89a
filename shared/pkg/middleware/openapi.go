package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mes-platform/production/shared/pkg/errors"
)

// RequestValidator checks requests against an API contract
type RequestValidator interface {
	HasRoute(req *http.Request) bool
	ValidateRequest(req *http.Request) error
}

// OpenAPIValidation rejects requests that violate the contract with 400.
// Requests to routes the contract does not declare pass through untouched.
func OpenAPIValidation(v RequestValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.HasRoute(c.Request) {
			c.Next()
			return
		}

		if err := v.ValidateRequest(c.Request); err != nil {
			AbortWithAppError(c, errors.ErrBadRequest(err.Error()))
			return
		}
		c.Next()
	}
}
