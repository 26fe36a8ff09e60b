package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preicfes-api/internal/middleware"
	"github.com/noah-isme/preicfes-api/internal/service"
	appErrors "github.com/noah-isme/preicfes-api/pkg/errors"
	"github.com/noah-isme/preicfes-api/pkg/response"
)

func actorFromContext(c *gin.Context) service.Capabilities {
	return middleware.CapabilitiesFrom(c)
}

// bindJSON decodes the body, answering 400 when it is malformed.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// bindQuery decodes query parameters, answering 400 when they are malformed.
func bindQuery(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}
