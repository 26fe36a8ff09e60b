package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/preicfes-api/internal/middleware"
	"github.com/noah-isme/preicfes-api/internal/models"
	"github.com/noah-isme/preicfes-api/internal/service"
)

func testContext(method, target, body string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, _ := http.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
		c.Set(middleware.ContextCapabilitiesKey, service.NewPolicy().For(claims))
	}
	return c, w
}

func superuserClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin", Username: "admin", Role: models.RoleSuperuser}
}

func collectorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "col-1", Username: "cartera", Role: models.RoleCollections, MunicipalityID: "mun-1", DepartmentID: "dep-1"}
}

func professorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "prof-1", Username: "profe", Role: models.RoleProfessor}
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct{ Code string } `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
