package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/config"
	"app/internal/middleware"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

type mwErrorResponse struct {
	Error string `json:"error"`
}

type mwOKResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// HS256で署名したテスト用JWTを作る
func mustMakeJWT(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	return s
}

func newTestEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	g := e.Group("/protected", mw...)
	g.GET("", func(c echo.Context) error {
		userID, _ := c.Get(middleware.CtxUserIDKey).(int64)
		role, _ := c.Get(middleware.CtxUserRoleKey).(string)
		return c.JSON(http.StatusOK, mwOKResponse{UserID: userID, Role: role})
	})
	return e
}

func runRequest(e *echo.Echo, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func validClaims(sub interface{}) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":  sub,
		"role": "USER",
		"iat":  now.Unix(),
		"exp":  now.Add(15 * time.Minute).Unix(),
	}
}

func TestMiddleware_AuthJWT_Unauthorized_NoHeader(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg))

	rec := runRequest(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body mwErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body.Error)
}

func TestMiddleware_AuthJWT_Unauthorized_NotBearer(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg))

	rec := runRequest(e, "Basic abcdef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AuthJWT_Unauthorized_BadSignature(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg))

	token := mustMakeJWT(t, "other-secret", validClaims("7"))
	rec := runRequest(e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AuthJWT_Unauthorized_Expired(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg))

	claims := validClaims("7")
	claims["exp"] = time.Now().Add(-1 * time.Minute).Unix()
	token := mustMakeJWT(t, testSecret, claims)

	rec := runRequest(e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_AuthJWT_Unauthorized_MissingRole(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg))

	claims := validClaims("7")
	delete(claims, "role")
	token := mustMakeJWT(t, testSecret, claims)

	rec := runRequest(e, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// subは文字列でも数値でも受ける
func TestMiddleware_AuthJWT_OK_SubAsString(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg))

	token := mustMakeJWT(t, testSecret, validClaims("7"))
	rec := runRequest(e, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.UserID)
	assert.Equal(t, "USER", body.Role)
}

func TestMiddleware_AuthJWT_OK_SubAsNumber(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg))

	token := mustMakeJWT(t, testSecret, validClaims(7))
	rec := runRequest(e, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.UserID)
}

func TestMiddleware_AdminRoleGuard_ForbiddenForUser(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg), middleware.AdminRoleGuard())

	token := mustMakeJWT(t, testSecret, validClaims("7"))
	rec := runRequest(e, "Bearer "+token)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body mwErrorResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "admin only", body.Error)
}

func TestMiddleware_AdminRoleGuard_OKForAdmin(t *testing.T) {
	cfg := config.Config{JWTSecret: testSecret}
	e := newTestEcho(middleware.AuthJWT(cfg), middleware.AdminRoleGuard())

	claims := validClaims("7")
	claims["role"] = "ADMIN"
	token := mustMakeJWT(t, testSecret, claims)
	rec := runRequest(e, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ADMIN", body.Role)
}

// roleがcontextに無いままguardに届いたら401
func TestMiddleware_AdminRoleGuard_UnauthorizedWithoutRole(t *testing.T) {
	e := newTestEcho(middleware.AdminRoleGuard())

	rec := runRequest(e, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
