package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, key string, method jwt.SigningMethod, expires time.Time) string {
	t.Helper()
	claims := &models.JwtCustomClaims{
		UserID:   7,
		Username: "leo",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

// serve runs a request through JWTAuthMiddleware and the extra middleware, reporting the caller seen by the handler
func serve(method, header string, extra ...echo.MiddlewareFunc) (int, *models.JwtCustomClaims) {
	e := echo.New()
	var seen *models.JwtCustomClaims
	h := func(c echo.Context) error {
		seen = ClaimsFromContext(c)
		return c.NoContent(http.StatusOK)
	}
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	h = JWTAuthMiddleware(secret)(h)

	req := httptest.NewRequest(method, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec.Code, seen
}

func TestJWTAuthMiddleware(t *testing.T) {
	valid := sign(t, secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	code, claims := serve(http.MethodGet, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, claims, "no header is anonymous")

	for _, scheme := range []string{"Bearer", "JWT", "bearer"} {
		code, claims = serve(http.MethodGet, scheme+" "+valid)
		require.Equal(t, http.StatusOK, code, scheme)
		require.NotNil(t, claims)
		assert.Equal(t, uint(7), claims.UserID)
	}

	rejected := map[string]string{
		"expired":      "Bearer " + sign(t, secret, jwt.SigningMethodHS256, time.Now().Add(-time.Minute)),
		"wrong secret": "Bearer " + sign(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
		"bad scheme":   "Basic " + valid,
		"no token":     "Bearer",
	}
	for name, header := range rejected {
		code, _ = serve(http.MethodGet, header)
		assert.Equal(t, http.StatusUnauthorized, code, name)
	}
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JwtCustomClaims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(token, secret)
	assert.Error(t, err)
}

func TestRequireAuthAndReadOnly(t *testing.T) {
	valid := "Bearer " + sign(t, secret, jwt.SigningMethodHS256, time.Now().Add(time.Hour))

	code, _ := serve(http.MethodGet, "", RequireAuth())
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = serve(http.MethodGet, valid, RequireAuth())
	assert.Equal(t, http.StatusOK, code)

	code, _ = serve(http.MethodGet, "", ReadOnlyForAnonymous())
	assert.Equal(t, http.StatusOK, code)
	code, _ = serve(http.MethodPost, "", ReadOnlyForAnonymous())
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = serve(http.MethodPost, valid, ReadOnlyForAnonymous())
	assert.Equal(t, http.StatusOK, code)
}

func TestLoginRedirectURL(t *testing.T) {
	assert.Equal(t, "/auth/login/?next=%2Fposts%2F1%2Fedit%2F", LoginRedirectURL("/auth/login/", "/posts/1/edit/"))
}
