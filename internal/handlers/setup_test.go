package handlers_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/media"
	"github.com/anonto42/concordance/backend/internal/router"
	"github.com/anonto42/concordance/backend/internal/testutil"
	"github.com/anonto42/concordance/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const operatorToken = "let-me-in"

type testAPI struct {
	t        *testing.T
	e        *echo.Echo
	db       *gorm.DB
	cfg      *config.Config
	recorder *events.Recorder
}

func newTestAPI(t *testing.T, opts ...func(*router.Deps)) *testAPI {
	t.Helper()
	db := testutil.NewDB(t)
	store, err := media.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.OperatorToken = operatorToken
	recorder := &events.Recorder{}
	deps := router.Deps{Config: cfg, DB: db, Media: store, Publisher: recorder}
	for _, opt := range opts {
		opt(&deps)
	}

	e, err := router.New(deps)
	require.NoError(t, err)
	return &testAPI{t: t, e: e, db: db, cfg: cfg, recorder: recorder}
}

// do sends body as JSON unless it is already a *bytes.Buffer, in which case contentType must be given
func (a *testAPI) do(method, path string, body interface{}, token string, contentType ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Buffer
	ct := echo.MIMEApplicationJSON
	switch b := body.(type) {
	case nil:
		reader = &bytes.Buffer{}
	case *bytes.Buffer:
		reader = b
		ct = contentType[0]
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewBuffer(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, ct)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) token(username string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/auth/token/", map[string]string{
		"username": username,
		"password": testutil.Password,
	}, "")
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	decode(a.t, rec, &res)
	require.NotEmpty(a.t, res.Token)
	return res.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func fieldErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string][]string {
	t.Helper()
	out := map[string][]string{}
	decode(t, rec, &out)
	return out
}

// multipartBody builds a form with the given fields and an optional image file
func multipartBody(t *testing.T, fields map[string]string, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
