package handlers_test

import (
	"net/http"
	"testing"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/handlers"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func followCount(t *testing.T, api *testAPI) int64 {
	t.Helper()
	var n int64
	require.NoError(t, api.db.Model(&models.Follow{}).Count(&n).Error)
	return n
}

func TestFollowRequiresAuthentication(t *testing.T) {
	api := newTestAPI(t)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/follow/", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/v1/follow/", map[string]string{"following": "x"}, "").Code)
}

func TestFollowCreateAndRejections(t *testing.T) {
	api := newTestAPI(t)
	testutil.CreateUser(t, api.db, "leo")
	testutil.CreateUser(t, api.db, "tolstoy")
	token := api.token("leo")

	rec := api.do(http.MethodPost, "/api/v1/follow/", map[string]string{"following": "tolstoy"}, token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res models.FollowResponse
	decode(t, rec, &res)
	assert.Equal(t, models.FollowResponse{User: "leo", Following: "tolstoy"}, res)
	assert.Equal(t, []string{events.SubjectFollowCreated}, api.recorder.Subjects())

	cases := []struct {
		name, following, message string
	}{
		{"duplicate", "tolstoy", "You are already following tolstoy."},
		{"self", "leo", "You cannot follow yourself."},
		{"unknown", "ghost", "Object with username=ghost does not exist."},
		{"missing", "", "This field is required."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/follow/", map[string]string{"following": tc.following}, token)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, []string{tc.message}, fieldErrors(t, rec)["following"])
		})
	}
	assert.EqualValues(t, 1, followCount(t, api))
}

func TestFollowListIsScopedAndSearchable(t *testing.T) {
	api := newTestAPI(t)
	testutil.CreateUser(t, api.db, "leo")
	testutil.CreateUser(t, api.db, "anna")
	for _, name := range []string{"tolstoy", "chekhov"} {
		testutil.CreateUser(t, api.db, name)
	}
	leo := api.token("leo")
	anna := api.token("anna")
	for _, name := range []string{"tolstoy", "chekhov"} {
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/follow/", map[string]string{"following": name}, leo).Code)
	}
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/follow/", map[string]string{"following": "leo"}, anna).Code)

	var page handlers.PageResponse[models.FollowResponse]
	rec := api.do(http.MethodGet, "/api/v1/follow/", nil, leo)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	assert.EqualValues(t, 2, page.Count)

	page = handlers.PageResponse[models.FollowResponse]{}
	rec = api.do(http.MethodGet, "/api/v1/follow/?search=chek", nil, leo)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "chekhov", page.Results[0].Following)
}
