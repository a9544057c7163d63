package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/handlers"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commentsPath(postID uint) string {
	return postPath(postID) + "comments/"
}

func TestCommentLifecycle(t *testing.T) {
	api := newTestAPI(t)
	leo := testutil.CreateUser(t, api.db, "leo")
	testutil.CreateUser(t, api.db, "anna")
	post := testutil.CreatePost(t, api.db, leo, "hello", time.Now())
	anna := api.token("anna")

	rec := api.do(http.MethodPost, commentsPath(post.ID), map[string]string{"text": "nice"}, anna)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.CommentResponse
	decode(t, rec, &created)
	assert.Equal(t, "anna", created.Author)
	assert.Equal(t, post.ID, created.Post)
	assert.False(t, created.PubDate.IsZero())
	assert.Contains(t, api.recorder.Subjects(), events.SubjectCommentCreated)

	var raw map[string]interface{}
	decode(t, rec, &raw)
	assert.Contains(t, raw, "pub_date")
	assert.NotContains(t, raw, "created")

	var page handlers.PageResponse[models.CommentResponse]
	rec = api.do(http.MethodGet, commentsPath(post.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &page)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "nice", page.Results[0].Text)

	one := commentsPath(post.ID) + itoa(created.ID) + "/"
	rec = api.do(http.MethodPatch, one, map[string]string{"text": "very nice"}, anna)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(http.MethodPatch, one, map[string]string{"text": "spam"}, api.token("leo"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, one, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &created)
	assert.Equal(t, "very nice", created.Text)

	rec = api.do(http.MethodPut, one, map[string]string{}, anna)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "PUT needs text")

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, one, nil, anna).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, one, nil, "").Code)
}

func TestCommentsNeedAnExistingParent(t *testing.T) {
	api := newTestAPI(t)
	leo := testutil.CreateUser(t, api.db, "leo")
	first := testutil.CreatePost(t, api.db, leo, "first", time.Now())
	second := testutil.CreatePost(t, api.db, leo, "second", time.Now())
	comment := &models.Comment{PostID: first.ID, AuthorID: leo.ID, Text: "on first", PubDate: time.Now()}
	require.NoError(t, api.db.Omit("Post", "Author").Create(comment).Error)
	token := api.token("leo")

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, commentsPath(999), nil, "").Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, commentsPath(999), map[string]string{"text": "x"}, token).Code)
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, commentsPath(second.ID)+itoa(comment.ID)+"/", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, commentsPath(first.ID), map[string]string{"text": "x"}, "").Code)
}
