package views_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/concordance/backend/internal/handlers"
	"github.com/anonto42/concordance/backend/internal/media"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/router"
	"github.com/anonto42/concordance/backend/internal/testutil"
	"github.com/anonto42/concordance/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const operatorToken = "let-me-in"

type site struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB
}

func newSite(t *testing.T) *site {
	t.Helper()
	db := testutil.NewDB(t)
	store, err := media.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	cfg := config.Default()
	cfg.OperatorToken = operatorToken
	e, err := router.New(router.Deps{Config: cfg, DB: db, Media: store})
	require.NoError(t, err)
	return &site{t: t, e: e, db: db}
}

// browser carries cookies between requests and never follows redirects
type browser struct {
	*site
	cookies map[string]*http.Cookie
}

func (s *site) browser() *browser {
	return &browser{site: s, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.e.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.send(req)
}

func (s *site) loggedIn(username string) *browser {
	s.t.Helper()
	b := s.browser()
	rec := b.post("/auth/login/", url.Values{"username": {username}, "password": {testutil.Password}})
	require.Equal(s.t, http.StatusFound, rec.Code, rec.Body.String())
	return b
}

func id(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func TestCreatePostStampsAuthorAndRedirectsToProfile(t *testing.T) {
	s := newSite(t)
	testutil.CreateUser(t, s.db, "leo")
	b := s.loggedIn("leo")

	before := testutil.CountPosts(t, s.db)
	rec := b.post("/create/", url.Values{"text": {"fresh post"}})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/profile/leo/", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, before+1, testutil.CountPosts(t, s.db))

	var post models.Post
	require.NoError(t, s.db.Preload("Author").Last(&post).Error)
	assert.Equal(t, "leo", post.Author.Username)
	assert.Equal(t, "fresh post", post.Text)
}

func TestCreatePostInvalidFormRerenders(t *testing.T) {
	s := newSite(t)
	testutil.CreateUser(t, s.db, "leo")
	b := s.loggedIn("leo")

	rec := b.post("/create/", url.Values{"text": {""}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")

	rec = b.post("/create/", url.Values{"text": {"hi"}, "group": {"42"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Select a valid choice.")
	assert.Zero(t, testutil.CountPosts(t, s.db))
}

func TestCreatePostRequiresLogin(t *testing.T) {
	s := newSite(t)
	rec := s.browser().get("/create/")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login/?next=%2Fcreate%2F", rec.Header().Get(echo.HeaderLocation))
}

func TestEditByNonAuthorLeavesPostUnchanged(t *testing.T) {
	s := newSite(t)
	leo := testutil.CreateUser(t, s.db, "leo")
	testutil.CreateUser(t, s.db, "intruder")
	post := testutil.CreatePost(t, s.db, leo, "original", time.Now())
	b := s.loggedIn("intruder")

	for _, rec := range []*httptest.ResponseRecorder{
		b.get("/posts/" + id(post.ID) + "/edit/"),
		b.post("/posts/"+id(post.ID)+"/edit/", url.Values{"text": {"defaced"}}),
	} {
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/posts/"+id(post.ID)+"/", rec.Header().Get(echo.HeaderLocation))
	}

	var stored models.Post
	require.NoError(t, s.db.First(&stored, post.ID).Error)
	assert.Equal(t, "original", stored.Text)
}

func TestEditByAuthor(t *testing.T) {
	s := newSite(t)
	leo := testutil.CreateUser(t, s.db, "leo")
	group := testutil.CreateGroup(t, s.db, "Cats", "cats")
	post := testutil.CreatePost(t, s.db, leo, "original", time.Now())
	b := s.loggedIn("leo")

	rec := b.get("/posts/" + id(post.ID) + "/edit/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "original")

	rec = b.post("/posts/"+id(post.ID)+"/edit/", url.Values{"text": {"edited"}, "group": {id(group.ID)}})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/posts/"+id(post.ID)+"/", rec.Header().Get(echo.HeaderLocation))

	var stored models.Post
	require.NoError(t, s.db.First(&stored, post.ID).Error)
	assert.Equal(t, "edited", stored.Text)
	require.NotNil(t, stored.GroupID)
	assert.Equal(t, group.ID, *stored.GroupID)
}

func TestEditUnknownPostIs404AndAnonymousGoesToLogin(t *testing.T) {
	s := newSite(t)
	leo := testutil.CreateUser(t, s.db, "leo")
	post := testutil.CreatePost(t, s.db, leo, "original", time.Now())

	anon := s.browser()
	assert.Equal(t, http.StatusNotFound, anon.get("/posts/999/edit/").Code)
	rec := anon.get("/posts/" + id(post.ID) + "/edit/")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderLocation), "/auth/login/?next="))
}

func TestSelfFollowWarnsWithoutWriting(t *testing.T) {
	s := newSite(t)
	testutil.CreateUser(t, s.db, "leo")
	b := s.loggedIn("leo")

	rec := b.get("/profile/leo/follow/")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/profile/leo/", rec.Header().Get(echo.HeaderLocation))

	var n int64
	require.NoError(t, s.db.Model(&models.Follow{}).Count(&n).Error)
	assert.Zero(t, n)

	rec = b.get("/profile/leo/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You cannot follow yourself.")

	rec = b.get("/profile/leo/")
	assert.NotContains(t, rec.Body.String(), "You cannot follow yourself.", "flashes show once")
}

func TestFollowTwiceWarnsAndUnfollow(t *testing.T) {
	s := newSite(t)
	testutil.CreateUser(t, s.db, "leo")
	testutil.CreateUser(t, s.db, "tolstoy")
	b := s.loggedIn("leo")

	require.Equal(t, http.StatusFound, b.get("/profile/tolstoy/follow/").Code)
	require.Equal(t, http.StatusFound, b.post("/profile/tolstoy/follow/", nil).Code)

	rec := b.get("/profile/tolstoy/")
	assert.Contains(t, rec.Body.String(), "You are already following tolstoy.")
	assert.Contains(t, rec.Body.String(), "/profile/tolstoy/unfollow/")

	require.Equal(t, http.StatusFound, b.get("/profile/tolstoy/unfollow/").Code)
	rec = b.get("/profile/tolstoy/")
	assert.Contains(t, rec.Body.String(), "/profile/tolstoy/follow/")
	assert.NotContains(t, rec.Body.String(), "/profile/tolstoy/unfollow/")
}

func TestPagesPastTheEndClampToTheLast(t *testing.T) {
	s := newSite(t)
	leo := testutil.CreateUser(t, s.db, "leo")
	testutil.CreatePosts(t, s.db, leo, 13)
	b := s.browser()

	last := b.get("/profile/leo/?page=2")
	require.Equal(t, http.StatusOK, last.Code)
	assert.Equal(t, 3, strings.Count(last.Body.String(), `class="post"`))
	assert.Contains(t, last.Body.String(), "Page 2 of 2")

	beyond := b.get("/profile/leo/?page=7")
	require.Equal(t, http.StatusOK, beyond.Code)
	assert.Equal(t, last.Body.String(), beyond.Body.String())

	first := b.get("/profile/leo/?page=abc")
	assert.Equal(t, 10, strings.Count(first.Body.String(), `class="post"`))
}

func TestIndexIsCachedUntilFlushed(t *testing.T) {
	s := newSite(t)
	leo := testutil.CreateUser(t, s.db, "leo")
	post := testutil.CreatePost(t, s.db, leo, "soon to vanish", time.Now())
	b := s.browser()

	require.Contains(t, b.get("/").Body.String(), "soon to vanish")
	require.NoError(t, s.db.Delete(&models.Post{}, post.ID).Error)
	assert.Contains(t, b.get("/").Body.String(), "soon to vanish", "cached page is served verbatim")

	req := httptest.NewRequest(http.MethodPost, "/ops/cache/flush/", nil)
	req.Header.Set(handlers.OperatorTokenHeader, operatorToken)
	require.Equal(t, http.StatusOK, b.send(req).Code)

	assert.NotContains(t, b.get("/").Body.String(), "soon to vanish")
}

func TestFollowFeedShowsOnlyFollowedAuthors(t *testing.T) {
	s := newSite(t)
	testutil.CreateUser(t, s.db, "reader")
	anna := testutil.CreateUser(t, s.db, "anna")
	bob := testutil.CreateUser(t, s.db, "bob")
	testutil.CreatePost(t, s.db, anna, "anna writes", time.Now())
	testutil.CreatePost(t, s.db, bob, "bob writes", time.Now())
	b := s.loggedIn("reader")

	require.Equal(t, http.StatusFound, b.get("/profile/anna/follow/").Code)
	rec := b.get("/follow/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "anna writes")
	assert.NotContains(t, rec.Body.String(), "bob writes")

	rec = s.browser().get("/follow/")
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestGroupAndProfileNotFound(t *testing.T) {
	s := newSite(t)
	b := s.browser()
	for _, path := range []string{"/group/nope/", "/profile/ghost/", "/posts/1/", "/posts/abc/"} {
		rec := b.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html", path)
	}
}

func TestGroupPageListsItsPosts(t *testing.T) {
	s := newSite(t)
	leo := testutil.CreateUser(t, s.db, "leo")
	group := testutil.CreateGroup(t, s.db, "Cats", "cats")
	in := testutil.CreatePost(t, s.db, leo, "meow", time.Now())
	testutil.CreatePost(t, s.db, leo, "woof", time.Now())
	require.NoError(t, s.db.Model(in).Update("group_id", group.ID).Error)

	rec := s.browser().get("/group/cats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "meow")
	assert.NotContains(t, rec.Body.String(), "woof")
}

func TestAddComment(t *testing.T) {
	s := newSite(t)
	leo := testutil.CreateUser(t, s.db, "leo")
	post := testutil.CreatePost(t, s.db, leo, "hello", time.Now())
	path := "/posts/" + id(post.ID) + "/comment/"

	rec := s.browser().post(path, url.Values{"text": {"anon"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderLocation), "/auth/login/"))

	b := s.loggedIn("leo")
	rec = b.post(path, url.Values{"text": {""}})
	require.Equal(t, http.StatusFound, rec.Code)
	rec = b.post(path, url.Values{"text": {"first!"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/posts/"+id(post.ID)+"/", rec.Header().Get(echo.HeaderLocation))

	var comments []models.Comment
	require.NoError(t, s.db.Find(&comments).Error)
	require.Len(t, comments, 1)
	assert.Equal(t, "first!", comments[0].Text)
	assert.Equal(t, leo.ID, comments[0].AuthorID)

	assert.Contains(t, b.get("/posts/"+id(post.ID)+"/").Body.String(), "first!")
}

func TestSignupLoginLogout(t *testing.T) {
	s := newSite(t)
	b := s.browser()

	rec := b.post("/auth/signup/", url.Values{
		"username":  {"anna"},
		"password1": {"karenina-1877"},
		"password2": {"karenina-1878"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "The two password fields didn")

	rec = b.post("/auth/signup/", url.Values{
		"username":  {"anna"},
		"password1": {"karenina-1877"},
		"password2": {"karenina-1877"},
	})
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Contains(t, b.get("/").Body.String(), `href="/profile/anna/"`)

	require.Equal(t, http.StatusFound, b.get("/auth/logout/").Code)
	assert.Contains(t, b.get("/").Body.String(), `href="/auth/login/"`)

	rec = b.post("/auth/login/", url.Values{"username": {"anna"}, "password": {"wrong-password"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a correct username and password.")

	rec = b.post("/auth/login/", url.Values{"username": {"anna"}, "password": {"karenina-1877"}, "next": {"/create/"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/create/", rec.Header().Get(echo.HeaderLocation))

	rec = b.post("/auth/login/", url.Values{"username": {"anna"}, "password": {"karenina-1877"}, "next": {"//evil.example"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
}
