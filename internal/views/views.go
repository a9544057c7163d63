// Package views serves the HTML side of the site: feeds, post pages, forms
// and the session based sign-in flow.
package views

import (
	"net/http"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/feedcache"
	"github.com/anonto42/concordance/backend/internal/media"
	"github.com/anonto42/concordance/backend/internal/middleware"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// LoginURL is where anonymous visitors are sent for pages that need a user
const LoginURL = "/auth/login/"

// Deps are the collaborators of the web handlers
type Deps struct {
	Users         repositories.UserRepository
	Groups        repositories.GroupRepository
	Posts         repositories.PostRepository
	Comments      repositories.CommentRepository
	Follows       repositories.FollowRepository
	FeedCache     *feedcache.Cache
	Sessions      *middleware.SessionManager
	Media         media.Store
	Publisher     events.Publisher
	PostsPerPage  int
	MaxUploadSize int64
}

// Handler serves the HTML pages
type Handler struct {
	Deps
}

func NewHandler(deps Deps) *Handler {
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	return &Handler{Deps: deps}
}

// RegisterRoutes mounts every page on e
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	loginRequired := middleware.LoginRequired(LoginURL)
	web := e.Group("", h.Sessions.Middleware())

	web.GET("/", h.Index)
	web.GET("/group/:slug/", h.GroupPosts)
	web.GET("/profile/:username/", h.Profile)
	web.GET("/follow/", h.FollowIndex, loginRequired)
	web.Match([]string{http.MethodGet, http.MethodPost}, "/profile/:username/follow/", h.ProfileFollow, loginRequired)
	web.Match([]string{http.MethodGet, http.MethodPost}, "/profile/:username/unfollow/", h.ProfileUnfollow, loginRequired)

	web.GET("/posts/:id/", h.PostDetail)
	web.Match([]string{http.MethodGet, http.MethodPost}, "/posts/:id/edit/", h.PostEdit)
	web.POST("/posts/:id/comment/", h.AddComment, loginRequired)
	web.Match([]string{http.MethodGet, http.MethodPost}, "/create/", h.PostCreate, loginRequired)

	web.Match([]string{http.MethodGet, http.MethodPost}, "/auth/login/", h.Login)
	web.Match([]string{http.MethodGet, http.MethodPost}, "/auth/signup/", h.Signup)
	web.Match([]string{http.MethodGet, http.MethodPost}, "/auth/logout/", h.Logout)

	e.GET(media.URLPrefix+":name/", h.ServeMedia)
	logrus.Info("Web routes configured.")
}

// viewData is the model handed to every template
type viewData struct {
	Title       string
	CurrentUser *models.User
	Flashes     []middleware.Flash

	Page      *pagination.Page[models.Post]
	Group     *models.Group
	Author    *models.User
	Following bool

	Post     *models.Post
	Comments []models.Comment

	IsEdit bool
	Groups []models.Group
	Values map[string]string
	Errors map[string][]string
	Next   string

	Code    int
	Message string
}

// render fills the per-request fields and renders the page
func (h *Handler) render(c echo.Context, code int, name string, data *viewData) error {
	data.CurrentUser = middleware.CurrentUser(c)
	data.Flashes = h.Sessions.Flashes(c)
	return c.Render(code, name, data)
}

// redirect answers with 302 Found
func redirect(c echo.Context, url string) error {
	return c.Redirect(http.StatusFound, url)
}
