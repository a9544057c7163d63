package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// FollowHandler handles the caller's subscriptions
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	publisher        events.Publisher
	pageSize         int
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, publisher events.Publisher, pageSize int) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		publisher:        publisher,
		pageSize:         pageSize,
	}
}

// RegisterFollowRoutes registers follow-related routes; callers must be authenticated
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/follow/", h.GetFollows, auth)
	g.POST("/follow/", h.FollowUser, auth)
}

// GetFollows lists who the caller follows, optionally filtered by the followed username
func (h *FollowHandler) GetFollows(c echo.Context) error {
	src := h.followRepository.FollowsByUser(getUserIDFromContext(c), c.QueryParam("search"))
	page, err := pagination.Paginate(c.Request().Context(), src, c.QueryParam("page"), h.pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return c.JSON(http.StatusOK, newPageResponse(c, page, models.Follow.ToResponse))
}

// FollowUser subscribes the caller to an author. Duplicates and self-follows are refused by the store.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	var req models.CreateFollowRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	currentUser, err := h.userRepository.GetUserByID(ctx, getUserIDFromContext(c))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
		}
		return storeError(err, "User")
	}
	author, err := h.userRepository.GetUserByUsername(ctx, req.Following)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fieldError("following", "Object with username="+req.Following+" does not exist.")
		}
		return storeError(err, "User")
	}

	follow := &models.Follow{UserID: currentUser.ID, AuthorID: author.ID}
	if err := h.followRepository.CreateFollow(ctx, follow); err != nil {
		if errors.Is(err, repositories.ErrConstraintViolation) {
			metrics.FollowsRejected.Inc()
			logrus.WithFields(logrus.Fields{"user": currentUser.Username, "author": author.Username}).
				Debug("Follow rejected by constraint")
			return fieldError("following", followRejection(currentUser, author))
		}
		return storeError(err, "Follow")
	}

	metrics.FollowsCreated.Inc()
	publish(h.publisher, events.SubjectFollowCreated, currentUser.ID, author.ID, "user")

	follow.User = *currentUser
	follow.Author = *author
	return c.JSON(http.StatusCreated, follow.ToResponse())
}

// followRejection explains why the store refused a follow
func followRejection(user, author *models.User) string {
	if user.ID == author.ID {
		return "You cannot follow yourself."
	}
	return "You are already following " + author.Username + "."
}
