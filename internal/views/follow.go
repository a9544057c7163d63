package views

import (
	"errors"
	"net/http"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/middleware"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// ProfileFollow subscribes the current user to the author. The write is
// attempted unconditionally; a refusal by the store becomes a warning.
func (h *Handler) ProfileFollow(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)
	author, err := h.Users.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "User not found")
	}

	err = h.Follows.CreateFollow(ctx, &models.Follow{UserID: user.ID, AuthorID: author.ID})
	switch {
	case err == nil:
		metrics.FollowsCreated.Inc()
		h.publish(events.SubjectFollowCreated, user.ID, author.ID, "user")
	case errors.Is(err, repositories.ErrConstraintViolation):
		metrics.FollowsRejected.Inc()
		message := "You are already following " + author.Username + "."
		if user.ID == author.ID {
			message = "You cannot follow yourself."
		}
		if err := h.Sessions.AddFlash(c, "warning", message); err != nil {
			logrus.WithError(err).Warn("Failed to store flash message")
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return redirect(c, profileURL(author.Username))
}

// ProfileUnfollow removes the subscription if there is one
func (h *Handler) ProfileUnfollow(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)
	author, err := h.Users.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	if err := h.Follows.DeleteFollow(ctx, user.ID, author.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return redirect(c, profileURL(author.Username))
}
