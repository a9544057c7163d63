package views

import (
	"context"
	"errors"
	"net/http"

	"github.com/anonto42/concordance/backend/internal/feedcache"
	"github.com/anonto42/concordance/backend/internal/middleware"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

func (h *Handler) paginate(c echo.Context, src pagination.Source[models.Post]) (*pagination.Page[models.Post], error) {
	page, err := pagination.Paginate(c.Request().Context(), src, c.QueryParam("page"), h.PostsPerPage)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return page, nil
}

// Index shows the global feed. Pages come from the feed cache while they are fresh.
func (h *Handler) Index(c echo.Context) error {
	raw := c.QueryParam("page")
	page, err := h.FeedCache.GetOrBuild(c.Request().Context(), raw, func(ctx context.Context) (*feedcache.FeedPage, error) {
		return pagination.Paginate(ctx, h.Posts.AllPosts(), raw, h.PostsPerPage)
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return h.render(c, http.StatusOK, "feed.html", &viewData{Title: "Latest posts", Page: page})
}

// GroupPosts shows the posts filed under one group
func (h *Handler) GroupPosts(c echo.Context) error {
	group, err := h.Groups.GetGroupBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return notFoundOr(err, "Group not found")
	}
	page, err := h.paginate(c, h.Posts.PostsByGroup(group.ID))
	if err != nil {
		return err
	}
	return h.render(c, http.StatusOK, "group.html", &viewData{Title: group.Title, Group: group, Page: page})
}

// Profile shows an author's posts and whether the visitor follows them
func (h *Handler) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	author, err := h.Users.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "User not found")
	}
	page, err := h.paginate(c, h.Posts.PostsByAuthor(author.ID))
	if err != nil {
		return err
	}

	following := false
	if user := middleware.CurrentUser(c); user != nil {
		if following, err = h.Follows.IsFollowing(ctx, user.ID, author.ID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
	}
	return h.render(c, http.StatusOK, "profile.html", &viewData{
		Title:     author.Username,
		Author:    author,
		Following: following,
		Page:      page,
	})
}

// FollowIndex shows posts by the authors the current user follows
func (h *Handler) FollowIndex(c echo.Context) error {
	user := middleware.CurrentUser(c)
	page, err := h.paginate(c, h.Posts.PostsByFollowedAuthors(user.ID))
	if err != nil {
		return err
	}
	return h.render(c, http.StatusOK, "feed.html", &viewData{Title: "Authors you follow", Page: page})
}

// notFoundOr turns a missing row into a 404 and anything else into a 500
func notFoundOr(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, message)
	}
	return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
}
