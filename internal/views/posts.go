package views

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/media"
	"github.com/anonto42/concordance/backend/internal/middleware"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/pkg/metrics"
	"github.com/anonto42/concordance/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func (h *Handler) loadPost(c echo.Context) (*models.Post, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	post, err := h.Posts.GetPostByID(c.Request().Context(), uint(id))
	if err != nil {
		return nil, notFoundOr(err, "Post not found")
	}
	return post, nil
}

// PostDetail shows a post with its comments
func (h *Handler) PostDetail(c echo.Context) error {
	post, err := h.loadPost(c)
	if err != nil {
		return err
	}
	comments, err := h.Comments.AllCommentsByPost(c.Request().Context(), post.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return h.render(c, http.StatusOK, "post_detail.html", &viewData{
		Title:    "Post by " + post.Author.Username,
		Post:     post,
		Comments: comments,
	})
}

// AddComment stores a comment by the current user. It always returns to the post page.
func (h *Handler) AddComment(c echo.Context) error {
	post, err := h.loadPost(c)
	if err != nil {
		return err
	}

	var form models.CommentRequest
	if err := c.Bind(&form); err == nil && c.Validate(&form) == nil {
		comment := &models.Comment{
			PostID:   post.ID,
			AuthorID: middleware.CurrentUser(c).ID,
			Text:     form.Text,
		}
		if err := h.Comments.CreateComment(c.Request().Context(), comment); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}
		metrics.CommentsCreated.Inc()
		h.publish(events.SubjectCommentCreated, comment.AuthorID, comment.ID, "comment")
	}
	return redirect(c, postURL(post.ID))
}

// PostCreate shows the new post form and publishes valid submissions
func (h *Handler) PostCreate(c echo.Context) error {
	user := middleware.CurrentUser(c)
	data := &viewData{Title: "New post", Values: map[string]string{}}

	if c.Request().Method == http.MethodPost {
		post := &models.Post{AuthorID: user.ID}
		if h.bindPostForm(c, post, data) {
			if err := h.Posts.CreatePost(c.Request().Context(), post); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
			}
			post.Author = *user
			metrics.PostsCreated.Inc()
			h.publish(events.SubjectPostCreated, user.ID, post.ID, "post")
			logrus.WithField("post", post.String()).Info("Post created")
			return redirect(c, profileURL(user.Username))
		}
	}
	return h.renderPostForm(c, data)
}

// PostEdit lets the author change a post. Anyone else is sent back to the post unchanged.
func (h *Handler) PostEdit(c echo.Context) error {
	post, err := h.loadPost(c)
	if err != nil {
		return err
	}
	user := middleware.CurrentUser(c)
	if user == nil {
		return redirect(c, middleware.LoginRedirectURL(LoginURL, c.Request().URL.RequestURI()))
	}
	if post.AuthorID != user.ID {
		return redirect(c, postURL(post.ID))
	}

	data := &viewData{Title: "Edit post", IsEdit: true, Values: map[string]string{"text": post.Text}}
	if post.GroupID != nil {
		data.Values["group"] = strconv.FormatUint(uint64(*post.GroupID), 10)
	}

	if c.Request().Method == http.MethodPost {
		if h.bindPostForm(c, post, data) {
			if err := h.Posts.UpdatePost(c.Request().Context(), post); err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
			}
			return redirect(c, postURL(post.ID))
		}
	}
	return h.renderPostForm(c, data)
}

func (h *Handler) renderPostForm(c echo.Context, data *viewData) error {
	groups, err := h.Groups.AllGroups(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	data.Groups = groups
	return h.render(c, http.StatusOK, "post_form.html", data)
}

// bindPostForm validates the submitted form and copies it onto post.
// It reports false, with errors recorded in data, when nothing should be saved.
func (h *Handler) bindPostForm(c echo.Context, post *models.Post, data *viewData) bool {
	ctx := c.Request().Context()
	var form models.PostForm
	if err := c.Bind(&form); err != nil {
		data.Errors = validators.FieldErrors(err)
		return false
	}
	data.Values["text"] = form.Text
	data.Values["group"] = form.Group

	errs := map[string][]string{}
	if err := c.Validate(&form); err != nil {
		errs = validators.FieldErrors(err)
	}

	var groupID *uint
	if form.Group != "" && len(errs["group"]) == 0 {
		id, _ := strconv.ParseUint(form.Group, 10, 32)
		group, err := h.Groups.GetGroupByID(ctx, uint(id))
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			errs["group"] = append(errs["group"], "Select a valid choice. That choice is not one of the available choices.")
		case err != nil:
			errs["non_field_errors"] = append(errs["non_field_errors"], "Could not load groups, try again.")
			logrus.WithError(err).Error("Failed to load group for post form")
		default:
			groupID = &group.ID
		}
	}

	fh, fileErr := c.FormFile("image")
	if len(errs) > 0 {
		data.Errors = errs
		return false
	}

	if fileErr == nil {
		url, err := media.SaveUpload(ctx, h.Media, fh, h.MaxUploadSize)
		if err != nil {
			if !errors.Is(err, media.ErrUnsupportedType) && !errors.Is(err, media.ErrTooLarge) {
				logrus.WithError(err).Error("Failed to store uploaded image")
			}
			data.Errors = map[string][]string{"image": {err.Error()}}
			return false
		}
		post.Image = url
	}

	post.Text = form.Text
	post.GroupID = groupID
	post.Group = nil
	return true
}

func (h *Handler) publish(subject string, actorID, targetID uint, targetType string) {
	h.Publisher.Publish(events.Event{
		Subject:    subject,
		ActorID:    actorID,
		TargetID:   targetID,
		TargetType: targetType,
		OccurredAt: time.Now().UTC(),
	})
}
