package handlers

import (
	"net/http"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests for comments nested under a post
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
	publisher         events.Publisher
	pageSize          int
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, publisher events.Publisher, pageSize int) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
		publisher:         publisher,
		pageSize:          pageSize,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.GET("/posts/:post_id/comments/", h.GetComments)
	g.POST("/posts/:post_id/comments/", h.CreateComment)
	g.GET("/posts/:post_id/comments/:id/", h.GetComment)
	g.PUT("/posts/:post_id/comments/:id/", h.UpdateComment)
	g.PATCH("/posts/:post_id/comments/:id/", h.PartialUpdateComment)
	g.DELETE("/posts/:post_id/comments/:id/", h.DeleteComment)
}

// PartialCommentRequest is the PATCH body; an absent text leaves the comment unchanged
type PartialCommentRequest struct {
	Text *string `json:"text" validate:"omitempty,min=1"`
}

// parentPost resolves the post a comment route is nested under
func (h *CommentHandler) parentPost(c echo.Context) (*models.Post, error) {
	postID, err := parseID(c, "post_id", "Post")
	if err != nil {
		return nil, err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return nil, storeError(err, "Post")
	}
	return post, nil
}

func (h *CommentHandler) loadComment(c echo.Context) (*models.Comment, error) {
	post, err := h.parentPost(c)
	if err != nil {
		return nil, err
	}
	id, err := parseID(c, "id", "Comment")
	if err != nil {
		return nil, err
	}
	comment, err := h.commentRepository.GetCommentByID(c.Request().Context(), post.ID, id)
	if err != nil {
		return nil, storeError(err, "Comment")
	}
	return comment, nil
}

func (h *CommentHandler) loadOwnComment(c echo.Context) (*models.Comment, error) {
	comment, err := h.loadComment(c)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != getUserIDFromContext(c) {
		return nil, echo.NewHTTPError(http.StatusForbidden, permissionDenied)
	}
	return comment, nil
}

// GetComments lists a post's comments, oldest first
func (h *CommentHandler) GetComments(c echo.Context) error {
	post, err := h.parentPost(c)
	if err != nil {
		return err
	}
	page, err := pagination.Paginate(c.Request().Context(), h.commentRepository.CommentsByPost(post.ID), c.QueryParam("page"), h.pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return c.JSON(http.StatusOK, newPageResponse(c, page, models.Comment.ToResponse))
}

// CreateComment adds a comment by the caller to the post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	post, err := h.parentPost(c)
	if err != nil {
		return err
	}
	var req models.CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: getUserIDFromContext(c),
		Text:     req.Text,
	}
	if err := h.commentRepository.CreateComment(c.Request().Context(), comment); err != nil {
		return storeError(err, "Comment")
	}
	created, err := h.commentRepository.GetCommentByID(c.Request().Context(), post.ID, comment.ID)
	if err != nil {
		return storeError(err, "Comment")
	}

	metrics.CommentsCreated.Inc()
	publish(h.publisher, events.SubjectCommentCreated, comment.AuthorID, comment.ID, "comment")
	return c.JSON(http.StatusCreated, created.ToResponse())
}

// GetComment retrieves one comment of the post
func (h *CommentHandler) GetComment(c echo.Context) error {
	comment, err := h.loadComment(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comment.ToResponse())
}

// UpdateComment replaces the comment text
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	comment, err := h.loadOwnComment(c)
	if err != nil {
		return err
	}
	var req models.CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment.Text = req.Text
	return h.save(c, comment)
}

// PartialUpdateComment changes the text only when it is present
func (h *CommentHandler) PartialUpdateComment(c echo.Context) error {
	comment, err := h.loadOwnComment(c)
	if err != nil {
		return err
	}
	var req PartialCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Text != nil {
		comment.Text = *req.Text
	}
	return h.save(c, comment)
}

func (h *CommentHandler) save(c echo.Context, comment *models.Comment) error {
	if err := h.commentRepository.UpdateComment(c.Request().Context(), comment); err != nil {
		return storeError(err, "Comment")
	}
	return c.JSON(http.StatusOK, comment.ToResponse())
}

// DeleteComment removes a comment written by the caller
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	comment, err := h.loadOwnComment(c)
	if err != nil {
		return err
	}
	if err := h.commentRepository.DeleteComment(c.Request().Context(), comment.ID); err != nil {
		return storeError(err, "Comment")
	}
	return c.NoContent(http.StatusNoContent)
}
