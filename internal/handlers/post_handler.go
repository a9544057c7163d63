package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/concordance/backend/internal/events"
	"github.com/anonto42/concordance/backend/internal/media"
	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"github.com/anonto42/concordance/backend/internal/repositories"
	"github.com/anonto42/concordance/backend/pkg/metrics"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository  repositories.PostRepository
	groupRepository repositories.GroupRepository
	mediaStore      media.Store
	publisher       events.Publisher
	pageSize        int
	maxUploadSize   int64
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, groupRepo repositories.GroupRepository, store media.Store, publisher events.Publisher, pageSize int, maxUploadSize int64) *PostHandler {
	return &PostHandler{
		postRepository:  postRepo,
		groupRepository: groupRepo,
		mediaStore:      store,
		publisher:       publisher,
		pageSize:        pageSize,
		maxUploadSize:   maxUploadSize,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.GET("/posts/", h.GetPosts)
	g.POST("/posts/", h.CreatePost)
	g.GET("/posts/:id/", h.GetPost)
	g.PUT("/posts/:id/", h.UpdatePost)
	g.PATCH("/posts/:id/", h.PartialUpdatePost)
	g.DELETE("/posts/:id/", h.DeletePost)
}

// postInput is a create or update request from either a JSON or a multipart body
type postInput struct {
	text  *string
	group models.NullableID
	image *multipart.FileHeader
}

func (h *PostHandler) readInput(c echo.Context) (*postInput, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		var req models.PostRequest
		if err := bindAndValidate(c, &req); err != nil {
			return nil, err
		}
		return &postInput{text: req.Text, group: req.Group}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, validationError(err)
	}
	in := &postInput{}
	if v, ok := form.Value["text"]; ok && len(v) > 0 {
		text := v[0]
		if text == "" {
			return nil, fieldError("text", "This field may not be blank.")
		}
		in.text = &text
	}
	if v, ok := form.Value["group"]; ok && len(v) > 0 {
		in.group.Set = true
		if v[0] != "" {
			id, err := strconv.ParseUint(v[0], 10, 32)
			if err != nil {
				return nil, fieldError("group", "Incorrect type. Expected pk value.")
			}
			groupID := uint(id)
			in.group.Value = &groupID
		}
	}
	if files := form.File["image"]; len(files) > 0 {
		in.image = files[0]
	}
	return in, nil
}

// apply copies the provided fields of in onto post, storing any uploaded image
func (h *PostHandler) apply(c echo.Context, in *postInput, post *models.Post) error {
	ctx := c.Request().Context()
	if in.text != nil {
		post.Text = *in.text
	}
	if in.group.Set {
		if in.group.Value != nil {
			if _, err := h.groupRepository.GetGroupByID(ctx, *in.group.Value); err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return fieldError("group", "Invalid pk \""+strconv.FormatUint(uint64(*in.group.Value), 10)+"\" - object does not exist.")
				}
				return storeError(err, "Group")
			}
		}
		post.GroupID = in.group.Value
		post.Group = nil
	}
	if in.image != nil {
		url, err := media.SaveUpload(ctx, h.mediaStore, in.image, h.maxUploadSize)
		if err != nil {
			if errors.Is(err, media.ErrUnsupportedType) || errors.Is(err, media.ErrTooLarge) {
				return fieldError("image", err.Error())
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store image").SetInternal(err)
		}
		post.Image = url
	}
	return nil
}

// GetPosts lists posts newest first, optionally filtered by author username
func (h *PostHandler) GetPosts(c echo.Context) error {
	src := h.postRepository.SearchPostsByAuthorUsername(c.QueryParam("search"))
	page, err := pagination.Paginate(c.Request().Context(), src, c.QueryParam("page"), h.pageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}
	return c.JSON(http.StatusOK, newPageResponse(c, page, models.Post.ToResponse))
}

// CreatePost creates a new post authored by the caller
func (h *PostHandler) CreatePost(c echo.Context) error {
	in, err := h.readInput(c)
	if err != nil {
		return err
	}
	if in.text == nil {
		return fieldError("text", "This field is required.")
	}

	post := &models.Post{AuthorID: getUserIDFromContext(c)}
	if err := h.apply(c, in, post); err != nil {
		return err
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return storeError(err, "Post")
	}

	created, err := h.postRepository.GetPostByID(c.Request().Context(), post.ID)
	if err != nil {
		return storeError(err, "Post")
	}
	metrics.PostsCreated.Inc()
	publish(h.publisher, events.SubjectPostCreated, post.AuthorID, post.ID, "post")
	logrus.WithField("post", created.String()).Info("Post created")

	return c.JSON(http.StatusCreated, created.ToResponse())
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	post, err := h.loadPost(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post.ToResponse())
}

func (h *PostHandler) loadPost(c echo.Context) (*models.Post, error) {
	id, err := parseID(c, "id", "Post")
	if err != nil {
		return nil, err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), id)
	if err != nil {
		return nil, storeError(err, "Post")
	}
	return post, nil
}

// loadOwnPost loads the post and checks the caller wrote it
func (h *PostHandler) loadOwnPost(c echo.Context) (*models.Post, error) {
	post, err := h.loadPost(c)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != getUserIDFromContext(c) {
		return nil, echo.NewHTTPError(http.StatusForbidden, permissionDenied)
	}
	return post, nil
}

// UpdatePost replaces a post; text is required
func (h *PostHandler) UpdatePost(c echo.Context) error {
	return h.update(c, true)
}

// PartialUpdatePost changes only the fields present in the request
func (h *PostHandler) PartialUpdatePost(c echo.Context) error {
	return h.update(c, false)
}

func (h *PostHandler) update(c echo.Context, full bool) error {
	post, err := h.loadOwnPost(c)
	if err != nil {
		return err
	}
	in, err := h.readInput(c)
	if err != nil {
		return err
	}
	if full && in.text == nil {
		return fieldError("text", "This field is required.")
	}
	if err := h.apply(c, in, post); err != nil {
		return err
	}
	if err := h.postRepository.UpdatePost(c.Request().Context(), post); err != nil {
		return storeError(err, "Post")
	}

	updated, err := h.postRepository.GetPostByID(c.Request().Context(), post.ID)
	if err != nil {
		return storeError(err, "Post")
	}
	return c.JSON(http.StatusOK, updated.ToResponse())
}

// DeletePost deletes a post and, through the schema, its comments
func (h *PostHandler) DeletePost(c echo.Context) error {
	post, err := h.loadOwnPost(c)
	if err != nil {
		return err
	}
	if err := h.postRepository.DeletePost(c.Request().Context(), post.ID); err != nil {
		return storeError(err, "Post")
	}
	return c.NoContent(http.StatusNoContent)
}
