package repositories

import (
	"context"
	"time"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const postOrder = "pub_date DESC, id DESC"

// PostRepository defines the interface for post data operations.
// The list methods return ordered sources for the paginator, newest first.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPostByID(ctx context.Context, id uint) (*models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error
	AllPosts() pagination.Source[models.Post]
	PostsByGroup(groupID uint) pagination.Source[models.Post]
	PostsByAuthor(authorID uint) pagination.Source[models.Post]
	PostsByFollowedAuthors(userID uint) pagination.Source[models.Post]
	SearchPostsByAuthorUsername(query string) pagination.Source[models.Post]
}

// PostgresPostRepository implements PostRepository on any GORM dialect
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// CreatePost inserts a post and stamps its publication date
func (r *PostgresPostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.PubDate = time.Now()
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error)
}

// GetPostByID retrieves a post with its author and group
func (r *PostgresPostRepository) GetPostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

// UpdatePost writes text, group and image only; author and pub_date never change
func (r *PostgresPostRepository) UpdatePost(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", post.ID).
		Select("text", "group_id", "image").
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		}).Error
	return translate(err)
}

// DeletePost removes a post; its comments go with it through ON DELETE CASCADE
func (r *PostgresPostRepository) DeletePost(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPostRepository) posts(filter func(*gorm.DB) *gorm.DB) querySource[models.Post] {
	return querySource[models.Post]{
		db:       r.db,
		filter:   filter,
		order:    postOrder,
		preloads: []string{"Author", "Group"},
	}
}

func (r *PostgresPostRepository) AllPosts() pagination.Source[models.Post] {
	return r.posts(nil)
}

func (r *PostgresPostRepository) PostsByGroup(groupID uint) pagination.Source[models.Post] {
	return r.posts(func(q *gorm.DB) *gorm.DB {
		return q.Where("group_id = ?", groupID)
	})
}

func (r *PostgresPostRepository) PostsByAuthor(authorID uint) pagination.Source[models.Post] {
	return r.posts(func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ?", authorID)
	})
}

// PostsByFollowedAuthors is the subscription feed of userID
func (r *PostgresPostRepository) PostsByFollowedAuthors(userID uint) pagination.Source[models.Post] {
	return r.posts(func(q *gorm.DB) *gorm.DB {
		followed := r.db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", userID)
		return q.Where("author_id IN (?)", followed)
	})
}

// SearchPostsByAuthorUsername matches author usernames case-insensitively; an empty query matches all posts
func (r *PostgresPostRepository) SearchPostsByAuthorUsername(query string) pagination.Source[models.Post] {
	if query == "" {
		return r.AllPosts()
	}
	return r.posts(func(q *gorm.DB) *gorm.DB {
		authors := r.db.Model(&models.User{}).Select("id").Where("LOWER(username) LIKE LOWER(?)", "%"+query+"%")
		return q.Where("author_id IN (?)", authors)
	})
}
