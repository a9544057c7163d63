package repositories

import (
	"context"
	"time"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, postID, id uint) (*models.Comment, error)
	CommentsByPost(postID uint) pagination.Source[models.Comment]
	AllCommentsByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id uint) error
}

// PostgresCommentRepository implements CommentRepository on any GORM dialect
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment inserts a comment and stamps its creation time
func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	comment.PubDate = time.Now()
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error)
}

// GetCommentByID retrieves a comment scoped to its post
func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, postID, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("Author").
		Where("post_id = ?", postID).
		First(&comment, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (r *PostgresCommentRepository) comments(postID uint) querySource[models.Comment] {
	return querySource[models.Comment]{
		db: r.db,
		filter: func(q *gorm.DB) *gorm.DB {
			return q.Where("post_id = ?", postID)
		},
		order:    "pub_date ASC, id ASC",
		preloads: []string{"Author"},
	}
}

// CommentsByPost returns the comments of a post, oldest first
func (r *PostgresCommentRepository) CommentsByPost(postID uint) pagination.Source[models.Comment] {
	return r.comments(postID)
}

func (r *PostgresCommentRepository) AllCommentsByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	return r.comments(postID).All(ctx)
}

// UpdateComment rewrites the text only
func (r *PostgresCommentRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", comment.ID).
		Update("text", comment.Text).Error
	return translate(err)
}

func (r *PostgresCommentRepository) DeleteComment(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
