package repositories

import (
	"context"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	CreateFollow(ctx context.Context, follow *models.Follow) error
	DeleteFollow(ctx context.Context, userID, authorID uint) error
	IsFollowing(ctx context.Context, userID, authorID uint) (bool, error)
	FollowsByUser(userID uint, search string) pagination.Source[models.Follow]
}

// PostgresFollowRepository implements FollowRepository on any GORM dialect
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

// CreateFollow writes the row unconditionally. Self-follows and duplicates are
// rejected by the schema and come back as ErrConstraintViolation.
func (r *PostgresFollowRepository) CreateFollow(ctx context.Context, follow *models.Follow) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(follow).Error)
}

// DeleteFollow removes the follow if there is one
func (r *PostgresFollowRepository) DeleteFollow(ctx context.Context, userID, authorID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{}).Error
	return translate(err)
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, userID, authorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

// FollowsByUser lists whom userID follows, optionally narrowed by the followed username
func (r *PostgresFollowRepository) FollowsByUser(userID uint, search string) pagination.Source[models.Follow] {
	return querySource[models.Follow]{
		db: r.db,
		filter: func(q *gorm.DB) *gorm.DB {
			q = q.Where("user_id = ?", userID)
			if search != "" {
				authors := r.db.Model(&models.User{}).Select("id").Where("LOWER(username) LIKE LOWER(?)", "%"+search+"%")
				q = q.Where("author_id IN (?)", authors)
			}
			return q
		},
		order:    "id ASC",
		preloads: []string{"User", "Author"},
	}
}
