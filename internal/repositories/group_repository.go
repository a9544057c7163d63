package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/anonto42/concordance/backend/internal/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepository defines the interface for group data operations
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroupByID(ctx context.Context, id uint) (*models.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error)
	ListGroups() pagination.Source[models.Group]
	AllGroups(ctx context.Context) ([]models.Group, error)
	UpdateGroup(ctx context.Context, group *models.Group) error
	UpsertGroupBySlug(ctx context.Context, group *models.Group) error
}

// PostgresGroupRepository implements GroupRepository on any GORM dialect
type PostgresGroupRepository struct {
	db *gorm.DB
}

// NewPostgresGroupRepository creates a new PostgresGroupRepository
func NewPostgresGroupRepository(db *gorm.DB) *PostgresGroupRepository {
	return &PostgresGroupRepository{db: db}
}

func (r *PostgresGroupRepository) CreateGroup(ctx context.Context, group *models.Group) error {
	return translate(r.db.WithContext(ctx).Create(group).Error)
}

func (r *PostgresGroupRepository) GetGroupByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (r *PostgresGroupRepository) GetGroupBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&group).Error; err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (r *PostgresGroupRepository) groups() querySource[models.Group] {
	return querySource[models.Group]{db: r.db, order: "title ASC, id ASC"}
}

// ListGroups returns all groups ordered by title
func (r *PostgresGroupRepository) ListGroups() pagination.Source[models.Group] {
	return r.groups()
}

// AllGroups feeds the group choice on the post form
func (r *PostgresGroupRepository) AllGroups(ctx context.Context) ([]models.Group, error) {
	return r.groups().All(ctx)
}

// UpdateGroup saves title and description. The slug may only change while no post references the group.
func (r *PostgresGroupRepository) UpdateGroup(ctx context.Context, group *models.Group) error {
	current, err := r.GetGroupByID(ctx, group.ID)
	if err != nil {
		return err
	}
	if current.Slug != group.Slug {
		var refs int64
		if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("group_id = ?", group.ID).Count(&refs).Error; err != nil {
			return translate(err)
		}
		if refs > 0 {
			return fmt.Errorf("%w: slug of group %q is referenced by %d posts", ErrConstraintViolation, current.Slug, refs)
		}
	}
	return translate(r.db.WithContext(ctx).Save(group).Error)
}

// UpsertGroupBySlug inserts a group or refreshes title and description of the group with the same slug
func (r *PostgresGroupRepository) UpsertGroupBySlug(ctx context.Context, group *models.Group) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
	}).Create(group).Error
	return translate(err)
}
