package repositories

import (
	"context"

	"github.com/anonto42/concordance/backend/internal/pagination"
	"gorm.io/gorm"
)

// querySource adapts a filtered, ordered GORM query to pagination.Source
type querySource[T any] struct {
	db       *gorm.DB
	filter   func(*gorm.DB) *gorm.DB
	order    string
	preloads []string
}

var _ pagination.Source[struct{}] = querySource[struct{}]{}

func (s querySource[T]) base(ctx context.Context) *gorm.DB {
	q := s.db.WithContext(ctx).Model(new(T))
	if s.filter != nil {
		q = q.Scopes(s.filter)
	}
	return q
}

func (s querySource[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.base(ctx).Count(&n).Error
	return n, translate(err)
}

func (s querySource[T]) Slice(ctx context.Context, offset, limit int) ([]T, error) {
	q := s.base(ctx)
	for _, p := range s.preloads {
		q = q.Preload(p)
	}
	items := make([]T, 0, limit)
	err := q.Order(s.order).Offset(offset).Limit(limit).Find(&items).Error
	return items, translate(err)
}

// All returns every item in order, for lists that are never paginated
func (s querySource[T]) All(ctx context.Context) ([]T, error) {
	q := s.base(ctx)
	for _, p := range s.preloads {
		q = q.Preload(p)
	}
	var items []T
	err := q.Order(s.order).Find(&items).Error
	return items, translate(err)
}
