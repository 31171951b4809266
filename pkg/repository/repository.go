// Package repository provides a small generic gorm store used by domain services.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository exposes the persistence operations shared by domain services.
type Repository[T any] interface {
	Create(ctx context.Context, record *T) error
	FindByID(ctx context.Context, id any) (*T, error)
	Find(ctx context.Context, filter *T, opts ...Option) ([]*T, error)
	Updates(ctx context.Context, filter *T, values map[string]any) error
}

// Option mutates the query before execution.
type Option func(*gorm.DB) *gorm.DB

// WithLimitOffset applies offset pagination.
func WithLimitOffset(limit, offset int) Option {
	return func(tx *gorm.DB) *gorm.DB {
		if limit > 0 {
			tx = tx.Limit(limit)
		}
		if offset > 0 {
			tx = tx.Offset(offset)
		}
		return tx
	}
}

// WithOrder applies an ORDER BY clause. The column must come from a
// caller-controlled allowlist, never from raw request input.
func WithOrder(order string) Option {
	return func(tx *gorm.DB) *gorm.DB {
		if order == "" {
			return tx
		}
		return tx.Order(order)
	}
}

// WithWindow bounds a time column to [start, end] inclusive.
func WithWindow(column string, start, end any) Option {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(column+" >= ? AND "+column+" <= ?", start, end)
	}
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore builds a Repository backed by the given gorm handle.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *store[T]) FindByID(ctx context.Context, id any) (*T, error) {
	var record T
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) Find(ctx context.Context, filter *T, opts ...Option) ([]*T, error) {
	tx := s.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		tx = opt(tx)
	}
	var records []*T
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store[T]) Updates(ctx context.Context, filter *T, values map[string]any) error {
	var model T
	return s.db.WithContext(ctx).Model(&model).Where(filter).Updates(values).Error
}
