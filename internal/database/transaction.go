package database

import (
	"context"

	"gorm.io/gorm"
)

// WithTransaction runs fn inside a transaction. The transaction commits
// when fn returns nil and rolls back otherwise; fn's error is returned
// unchanged so sentinel errors survive the wrapping.
func WithTransaction(ctx context.Context, db Database, fn func(tx *gorm.DB) error) error {
	return db.Session(ctx).Transaction(fn)
}

// WithTransactionResult runs fn inside a transaction and returns its
// result on commit. On rollback the result is fn's last return value
// and must not be used by callers that received an error.
func WithTransactionResult[T any](ctx context.Context, db Database, fn func(tx *gorm.DB) (T, error)) (T, error) {
	var result T
	err := db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		var fnErr error
		result, fnErr = fn(tx)
		return fnErr
	})
	return result, err
}
