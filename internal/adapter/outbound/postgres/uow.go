package postgres

import (
	"context"

	"github.com/payflow/server/internal/port/outbound"
	"gorm.io/gorm"
)

type txKey struct{}

// UnitOfWork runs a function inside one database transaction. Every
// repository in this package joins the transaction carried on the
// context, so an entity mutation and its ledger rows commit together.
type UnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork creates a unit of work over the given database.
func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

var _ outbound.UnitOfWorkPort = (*UnitOfWork)(nil)

// Do implements outbound.UnitOfWorkPort.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		// Already inside a unit; join it.
		return fn(ctx)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// txFrom returns the transaction carried on the context, if any.
func txFrom(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// session returns the context transaction or falls back to db.
func session(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
