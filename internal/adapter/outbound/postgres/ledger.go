package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/outbound"
	apperrors "github.com/payflow/server/internal/shared/errors"
	"gorm.io/gorm"
)

// LedgerRepository implements outbound.LedgerPort. Transactions and
// gateway responses are append-only; there is no update path.
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

var _ outbound.LedgerPort = (*LedgerRepository)(nil)

// AppendTransaction implements outbound.LedgerPort.
func (r *LedgerRepository) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := session(ctx, r.db).Create(txn).Error; err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// AppendGatewayResponse implements outbound.LedgerPort.
func (r *LedgerRepository) AppendGatewayResponse(ctx context.Context, resp *model.GatewayResponse) error {
	if err := session(ctx, r.db).Create(resp).Error; err != nil {
		return fmt.Errorf("append gateway response: %w", err)
	}
	return nil
}

// LatestByPayment implements outbound.LedgerPort.
func (r *LedgerRepository) LatestByPayment(ctx context.Context, paymentID uuid.UUID) (*model.Transaction, error) {
	var txn model.Transaction
	err := session(ctx, r.db).
		Where("payment_id = ? AND refund_id IS NULL", paymentID).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("transaction")
		}
		return nil, fmt.Errorf("latest transaction by payment: %w", err)
	}
	return &txn, nil
}

// LatestByRefund implements outbound.LedgerPort.
func (r *LedgerRepository) LatestByRefund(ctx context.Context, refundID uuid.UUID) (*model.Transaction, error) {
	var txn model.Transaction
	err := session(ctx, r.db).
		Where("refund_id = ?", refundID).
		Order("created_at DESC").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("transaction")
		}
		return nil, fmt.Errorf("latest transaction by refund: %w", err)
	}
	return &txn, nil
}

// FindTransaction implements outbound.LedgerPort.
func (r *LedgerRepository) FindTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var txn model.Transaction
	err := session(ctx, r.db).First(&txn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("transaction")
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &txn, nil
}
