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
	"gorm.io/gorm/clause"
)

// PaymentRepository implements outbound.PaymentDatabasePort.
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

var _ outbound.PaymentDatabasePort = (*PaymentRepository)(nil)

// Create implements outbound.PaymentDatabasePort.
func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if err := session(ctx, r.db).Create(payment).Error; err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID implements outbound.PaymentDatabasePort.
func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := session(ctx, r.db).First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment")
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &payment, nil
}

// FindByIDForUpdate implements outbound.PaymentDatabasePort. The SELECT
// FOR UPDATE lock serializes concurrent units touching the same payment
// until the surrounding transaction commits.
func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := session(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment")
		}
		return nil, fmt.Errorf("get payment for update: %w", err)
	}
	return &payment, nil
}

// FindByOrderAndUser implements outbound.PaymentDatabasePort.
func (r *PaymentRepository) FindByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment
	err := session(ctx, r.db).
		Where("order_id = ? AND user_id = ?", orderID, userID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment")
		}
		return nil, fmt.Errorf("get payment by order and user: %w", err)
	}
	return &payment, nil
}

// FindPending implements outbound.PaymentDatabasePort.
func (r *PaymentRepository) FindPending(ctx context.Context) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := session(ctx, r.db).
		Where("status = ?", model.PaymentStatusPending).
		Order("created_at ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list pending payments: %w", err)
	}
	return payments, nil
}

// Update implements outbound.PaymentDatabasePort. The version column is
// the optimistic concurrency token; a stale write is a conflict the
// caller retries from a fresh read.
func (r *PaymentRepository) Update(ctx context.Context, payment *model.Payment) error {
	currentVersion := payment.Version
	payment.Version++

	result := session(ctx, r.db).
		Model(&model.Payment{}).
		Where("id = ? AND version = ?", payment.ID, currentVersion).
		Select("method", "user_payment_method_id", "status", "retry_count", "checkout_url", "version", "updated_at").
		Updates(payment)
	if result.Error != nil {
		payment.Version = currentVersion
		return fmt.Errorf("update payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		payment.Version = currentVersion
		return apperrors.Conflict("payment was modified concurrently")
	}
	return nil
}
