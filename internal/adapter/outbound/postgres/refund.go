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

// RefundRepository implements outbound.RefundDatabasePort.
type RefundRepository struct {
	db *gorm.DB
}

// NewRefundRepository creates a new refund repository.
func NewRefundRepository(db *gorm.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

var _ outbound.RefundDatabasePort = (*RefundRepository)(nil)

// Create implements outbound.RefundDatabasePort.
func (r *RefundRepository) Create(ctx context.Context, refund *model.Refund) error {
	if err := session(ctx, r.db).Create(refund).Error; err != nil {
		return fmt.Errorf("create refund: %w", err)
	}
	return nil
}

// FindByID implements outbound.RefundDatabasePort.
func (r *RefundRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Refund, error) {
	var refund model.Refund
	err := session(ctx, r.db).First(&refund, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("refund")
		}
		return nil, fmt.Errorf("get refund: %w", err)
	}
	return &refund, nil
}

// FindByFilter implements outbound.RefundDatabasePort.
func (r *RefundRepository) FindByFilter(ctx context.Context, filter model.RefundFilter) ([]*model.Refund, int64, error) {
	query := session(ctx, r.db).Model(&model.Refund{})

	if filter.Status != nil {
		query = query.Where("refunds.status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("refunds.method = ?", *filter.Method)
	}
	if filter.PaymentID != nil {
		query = query.Where("refunds.payment_id = ?", *filter.PaymentID)
	}
	if filter.UserID != nil {
		query = query.
			Joins("JOIN payments ON payments.id = refunds.payment_id").
			Where("payments.user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		query = query.Where("refunds.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("refunds.created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count refunds: %w", err)
	}

	var refunds []*model.Refund
	err := query.
		Order("refunds.created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&refunds).Error
	if err != nil {
		return nil, 0, fmt.Errorf("search refunds: %w", err)
	}
	return refunds, total, nil
}

// FindPending implements outbound.RefundDatabasePort.
func (r *RefundRepository) FindPending(ctx context.Context) ([]*model.Refund, error) {
	var refunds []*model.Refund
	err := session(ctx, r.db).
		Where("status = ?", model.RefundStatusPending).
		Order("created_at ASC").
		Find(&refunds).Error
	if err != nil {
		return nil, fmt.Errorf("list pending refunds: %w", err)
	}
	return refunds, nil
}

// ActiveTotalByPayment implements outbound.RefundDatabasePort.
func (r *RefundRepository) ActiveTotalByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	var total int64
	err := session(ctx, r.db).
		Model(&model.Refund{}).
		Where("payment_id = ? AND status IN ?", paymentID, []model.RefundStatus{
			model.RefundStatusPending,
			model.RefundStatusCompleted,
		}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("sum active refunds: %w", err)
	}
	return total, nil
}

// Update implements outbound.RefundDatabasePort.
func (r *RefundRepository) Update(ctx context.Context, refund *model.Refund) error {
	currentVersion := refund.Version
	refund.Version++

	result := session(ctx, r.db).
		Model(&model.Refund{}).
		Where("id = ? AND version = ?", refund.ID, currentVersion).
		Select("method", "refund_transaction_id", "status", "retry_count", "processed_at", "version", "updated_at").
		Updates(refund)
	if result.Error != nil {
		refund.Version = currentVersion
		return fmt.Errorf("update refund: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		refund.Version = currentVersion
		return apperrors.Conflict("refund was modified concurrently")
	}
	return nil
}
