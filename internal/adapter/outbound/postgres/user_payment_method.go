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

// UserPaymentMethodRepository implements outbound.UserPaymentMethodDatabasePort.
type UserPaymentMethodRepository struct {
	db *gorm.DB
}

// NewUserPaymentMethodRepository creates a new user payment method repository.
func NewUserPaymentMethodRepository(db *gorm.DB) *UserPaymentMethodRepository {
	return &UserPaymentMethodRepository{db: db}
}

var _ outbound.UserPaymentMethodDatabasePort = (*UserPaymentMethodRepository)(nil)

// FindActiveByUserAndType implements outbound.UserPaymentMethodDatabasePort.
// The most recently added active instrument wins when several match.
func (r *UserPaymentMethodRepository) FindActiveByUserAndType(ctx context.Context, userID uuid.UUID, methodType model.PaymentMethod) (*model.UserPaymentMethod, error) {
	var method model.UserPaymentMethod
	err := session(ctx, r.db).
		Where("user_id = ? AND type = ? AND active = ?", userID, methodType, true).
		Order("created_at DESC").
		First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user payment method")
		}
		return nil, fmt.Errorf("get user payment method: %w", err)
	}
	return &method, nil
}
