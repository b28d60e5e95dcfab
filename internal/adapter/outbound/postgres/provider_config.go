package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/outbound"
	apperrors "github.com/payflow/server/internal/shared/errors"
	"gorm.io/gorm"
)

// ProviderConfigRepository implements outbound.ProviderConfigDatabasePort.
// Configuration rows are managed out of band; this side only reads.
type ProviderConfigRepository struct {
	db *gorm.DB
}

// NewProviderConfigRepository creates a new provider configuration repository.
func NewProviderConfigRepository(db *gorm.DB) *ProviderConfigRepository {
	return &ProviderConfigRepository{db: db}
}

var _ outbound.ProviderConfigDatabasePort = (*ProviderConfigRepository)(nil)

// FindActive implements outbound.ProviderConfigDatabasePort.
func (r *ProviderConfigRepository) FindActive(ctx context.Context, provider, environment string) (*model.ProviderConfiguration, error) {
	var cfg model.ProviderConfiguration
	err := session(ctx, r.db).
		Where("provider = ? AND environment = ? AND active = ?", provider, environment, true).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("provider configuration")
		}
		return nil, fmt.Errorf("get provider configuration: %w", err)
	}
	return &cfg, nil
}
