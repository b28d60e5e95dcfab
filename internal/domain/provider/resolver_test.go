package provider

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/model"
	apperrors "github.com/payflow/server/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockConfigDB struct {
	mock.Mock
}

func (m *MockConfigDB) FindActive(ctx context.Context, provider, environment string) (*model.ProviderConfiguration, error) {
	args := m.Called(ctx, provider, environment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderConfiguration), args.Error(1)
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("card and wallet share a provider", func(t *testing.T) {
		db := new(MockConfigDB)
		cfg := &model.ProviderConfiguration{ID: uuid.New(), Provider: ProviderNova, Environment: "sandbox", Active: true}
		db.On("FindActive", mock.Anything, ProviderNova, "sandbox").Return(cfg, nil)

		r := NewResolver(db, "sandbox")

		got, err := r.Resolve(context.Background(), model.PaymentMethodCard)
		assert.NoError(t, err)
		assert.Same(t, cfg, got)

		got, err = r.Resolve(context.Background(), model.PaymentMethodWallet)
		assert.NoError(t, err)
		assert.Same(t, cfg, got)
	})

	t.Run("bank transfer resolves its own provider", func(t *testing.T) {
		db := new(MockConfigDB)
		cfg := &model.ProviderConfiguration{ID: uuid.New(), Provider: ProviderAtlas, Environment: "production", Active: true}
		db.On("FindActive", mock.Anything, ProviderAtlas, "production").Return(cfg, nil)

		r := NewResolver(db, "production")
		got, err := r.Resolve(context.Background(), model.PaymentMethodBankTransfer)
		assert.NoError(t, err)
		assert.Same(t, cfg, got)
	})

	t.Run("cash maps to no provider", func(t *testing.T) {
		db := new(MockConfigDB)
		r := NewResolver(db, "sandbox")

		_, err := r.Resolve(context.Background(), model.PaymentMethodCash)
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
		db.AssertNotCalled(t, "FindActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing configuration is a configuration error", func(t *testing.T) {
		db := new(MockConfigDB)
		db.On("FindActive", mock.Anything, ProviderNova, "sandbox").Return(nil, apperrors.NotFound("provider configuration"))

		r := NewResolver(db, "sandbox")
		_, err := r.Resolve(context.Background(), model.PaymentMethodCard)
		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
	})
}
