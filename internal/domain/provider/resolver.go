package provider

import (
	"context"
	"fmt"

	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/port/outbound"
	apperrors "github.com/payflow/server/internal/shared/errors"
)

// Gateway provider identifiers. Card and wallet ride the same provider;
// cash maps to none.
const (
	ProviderNova  = "nova"
	ProviderAtlas = "atlas"
)

// providerForMethod is the fixed mapping from payment method type to
// gateway provider.
var providerForMethod = map[model.PaymentMethod]string{
	model.PaymentMethodCard:         ProviderNova,
	model.PaymentMethodWallet:       ProviderNova,
	model.PaymentMethodBankTransfer: ProviderAtlas,
}

// Resolver resolves the active provider configuration for a payment
// method in the deployment environment.
type Resolver interface {
	// Resolve returns the active configuration for the method. A
	// missing or inactive configuration is a hard configuration error,
	// never retried.
	Resolve(ctx context.Context, method model.PaymentMethod) (*model.ProviderConfiguration, error)
}

type resolver struct {
	configDB    outbound.ProviderConfigDatabasePort
	environment string
}

// NewResolver creates a configuration resolver bound to one environment.
func NewResolver(configDB outbound.ProviderConfigDatabasePort, environment string) Resolver {
	return &resolver{configDB: configDB, environment: environment}
}

func (r *resolver) Resolve(ctx context.Context, method model.PaymentMethod) (*model.ProviderConfiguration, error) {
	name, ok := providerForMethod[method]
	if !ok {
		return nil, apperrors.Configuration(fmt.Sprintf("no gateway provider for method %q", method))
	}

	cfg, err := r.configDB.FindActive(ctx, name, r.environment)
	if err != nil {
		return nil, apperrors.Configuration(fmt.Sprintf("no active configuration for provider %q in %q", name, r.environment))
	}
	return cfg, nil
}
