package outbound

import (
	"context"

	"github.com/payflow/server/internal/model"
)

// GatewayPort abstracts the external payment gateway. Calls are slow
// and unreliable; implementations bound them with a timeout and report
// a timeout as a failed result, never as success.
type GatewayPort interface {
	// CreateCheckoutSession opens a gateway-hosted collection flow and
	// returns its URL and provider reference.
	CreateCheckoutSession(ctx context.Context, cfg *model.ProviderConfiguration, req *model.CheckoutRequest) (*model.GatewayResult, error)

	// GetPaymentDetails queries the current gateway-side status of a
	// previous interaction by its provider reference.
	GetPaymentDetails(ctx context.Context, cfg *model.ProviderConfiguration, referenceID string) (*model.GatewayResult, error)

	// ProcessRefund asks the gateway to return funds against an
	// original transaction reference.
	ProcessRefund(ctx context.Context, cfg *model.ProviderConfiguration, req *model.GatewayRefundRequest) (*model.GatewayResult, error)
}

// ProviderConfigDatabasePort defines provider configuration lookups.
type ProviderConfigDatabasePort interface {
	// FindActive finds the single active configuration for a provider
	// in an environment.
	FindActive(ctx context.Context, provider, environment string) (*model.ProviderConfiguration, error)
}
