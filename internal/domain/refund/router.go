package refund

import "github.com/payflow/server/internal/model"

// Router selects how a refund is paid out for a given payment method.
// Routing is derived from the payment, never chosen by the caller.
type Router interface {
	Route(method model.PaymentMethod) model.RefundMethod
}

type defaultRouter struct{}

// NewRouter creates the default routing strategy: cash payments settle
// manually, everything else goes back through the original gateway route.
func NewRouter() Router {
	return defaultRouter{}
}

func (defaultRouter) Route(method model.PaymentMethod) model.RefundMethod {
	if method.IsCash() {
		return model.RefundMethodManual
	}
	return model.RefundMethodOriginal
}
