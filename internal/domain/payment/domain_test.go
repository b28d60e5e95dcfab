package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/payflow/server/internal/model"
	apperrors "github.com/payflow/server/internal/shared/errors"
	"github.com/payflow/server/internal/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// --- Mock implementations ---

type MockPaymentDB struct {
	mock.Mock
}

func (m *MockPaymentDB) Create(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentDB) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentDB) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentDB) FindByOrderAndUser(ctx context.Context, orderID, userID uuid.UUID) (*model.Payment, error) {
	args := m.Called(ctx, orderID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Payment), args.Error(1)
}

func (m *MockPaymentDB) FindPending(ctx context.Context) ([]*model.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Payment), args.Error(1)
}

func (m *MockPaymentDB) Update(ctx context.Context, payment *model.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

type MockInstrumentDB struct {
	mock.Mock
}

func (m *MockInstrumentDB) FindActiveByUserAndType(ctx context.Context, userID uuid.UUID, methodType model.PaymentMethod) (*model.UserPaymentMethod, error) {
	args := m.Called(ctx, userID, methodType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPaymentMethod), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AppendTransaction(ctx context.Context, txn *model.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockLedger) AppendGatewayResponse(ctx context.Context, resp *model.GatewayResponse) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}

func (m *MockLedger) LatestByPayment(ctx context.Context, paymentID uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockLedger) LatestByRefund(ctx context.Context, refundID uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, refundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockLedger) FindTransaction(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, method model.PaymentMethod) (*model.ProviderConfiguration, error) {
	args := m.Called(ctx, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProviderConfiguration), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, cfg *model.ProviderConfiguration, req *model.CheckoutRequest) (*model.GatewayResult, error) {
	args := m.Called(ctx, cfg, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewayResult), args.Error(1)
}

func (m *MockGateway) GetPaymentDetails(ctx context.Context, cfg *model.ProviderConfiguration, referenceID string) (*model.GatewayResult, error) {
	args := m.Called(ctx, cfg, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewayResult), args.Error(1)
}

func (m *MockGateway) ProcessRefund(ctx context.Context, cfg *model.ProviderConfiguration, req *model.GatewayRefundRequest) (*model.GatewayResult, error) {
	args := m.Called(ctx, cfg, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GatewayResult), args.Error(1)
}

// passthroughUoW runs the unit body directly; atomicity is the
// database adapter's concern, not the domain's.
type passthroughUoW struct{}

func (passthroughUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Fixtures ---

type fixture struct {
	paymentDB    *MockPaymentDB
	instrumentDB *MockInstrumentDB
	ledger       *MockLedger
	resolver     *MockResolver
	gateway      *MockGateway
	metrics      *metrics.Metrics
	domain       PaymentDomain
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		paymentDB:    new(MockPaymentDB),
		instrumentDB: new(MockInstrumentDB),
		ledger:       new(MockLedger),
		resolver:     new(MockResolver),
		gateway:      new(MockGateway),
		metrics:      metrics.New("test", prometheus.NewRegistry()),
	}
	f.domain = NewPaymentDomain(
		f.paymentDB, f.instrumentDB, f.ledger,
		f.resolver, f.gateway, passthroughUoW{}, nil,
		f.metrics, zap.NewNop(),
	)
	return f
}

func testConfig() *model.ProviderConfiguration {
	return &model.ProviderConfiguration{
		ID:          uuid.New(),
		Provider:    "nova",
		Environment: "sandbox",
		EndpointURL: "https://gw.example.com",
		Active:      true,
	}
}

func pendingSession() *model.GatewayResult {
	return &model.GatewayResult{
		Status:      model.GatewayStatusPending,
		StatusCode:  "102",
		ReferenceID: "nova_abc123",
		CheckoutURL: "https://gw.example.com/checkout/nova_abc123",
		Timestamp:   time.Now(),
	}
}

// --- Tests ---

func TestPaymentDomain_InitiatePayment(t *testing.T) {
	t.Run("rejects invalid input", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.domain.InitiatePayment(context.Background(), nil)
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		_, err = f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: uuid.New(), UserID: uuid.New(), Amount: 100, Currency: "USD", Method: "crypto",
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		_, err = f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: uuid.New(), UserID: uuid.New(), Amount: 0, Currency: "USD", Method: model.PaymentMethodCard,
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		_, err = f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: uuid.New(), UserID: uuid.New(), Amount: 100, Method: model.PaymentMethodCard,
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("reuses active payment for the same order and user", func(t *testing.T) {
		f := newFixture(t)
		existing := &model.Payment{
			ID:      uuid.New(),
			OrderID: uuid.New(),
			UserID:  uuid.New(),
			Method:  model.PaymentMethodCard,
			Amount:  1000,
			Status:  model.PaymentStatusPending,
		}
		f.paymentDB.On("FindByOrderAndUser", mock.Anything, existing.OrderID, existing.UserID).Return(existing, nil)

		got, err := f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: existing.OrderID, UserID: existing.UserID,
			Amount: 1000, Currency: "USD", Method: model.PaymentMethodCard,
		})

		assert.NoError(t, err)
		assert.Same(t, existing, got)
		f.paymentDB.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("canceled previous attempt does not block a new one", func(t *testing.T) {
		f := newFixture(t)
		orderID, userID := uuid.New(), uuid.New()
		f.paymentDB.On("FindByOrderAndUser", mock.Anything, orderID, userID).Return(&model.Payment{
			ID: uuid.New(), Status: model.PaymentStatusCanceled,
		}, nil)
		f.instrumentDB.On("FindActiveByUserAndType", mock.Anything, userID, model.PaymentMethodCard).Return(nil, apperrors.NotFound("user payment method"))
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.paymentDB.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)
		f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).Return(pendingSession(), nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)
		f.paymentDB.On("Update", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)

		got, err := f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: orderID, UserID: userID, Amount: 1000, Currency: "USD", Method: model.PaymentMethodCard,
		})

		assert.NoError(t, err)
		assert.NotNil(t, got)
		f.paymentDB.AssertCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("cash payment is created pending without touching the gateway", func(t *testing.T) {
		f := newFixture(t)
		orderID, userID := uuid.New(), uuid.New()
		f.paymentDB.On("FindByOrderAndUser", mock.Anything, orderID, userID).Return(nil, apperrors.NotFound("payment"))
		f.paymentDB.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)

		got, err := f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: orderID, UserID: userID, Amount: 500, Currency: "USD", Method: model.PaymentMethodCash,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, got.Status)
		assert.Empty(t, got.CheckoutURL)
		f.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
		f.ledger.AssertNotCalled(t, "AppendTransaction", mock.Anything, mock.Anything)
	})

	t.Run("card payment opens a session and writes the audit pair", func(t *testing.T) {
		f := newFixture(t)
		orderID, userID := uuid.New(), uuid.New()
		instrument := &model.UserPaymentMethod{ID: uuid.New(), UserID: userID, Type: model.PaymentMethodCard, Active: true}

		f.paymentDB.On("FindByOrderAndUser", mock.Anything, orderID, userID).Return(nil, apperrors.NotFound("payment"))
		f.instrumentDB.On("FindActiveByUserAndType", mock.Anything, userID, model.PaymentMethodCard).Return(instrument, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.paymentDB.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)
		f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).Return(pendingSession(), nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.Status == model.TransactionStatusPending && txn.GatewayRef == "nova_abc123"
		})).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)
		f.paymentDB.On("Update", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)

		got, err := f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: orderID, UserID: userID, Amount: 1000, Currency: "USD", Method: model.PaymentMethodCard,
		})

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, got.Status)
		assert.Equal(t, "https://gw.example.com/checkout/nova_abc123", got.CheckoutURL)
		assert.Equal(t, &instrument.ID, got.UserPaymentMethodID)
		f.ledger.AssertExpectations(t)
		// The session call is counted and timed.
		assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.GatewayCallsTotal, "test_gateway_calls_total"))
		assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.GatewayCallDuration, "test_gateway_call_duration_seconds"))
	})

	t.Run("gateway failure is audited and surfaces as gateway unavailable", func(t *testing.T) {
		f := newFixture(t)
		orderID, userID := uuid.New(), uuid.New()
		f.paymentDB.On("FindByOrderAndUser", mock.Anything, orderID, userID).Return(nil, apperrors.NotFound("payment"))
		f.instrumentDB.On("FindActiveByUserAndType", mock.Anything, userID, model.PaymentMethodCard).Return(nil, apperrors.NotFound("user payment method"))
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.paymentDB.On("Create", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)
		f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
		f.ledger.On("AppendTransaction", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.Status == model.TransactionStatusFailed
		})).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)
		f.paymentDB.On("Update", mock.Anything, mock.AnythingOfType("*model.Payment")).Return(nil)

		got, err := f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: orderID, UserID: userID, Amount: 1000, Currency: "USD", Method: model.PaymentMethodCard,
		})

		assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
		assert.Nil(t, got)
		// The failed attempt and its audit rows still commit.
		f.ledger.AssertExpectations(t)
		f.paymentDB.AssertCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unresolvable configuration fails before anything persists", func(t *testing.T) {
		f := newFixture(t)
		orderID, userID := uuid.New(), uuid.New()
		f.paymentDB.On("FindByOrderAndUser", mock.Anything, orderID, userID).Return(nil, apperrors.NotFound("payment"))
		f.instrumentDB.On("FindActiveByUserAndType", mock.Anything, userID, model.PaymentMethodBankTransfer).Return(nil, apperrors.NotFound("user payment method"))
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodBankTransfer).Return(nil, apperrors.Configuration("no active configuration"))

		_, err := f.domain.InitiatePayment(context.Background(), &model.InitiatePaymentRequest{
			OrderID: orderID, UserID: userID, Amount: 1000, Currency: "USD", Method: model.PaymentMethodBankTransfer,
		})

		assert.ErrorIs(t, err, apperrors.ErrConfiguration)
		f.paymentDB.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestPaymentDomain_GetStatus(t *testing.T) {
	t.Run("unknown id returns nil without error", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.paymentDB.On("FindByID", mock.Anything, id).Return(nil, apperrors.NotFound("payment"))

		got, err := f.domain.GetStatus(context.Background(), id)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("found", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Status: model.PaymentStatusCompleted}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		got, err := f.domain.GetStatus(context.Background(), p.ID)
		assert.NoError(t, err)
		assert.Same(t, p, got)
	})
}

func TestPaymentDomain_CancelPayment(t *testing.T) {
	t.Run("pending payment cancels", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Status: model.PaymentStatusPending}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		f.paymentDB.On("Update", mock.Anything, p).Return(nil)

		canceled, err := f.domain.CancelPayment(context.Background(), p.ID)
		assert.NoError(t, err)
		assert.True(t, canceled)
		assert.Equal(t, model.PaymentStatusCanceled, p.Status)
	})

	t.Run("completed payment cannot cancel", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Status: model.PaymentStatusCompleted}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		canceled, err := f.domain.CancelPayment(context.Background(), p.ID)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		assert.False(t, canceled)
		f.paymentDB.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.paymentDB.On("FindByID", mock.Anything, id).Return(nil, apperrors.NotFound("payment"))

		canceled, err := f.domain.CancelPayment(context.Background(), id)
		assert.NoError(t, err)
		assert.False(t, canceled)
	})
}

func TestPaymentDomain_RetryPayment(t *testing.T) {
	t.Run("unknown id is a no-op", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.paymentDB.On("FindByID", mock.Anything, id).Return(nil, apperrors.NotFound("payment"))

		got, err := f.domain.RetryPayment(context.Background(), id, nil)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("completed payment cannot be retried", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Status: model.PaymentStatusCompleted}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		_, err := f.domain.RetryPayment(context.Background(), p.ID, nil)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("failed payment re-drives through the gateway", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{
			ID: uuid.New(), UserID: uuid.New(),
			Method: model.PaymentMethodCard, Amount: 1000, Currency: "USD",
			Status: model.PaymentStatusFailed, RetryCount: 1,
		}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).Return(pendingSession(), nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)
		f.paymentDB.On("Update", mock.Anything, p).Return(nil)

		got, err := f.domain.RetryPayment(context.Background(), p.ID, nil)

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPending, got.Status)
		assert.Equal(t, 2, got.RetryCount)
		assert.NotEmpty(t, got.CheckoutURL)
	})

	t.Run("method override to cash skips the gateway", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{
			ID: uuid.New(), UserID: uuid.New(),
			Method: model.PaymentMethodCard, Amount: 1000, Currency: "USD",
			Status: model.PaymentStatusFailed,
			UserPaymentMethodID: func() *uuid.UUID { id := uuid.New(); return &id }(),
		}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		f.paymentDB.On("Update", mock.Anything, p).Return(nil)

		cash := model.PaymentMethodCash
		got, err := f.domain.RetryPayment(context.Background(), p.ID, &cash)

		assert.NoError(t, err)
		assert.Equal(t, model.PaymentMethodCash, got.Method)
		assert.Equal(t, model.PaymentStatusPending, got.Status)
		assert.Nil(t, got.UserPaymentMethodID)
		f.gateway.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway failure rolls back the retry", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{
			ID: uuid.New(), UserID: uuid.New(),
			Method: model.PaymentMethodCard, Amount: 1000, Currency: "USD",
			Status: model.PaymentStatusFailed,
		}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.gateway.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

		_, err := f.domain.RetryPayment(context.Background(), p.ID, nil)

		assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
		f.ledger.AssertNotCalled(t, "AppendTransaction", mock.Anything, mock.Anything)
		f.paymentDB.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestPaymentDomain_ProcessPendingPayments(t *testing.T) {
	t.Run("advances settled payments and skips cash and capped ones", func(t *testing.T) {
		f := newFixture(t)
		cfg := testConfig()

		settled := &model.Payment{
			ID: uuid.New(), Method: model.PaymentMethodCard,
			Amount: 1000, Status: model.PaymentStatusPending,
		}
		cash := &model.Payment{
			ID: uuid.New(), Method: model.PaymentMethodCash,
			Status: model.PaymentStatusPending,
		}
		capped := &model.Payment{
			ID: uuid.New(), Method: model.PaymentMethodCard,
			Status: model.PaymentStatusPending, RetryCount: model.MaxAttempts,
		}

		f.paymentDB.On("FindPending", mock.Anything).Return([]*model.Payment{settled, cash, capped}, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(cfg, nil)
		f.ledger.On("LatestByPayment", mock.Anything, settled.ID).Return(&model.Transaction{
			ID: uuid.New(), GatewayRef: "nova_abc123",
		}, nil)
		f.gateway.On("GetPaymentDetails", mock.Anything, cfg, "nova_abc123").Return(&model.GatewayResult{
			Status: model.GatewayStatusSuccess, StatusCode: "200", ReferenceID: "nova_abc123",
		}, nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)
		f.paymentDB.On("Update", mock.Anything, settled).Return(nil)

		advanced, err := f.domain.ProcessPendingPayments(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 1, advanced)
		assert.Equal(t, model.PaymentStatusCompleted, settled.Status)
	})

	t.Run("one failing item does not stop the sweep", func(t *testing.T) {
		f := newFixture(t)
		broken := &model.Payment{ID: uuid.New(), Method: model.PaymentMethodCard, Status: model.PaymentStatusPending}
		fine := &model.Payment{ID: uuid.New(), Method: model.PaymentMethodCard, Amount: 500, Status: model.PaymentStatusPending}
		cfg := testConfig()

		f.paymentDB.On("FindPending", mock.Anything).Return([]*model.Payment{broken, fine}, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(cfg, nil)
		f.ledger.On("LatestByPayment", mock.Anything, broken.ID).Return(&model.Transaction{GatewayRef: "nova_broken"}, nil)
		f.gateway.On("GetPaymentDetails", mock.Anything, cfg, "nova_broken").Return(&model.GatewayResult{
			Status: model.GatewayStatusSuccess, StatusCode: "200",
		}, nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.PaymentID != nil && *txn.PaymentID == broken.ID
		})).Return(errors.New("ledger write failed"))

		f.ledger.On("LatestByPayment", mock.Anything, fine.ID).Return(&model.Transaction{GatewayRef: "nova_fine"}, nil)
		f.gateway.On("GetPaymentDetails", mock.Anything, cfg, "nova_fine").Return(&model.GatewayResult{
			Status: model.GatewayStatusSuccess, StatusCode: "200",
		}, nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.PaymentID != nil && *txn.PaymentID == fine.ID
		})).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)
		f.paymentDB.On("Update", mock.Anything, fine).Return(nil)

		advanced, err := f.domain.ProcessPendingPayments(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, 1, advanced)
	})

	t.Run("payment without a gateway reference is left alone", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Method: model.PaymentMethodCard, Status: model.PaymentStatusPending}
		f.paymentDB.On("FindPending", mock.Anything).Return([]*model.Payment{p}, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.ledger.On("LatestByPayment", mock.Anything, p.ID).Return(&model.Transaction{GatewayRef: ""}, nil)

		advanced, err := f.domain.ProcessPendingPayments(context.Background())

		assert.NoError(t, err)
		assert.Zero(t, advanced)
		f.gateway.AssertNotCalled(t, "GetPaymentDetails", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentDomain_HandleWebhook(t *testing.T) {
	completeEvent := func(paymentID uuid.UUID, code string) *model.WebhookEvent {
		return &model.WebhookEvent{
			PaymentID:  &paymentID,
			Status:     "Success",
			StatusCode: code,
			RawBody:    `{"ok":true}`,
		}
	}

	t.Run("incomplete event is rejected", func(t *testing.T) {
		f := newFixture(t)
		assert.False(t, f.domain.HandleWebhook(context.Background(), nil))
		assert.False(t, f.domain.HandleWebhook(context.Background(), &model.WebhookEvent{Status: "Success"}))

		id := uuid.New()
		assert.False(t, f.domain.HandleWebhook(context.Background(), &model.WebhookEvent{PaymentID: &id}))
	})

	t.Run("unknown payment is rejected", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.paymentDB.On("FindByID", mock.Anything, id).Return(nil, apperrors.NotFound("payment"))

		assert.False(t, f.domain.HandleWebhook(context.Background(), completeEvent(id, "200")))
	})

	t.Run("cash payment event is rejected without a ledger row", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Method: model.PaymentMethodCash, Status: model.PaymentStatusPending}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)

		assert.False(t, f.domain.HandleWebhook(context.Background(), completeEvent(p.ID, "200")))
		f.ledger.AssertNotCalled(t, "AppendTransaction", mock.Anything, mock.Anything)
	})

	t.Run("success event completes a pending payment", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Method: model.PaymentMethodCard, Amount: 1000, Status: model.PaymentStatusPending}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.MatchedBy(func(txn *model.Transaction) bool {
			return txn.Status == model.TransactionStatusSuccess && txn.PerformedBy == "webhook"
		})).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)
		f.paymentDB.On("Update", mock.Anything, p).Return(nil)

		assert.True(t, f.domain.HandleWebhook(context.Background(), completeEvent(p.ID, "200")))
		assert.Equal(t, model.PaymentStatusCompleted, p.Status)
	})

	t.Run("duplicate delivery keeps the audit row and drops the transition", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Method: model.PaymentMethodCard, Amount: 1000, Status: model.PaymentStatusCompleted}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)

		assert.True(t, f.domain.HandleWebhook(context.Background(), completeEvent(p.ID, "200")))
		assert.Equal(t, model.PaymentStatusCompleted, p.Status)
		f.paymentDB.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.ledger.AssertExpectations(t)
	})

	t.Run("pending event is audit only", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Method: model.PaymentMethodCard, Amount: 1000, Status: model.PaymentStatusPending}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)

		assert.True(t, f.domain.HandleWebhook(context.Background(), completeEvent(p.ID, "102")))
		assert.Equal(t, model.PaymentStatusPending, p.Status)
		f.paymentDB.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("failed event never resurrects a failed payment", func(t *testing.T) {
		f := newFixture(t)
		p := &model.Payment{ID: uuid.New(), Method: model.PaymentMethodCard, Amount: 1000, Status: model.PaymentStatusFailed}
		f.paymentDB.On("FindByID", mock.Anything, p.ID).Return(p, nil)
		f.resolver.On("Resolve", mock.Anything, model.PaymentMethodCard).Return(testConfig(), nil)
		f.ledger.On("AppendTransaction", mock.Anything, mock.AnythingOfType("*model.Transaction")).Return(nil)
		f.ledger.On("AppendGatewayResponse", mock.Anything, mock.AnythingOfType("*model.GatewayResponse")).Return(nil)

		assert.True(t, f.domain.HandleWebhook(context.Background(), completeEvent(p.ID, "500")))
		assert.Equal(t, model.PaymentStatusFailed, p.Status)
		f.paymentDB.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}
