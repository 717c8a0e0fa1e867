package orchestrator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Laimiu-debug/lifecard-exchange/internal/config"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/card"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/coin"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/collection"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/outbox"
	"github.com/Laimiu-debug/lifecard-exchange/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTxRunner invokes the function directly, without a real transaction
type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	m.Called(ctx)
	return fn(nil)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, req *exchange.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockStore) GetByID(ctx context.Context, id uuid.UUID) (*exchange.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*exchange.Request), args.Error(1)
}

func (m *MockStore) HasPending(ctx context.Context, requesterID, cardID uuid.UUID) (bool, error) {
	args := m.Called(ctx, requesterID, cardID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) TransitionFromPending(ctx context.Context, id uuid.UUID, next exchange.Status) (bool, error) {
	args := m.Called(ctx, id, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListPendingForOwner(ctx context.Context, ownerID uuid.UUID) ([]*exchange.Request, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*exchange.Request), args.Error(1)
}

func (m *MockStore) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]*exchange.Request, error) {
	args := m.Called(ctx, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*exchange.Request), args.Error(1)
}

func (m *MockStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*exchange.Request, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*exchange.Request), args.Error(1)
}

func (m *MockStore) WithTx(tx pgx.Tx) exchange.Store { return m }

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, userID uuid.UUID, amount int64, reason coin.Reason, referenceID uuid.UUID) (int64, *coin.Transaction, error) {
	args := m.Called(ctx, userID, amount, reason, referenceID)
	var txn *coin.Transaction
	if args.Get(1) != nil {
		txn = args.Get(1).(*coin.Transaction)
	}
	return args.Get(0).(int64), txn, args.Error(2)
}

func (m *MockLedger) Credit(ctx context.Context, userID uuid.UUID, amount int64, reason coin.Reason, referenceID uuid.UUID) (int64, *coin.Transaction, error) {
	args := m.Called(ctx, userID, amount, reason, referenceID)
	var txn *coin.Transaction
	if args.Get(1) != nil {
		txn = args.Get(1).(*coin.Transaction)
	}
	return args.Get(0).(int64), txn, args.Error(2)
}

func (m *MockLedger) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*coin.Transaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*coin.Transaction), args.Error(1)
}

func (m *MockLedger) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedger) WithTx(tx pgx.Tx) coin.Ledger { return m }

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetPricingInfo(ctx context.Context, cardID uuid.UUID) (*card.PricingInfo, error) {
	args := m.Called(ctx, cardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*card.PricingInfo), args.Error(1)
}

func (m *MockCatalog) IncrementExchangeCount(ctx context.Context, cardID uuid.UUID) error {
	args := m.Called(ctx, cardID)
	return args.Error(0)
}

func (m *MockCatalog) WithTx(tx pgx.Tx) card.Catalog { return m }

type MockGrantor struct {
	mock.Mock
}

func (m *MockGrantor) Grant(ctx context.Context, userID, cardID uuid.UUID) error {
	args := m.Called(ctx, userID, cardID)
	return args.Error(0)
}

func (m *MockGrantor) Contains(ctx context.Context, userID, cardID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, cardID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGrantor) WithTx(tx pgx.Tx) collection.Grantor { return m }

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository { return m }

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*exchange.Record, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*exchange.Record), args.Error(1)
}

func (m *MockHistory) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type testMocks struct {
	txRunner *MockTxRunner
	store    *MockStore
	ledger   *MockLedger
	catalog  *MockCatalog
	grantor  *MockGrantor
	outbox   *MockOutboxRepo
	history  *MockHistory
}

func newTestOrchestrator(t *testing.T) (Service, *testMocks) {
	t.Helper()

	mocks := &testMocks{
		txRunner: &MockTxRunner{},
		store:    &MockStore{},
		ledger:   &MockLedger{},
		catalog:  &MockCatalog{},
		grantor:  &MockGrantor{},
		outbox:   &MockOutboxRepo{},
		history:  &MockHistory{},
	}
	mocks.txRunner.On("ExecuteTx", mock.Anything).Maybe()

	calc := pricing.NewCalculator(&config.PricingConfig{
		LikesPerCoin:     10,
		PerExchangeBonus: 2,
		MaxBonus:         50,
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewOrchestrator(
		mocks.txRunner,
		mocks.store,
		mocks.ledger,
		mocks.catalog,
		mocks.grantor,
		mocks.outbox,
		mocks.history,
		calc,
		72*time.Hour,
		logger,
	)
	return service, mocks
}

func pendingRequest(requesterID, cardID, ownerID uuid.UUID, amount int64) *exchange.Request {
	now := time.Now().UTC()
	return &exchange.Request{
		ID:          uuid.New(),
		RequesterID: requesterID,
		CardID:      cardID,
		OwnerID:     ownerID,
		CoinAmount:  amount,
		Status:      exchange.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(72 * time.Hour),
		UpdatedAt:   now,
	}
}

func TestOrchestrator_Create(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()
	cardID := uuid.New()

	info := &card.PricingInfo{
		CardID:        cardID,
		OwnerID:       ownerID,
		BasePrice:     100,
		LikeCount:     30,
		ExchangeCount: 2,
	}
	// 100 base + 30/10 likes + 2*2 exchanges
	const wantPrice = int64(107)

	t.Run("success", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)

		mocks.catalog.On("GetPricingInfo", ctx, cardID).Return(info, nil)
		mocks.grantor.On("Contains", ctx, requesterID, cardID).Return(false, nil)
		mocks.store.On("HasPending", ctx, requesterID, cardID).Return(false, nil)
		mocks.ledger.On("Debit", ctx, requesterID, wantPrice, coin.ReasonExchangeEscrow, mock.Anything).
			Return(int64(893), &coin.Transaction{}, nil)
		mocks.store.On("Create", ctx, mock.Anything).Return(nil)
		mocks.outbox.On("Create", ctx, mock.Anything).Return(nil)

		created, err := service.Create(ctx, requesterID, cardID, "trade?")
		require.NoError(t, err)

		assert.Equal(t, wantPrice, created.CoinAmount)
		assert.Equal(t, exchange.StatusPending, created.Status)
		assert.Equal(t, ownerID, created.OwnerID)
		assert.Equal(t, "trade?", created.Message)
		mocks.store.AssertExpectations(t)
		mocks.ledger.AssertExpectations(t)
		mocks.outbox.AssertExpectations(t)
	})

	t.Run("card not found", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)

		mocks.catalog.On("GetPricingInfo", ctx, cardID).Return(nil, card.ErrCardNotFound{CardID: cardID})

		_, err := service.Create(ctx, requesterID, cardID, "")
		assert.ErrorIs(t, err, card.ErrCardNotFound{CardID: cardID})
	})

	t.Run("own card", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)

		ownInfo := *info
		ownInfo.OwnerID = requesterID
		mocks.catalog.On("GetPricingInfo", ctx, cardID).Return(&ownInfo, nil)

		_, err := service.Create(ctx, requesterID, cardID, "")
		assert.ErrorIs(t, err, exchange.ErrCannotExchangeOwnCard)
	})

	t.Run("already collected", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)

		mocks.catalog.On("GetPricingInfo", ctx, cardID).Return(info, nil)
		mocks.grantor.On("Contains", ctx, requesterID, cardID).Return(true, nil)

		_, err := service.Create(ctx, requesterID, cardID, "")
		assert.ErrorIs(t, err, exchange.ErrAlreadyCollected)
	})

	t.Run("already requested", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)

		mocks.catalog.On("GetPricingInfo", ctx, cardID).Return(info, nil)
		mocks.grantor.On("Contains", ctx, requesterID, cardID).Return(false, nil)
		mocks.store.On("HasPending", ctx, requesterID, cardID).Return(true, nil)

		_, err := service.Create(ctx, requesterID, cardID, "")
		assert.ErrorIs(t, err, exchange.ErrAlreadyRequested)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)

		mocks.catalog.On("GetPricingInfo", ctx, cardID).Return(info, nil)
		mocks.grantor.On("Contains", ctx, requesterID, cardID).Return(false, nil)
		mocks.store.On("HasPending", ctx, requesterID, cardID).Return(false, nil)
		mocks.ledger.On("Debit", ctx, requesterID, wantPrice, coin.ReasonExchangeEscrow, mock.Anything).
			Return(int64(0), nil, coin.ErrInsufficientBalance)

		_, err := service.Create(ctx, requesterID, cardID, "")
		assert.ErrorIs(t, err, coin.ErrInsufficientBalance)
		mocks.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestOrchestrator_Accept(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()
	cardID := uuid.New()

	t.Run("success", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 107)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)
		mocks.store.On("TransitionFromPending", ctx, req.ID, exchange.StatusAccepted).Return(true, nil)
		mocks.ledger.On("Credit", ctx, ownerID, int64(107), coin.ReasonExchangeSettlement, req.ID).
			Return(int64(607), &coin.Transaction{}, nil)
		mocks.grantor.On("Grant", ctx, requesterID, cardID).Return(nil)
		mocks.catalog.On("IncrementExchangeCount", ctx, cardID).Return(nil)
		mocks.outbox.On("Create", ctx, mock.Anything).Return(nil)
		mocks.ledger.On("Balance", ctx, requesterID).Return(int64(893), nil)

		result, err := service.Accept(ctx, req.ID, ownerID)
		require.NoError(t, err)

		assert.Equal(t, req.ID, result.ExchangeID)
		assert.Equal(t, cardID, result.CardID)
		assert.Equal(t, int64(893), result.RequesterNewBalance)
		assert.Equal(t, int64(607), result.OwnerNewBalance)
		mocks.store.AssertExpectations(t)
		mocks.grantor.AssertExpectations(t)
		mocks.catalog.AssertExpectations(t)
	})

	t.Run("not the owner", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 107)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)

		_, err := service.Accept(ctx, req.ID, requesterID)
		assert.ErrorIs(t, err, exchange.ErrForbidden)
	})

	t.Run("already resolved", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 107)
		req.Status = exchange.StatusRejected

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)

		_, err := service.Accept(ctx, req.ID, ownerID)
		assert.ErrorIs(t, err, exchange.ErrAlreadyProcessed)
	})

	t.Run("lost the transition race", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 107)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)
		mocks.store.On("TransitionFromPending", ctx, req.ID, exchange.StatusAccepted).Return(false, nil)

		_, err := service.Accept(ctx, req.ID, ownerID)
		assert.ErrorIs(t, err, exchange.ErrAlreadyProcessed)
		mocks.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("expired on acceptance refunds requester", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 107)
		req.ExpiresAt = time.Now().UTC().Add(-time.Minute)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)
		mocks.store.On("TransitionFromPending", ctx, req.ID, exchange.StatusExpired).Return(true, nil)
		mocks.ledger.On("Credit", ctx, requesterID, int64(107), coin.ReasonExchangeRefund, req.ID).
			Return(int64(1000), &coin.Transaction{}, nil)
		mocks.outbox.On("Create", ctx, mock.Anything).Return(nil)

		_, err := service.Accept(ctx, req.ID, ownerID)
		assert.ErrorIs(t, err, exchange.ErrRequestExpired)
		mocks.grantor.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything)
		mocks.ledger.AssertExpectations(t)
	})
}

func TestOrchestrator_Reject(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()
	cardID := uuid.New()

	t.Run("success refunds requester", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 80)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)
		mocks.store.On("TransitionFromPending", ctx, req.ID, exchange.StatusRejected).Return(true, nil)
		mocks.ledger.On("Credit", ctx, requesterID, int64(80), coin.ReasonExchangeRefund, req.ID).
			Return(int64(500), &coin.Transaction{}, nil)
		mocks.outbox.On("Create", ctx, mock.Anything).Return(nil)

		err := service.Reject(ctx, req.ID, ownerID)
		require.NoError(t, err)
		mocks.ledger.AssertExpectations(t)
	})

	t.Run("only the owner may reject", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 80)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)

		err := service.Reject(ctx, req.ID, requesterID)
		assert.ErrorIs(t, err, exchange.ErrForbidden)
	})
}

func TestOrchestrator_Cancel(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()
	cardID := uuid.New()

	t.Run("success refunds requester", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 60)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)
		mocks.store.On("TransitionFromPending", ctx, req.ID, exchange.StatusCancelled).Return(true, nil)
		mocks.ledger.On("Credit", ctx, requesterID, int64(60), coin.ReasonExchangeRefund, req.ID).
			Return(int64(460), &coin.Transaction{}, nil)
		mocks.outbox.On("Create", ctx, mock.Anything).Return(nil)

		err := service.Cancel(ctx, req.ID, requesterID)
		require.NoError(t, err)
	})

	t.Run("only the requester may cancel", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 60)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)

		err := service.Cancel(ctx, req.ID, ownerID)
		assert.ErrorIs(t, err, exchange.ErrForbidden)
	})

	t.Run("already resolved", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 60)
		req.Status = exchange.StatusAccepted

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)

		err := service.Cancel(ctx, req.ID, requesterID)
		assert.ErrorIs(t, err, exchange.ErrAlreadyProcessed)
	})
}

func TestOrchestrator_Expire(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()
	cardID := uuid.New()

	t.Run("expires overdue pending request", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 90)
		req.ExpiresAt = time.Now().UTC().Add(-time.Hour)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)
		mocks.store.On("TransitionFromPending", ctx, req.ID, exchange.StatusExpired).Return(true, nil)
		mocks.ledger.On("Credit", ctx, requesterID, int64(90), coin.ReasonExchangeRefund, req.ID).
			Return(int64(590), &coin.Transaction{}, nil)
		mocks.outbox.On("Create", ctx, mock.Anything).Return(nil)

		expired, err := service.Expire(ctx, req.ID)
		require.NoError(t, err)
		assert.True(t, expired)
	})

	t.Run("skips already resolved request", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 90)
		req.Status = exchange.StatusAccepted
		req.ExpiresAt = time.Now().UTC().Add(-time.Hour)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)

		expired, err := service.Expire(ctx, req.ID)
		require.NoError(t, err)
		assert.False(t, expired)
		mocks.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("skips request not yet due", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 90)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)

		expired, err := service.Expire(ctx, req.ID)
		require.NoError(t, err)
		assert.False(t, expired)
		mocks.store.AssertNotCalled(t, "TransitionFromPending", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("loses the race silently", func(t *testing.T) {
		service, mocks := newTestOrchestrator(t)
		req := pendingRequest(requesterID, cardID, ownerID, 90)
		req.ExpiresAt = time.Now().UTC().Add(-time.Hour)

		mocks.store.On("GetByID", ctx, req.ID).Return(req, nil)
		mocks.store.On("TransitionFromPending", ctx, req.ID, exchange.StatusExpired).Return(false, nil)

		expired, err := service.Expire(ctx, req.ID)
		require.NoError(t, err)
		assert.False(t, expired)
	})
}

func TestOrchestrator_Price(t *testing.T) {
	ctx := context.Background()
	cardID := uuid.New()
	service, mocks := newTestOrchestrator(t)

	mocks.catalog.On("GetPricingInfo", ctx, cardID).Return(&card.PricingInfo{
		CardID:        cardID,
		OwnerID:       uuid.New(),
		BasePrice:     200,
		LikeCount:     55,
		ExchangeCount: 1,
	}, nil)

	quote, err := service.Price(ctx, cardID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), quote.BasePrice)
	assert.Equal(t, int64(7), quote.PopularityBonus)
	assert.Equal(t, int64(207), quote.FinalPrice)
}

func TestOrchestrator_CoinHistory(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	service, mocks := newTestOrchestrator(t)

	txns := []*coin.Transaction{{ID: uuid.New(), UserID: userID, Amount: -50}}
	mocks.ledger.On("History", ctx, userID, 10, 0).Return(txns, nil)
	mocks.ledger.On("CountByUser", ctx, userID).Return(int64(1), nil)

	got, total, err := service.CoinHistory(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, txns, got)
	assert.Equal(t, int64(1), total)
}

func TestOrchestrator_History(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	service, mocks := newTestOrchestrator(t)

	records := []*exchange.Record{{ExchangeID: uuid.New(), ToUserID: userID}}
	mocks.history.On("GetByUserID", ctx, userID, 20, 0).Return(records, nil)
	mocks.history.On("CountByUserID", ctx, userID).Return(int64(1), nil)

	got, total, err := service.History(ctx, userID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, records, got)
	assert.Equal(t, int64(1), total)
}

func TestOrchestrator_CreateRollsBackOnOutboxFailure(t *testing.T) {
	ctx := context.Background()
	requesterID := uuid.New()
	ownerID := uuid.New()
	cardID := uuid.New()
	service, mocks := newTestOrchestrator(t)

	mocks.catalog.On("GetPricingInfo", ctx, cardID).Return(&card.PricingInfo{
		CardID:    cardID,
		OwnerID:   ownerID,
		BasePrice: 100,
	}, nil)
	mocks.grantor.On("Contains", ctx, requesterID, cardID).Return(false, nil)
	mocks.store.On("HasPending", ctx, requesterID, cardID).Return(false, nil)
	mocks.ledger.On("Debit", ctx, requesterID, int64(100), coin.ReasonExchangeEscrow, mock.Anything).
		Return(int64(0), &coin.Transaction{}, nil)
	mocks.store.On("Create", ctx, mock.Anything).Return(nil)
	mocks.outbox.On("Create", ctx, mock.Anything).Return(errors.New("outbox insert failed"))

	_, err := service.Create(ctx, requesterID, cardID, "")
	assert.Error(t, err)
}
