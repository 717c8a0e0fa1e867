package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/card"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/coin"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/collection"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/exchange"
	"github.com/Laimiu-debug/lifecard-exchange/internal/domain/outbox"
	"github.com/Laimiu-debug/lifecard-exchange/internal/metrics"
	"github.com/Laimiu-debug/lifecard-exchange/internal/pricing"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrchestratorImpl struct {
	txRunner TxRunner
	store    exchange.Store
	ledger   coin.Ledger
	catalog  card.Catalog
	grantor  collection.Grantor
	outbox   outbox.Repository
	history  HistoryReader
	calc     *pricing.Calculator
	window   time.Duration
	logger   *slog.Logger
}

func NewOrchestrator(
	txRunner TxRunner,
	store exchange.Store,
	ledger coin.Ledger,
	catalog card.Catalog,
	grantor collection.Grantor,
	outboxRepo outbox.Repository,
	history HistoryReader,
	calc *pricing.Calculator,
	window time.Duration,
	logger *slog.Logger,
) Service {
	return &OrchestratorImpl{
		txRunner: txRunner,
		store:    store,
		ledger:   ledger,
		catalog:  catalog,
		grantor:  grantor,
		outbox:   outboxRepo,
		history:  history,
		calc:     calc,
		window:   window,
		logger:   logger,
	}
}

func (o *OrchestratorImpl) Create(ctx context.Context, requesterID, cardID uuid.UUID, message string) (*exchange.Request, error) {
	var created *exchange.Request

	err := o.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		store := o.store.WithTx(tx)
		ledger := o.ledger.WithTx(tx)
		catalog := o.catalog.WithTx(tx)
		grantor := o.grantor.WithTx(tx)

		info, err := catalog.GetPricingInfo(ctx, cardID)
		if err != nil {
			return err
		}
		if info.OwnerID == requesterID {
			return exchange.ErrCannotExchangeOwnCard
		}

		collected, err := grantor.Contains(ctx, requesterID, cardID)
		if err != nil {
			return fmt.Errorf("failed to check collection: %w", err)
		}
		if collected {
			return exchange.ErrAlreadyCollected
		}

		pending, err := store.HasPending(ctx, requesterID, cardID)
		if err != nil {
			return fmt.Errorf("failed to check pending requests: %w", err)
		}
		if pending {
			return exchange.ErrAlreadyRequested
		}

		quote := o.calc.Price(info.BasePrice, info.LikeCount, info.ExchangeCount)

		req, err := exchange.NewRequest(requesterID, cardID, info.OwnerID, quote.FinalPrice, message, o.window)
		if err != nil {
			return err
		}

		if _, _, err := ledger.Debit(ctx, requesterID, req.CoinAmount, coin.ReasonExchangeEscrow, req.ID); err != nil {
			return err
		}

		if err := store.Create(ctx, req); err != nil {
			return err
		}

		if err := o.enqueueEvent(ctx, tx, exchange.EventCreated, req); err != nil {
			return err
		}

		created = req
		return nil
	})
	if err != nil {
		metrics.RecordExchange("create", "failure")
		return nil, err
	}

	metrics.RecordExchange("create", "success")
	metrics.CoinsEscrowedTotal.Add(float64(created.CoinAmount))
	o.logger.Info("Exchange request created",
		"exchange_id", created.ID.String(),
		"requester_id", requesterID.String(),
		"card_id", cardID.String(),
		"coin_amount", created.CoinAmount)
	return created, nil
}

func (o *OrchestratorImpl) Accept(ctx context.Context, exchangeID, actorID uuid.UUID) (*exchange.Result, error) {
	var (
		result  *exchange.Result
		expired *exchange.Request
		settled int64
	)

	err := o.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		store := o.store.WithTx(tx)
		ledger := o.ledger.WithTx(tx)
		catalog := o.catalog.WithTx(tx)
		grantor := o.grantor.WithTx(tx)

		req, err := store.GetByID(ctx, exchangeID)
		if err != nil {
			return err
		}
		if req.OwnerID != actorID {
			return exchange.ErrForbidden
		}
		if req.Status != exchange.StatusPending {
			return exchange.ErrAlreadyProcessed
		}

		// A request found expired on acceptance is expired in place, ahead
		// of the sweeper. The expiry must commit even though the accept
		// fails, so it is signalled outside the transaction instead of
		// returned as an error here.
		if req.IsExpired(time.Now().UTC()) {
			ok, err := store.TransitionFromPending(ctx, req.ID, exchange.StatusExpired)
			if err != nil {
				return err
			}
			if !ok {
				return exchange.ErrAlreadyProcessed
			}
			if _, _, err := ledger.Credit(ctx, req.RequesterID, req.CoinAmount, coin.ReasonExchangeRefund, req.ID); err != nil {
				return err
			}
			if err := o.enqueueEvent(ctx, tx, exchange.EventExpired, req); err != nil {
				return err
			}
			expired = req
			return nil
		}

		ok, err := store.TransitionFromPending(ctx, req.ID, exchange.StatusAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return exchange.ErrAlreadyProcessed
		}

		ownerBalance, _, err := ledger.Credit(ctx, req.OwnerID, req.CoinAmount, coin.ReasonExchangeSettlement, req.ID)
		if err != nil {
			return err
		}

		if err := grantor.Grant(ctx, req.RequesterID, req.CardID); err != nil {
			return fmt.Errorf("failed to grant card to requester: %w", err)
		}

		if err := catalog.IncrementExchangeCount(ctx, req.CardID); err != nil {
			return err
		}

		if err := o.enqueueEvent(ctx, tx, exchange.EventAccepted, req); err != nil {
			return err
		}

		requesterBalance, err := ledger.Balance(ctx, req.RequesterID)
		if err != nil {
			return err
		}

		result = &exchange.Result{
			ExchangeID:          req.ID,
			CardID:              req.CardID,
			RequesterNewBalance: requesterBalance,
			OwnerNewBalance:     ownerBalance,
		}
		settled = req.CoinAmount
		return nil
	})
	if err != nil {
		metrics.RecordExchange("accept", "failure")
		return nil, err
	}

	if expired != nil {
		metrics.RecordExchange("accept", "expired")
		metrics.CoinsRefundedTotal.Add(float64(expired.CoinAmount))
		o.logger.Info("Exchange request expired on acceptance",
			"exchange_id", expired.ID.String(),
			"owner_id", actorID.String())
		return nil, exchange.ErrRequestExpired
	}

	metrics.RecordExchange("accept", "success")
	metrics.CoinsSettledTotal.Add(float64(settled))
	o.logger.Info("Exchange request accepted",
		"exchange_id", exchangeID.String(),
		"owner_id", actorID.String(),
		"card_id", result.CardID.String())
	return result, nil
}

func (o *OrchestratorImpl) Reject(ctx context.Context, exchangeID, actorID uuid.UUID) error {
	err := o.resolveWithRefund(ctx, exchangeID, exchange.StatusRejected, exchange.EventRejected, func(req *exchange.Request) error {
		if req.OwnerID != actorID {
			return exchange.ErrForbidden
		}
		return nil
	})
	if err != nil {
		metrics.RecordExchange("reject", "failure")
		return err
	}

	metrics.RecordExchange("reject", "success")
	o.logger.Info("Exchange request rejected", "exchange_id", exchangeID.String(), "owner_id", actorID.String())
	return nil
}

func (o *OrchestratorImpl) Cancel(ctx context.Context, exchangeID, actorID uuid.UUID) error {
	err := o.resolveWithRefund(ctx, exchangeID, exchange.StatusCancelled, exchange.EventCancelled, func(req *exchange.Request) error {
		if req.RequesterID != actorID {
			return exchange.ErrForbidden
		}
		return nil
	})
	if err != nil {
		metrics.RecordExchange("cancel", "failure")
		return err
	}

	metrics.RecordExchange("cancel", "success")
	o.logger.Info("Exchange request cancelled", "exchange_id", exchangeID.String(), "requester_id", actorID.String())
	return nil
}

func (o *OrchestratorImpl) Expire(ctx context.Context, exchangeID uuid.UUID) (bool, error) {
	var expired bool

	err := o.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		store := o.store.WithTx(tx)
		ledger := o.ledger.WithTx(tx)

		req, err := store.GetByID(ctx, exchangeID)
		if err != nil {
			return err
		}
		// The sweeper works from a snapshot listing, so the request may
		// have resolved, or even been re-read before its window passed,
		// by the time it gets here. Both are silent no-ops.
		if req.Status != exchange.StatusPending || !req.IsExpired(time.Now().UTC()) {
			return nil
		}

		ok, err := store.TransitionFromPending(ctx, req.ID, exchange.StatusExpired)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if _, _, err := ledger.Credit(ctx, req.RequesterID, req.CoinAmount, coin.ReasonExchangeRefund, req.ID); err != nil {
			return err
		}

		if err := o.enqueueEvent(ctx, tx, exchange.EventExpired, req); err != nil {
			return err
		}

		metrics.CoinsRefundedTotal.Add(float64(req.CoinAmount))
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// resolveWithRefund handles the shared shape of reject and cancel: an
// authorization check, a conditional transition out of pending, a refund of
// the escrowed coins and an outbox message, all in one transaction.
func (o *OrchestratorImpl) resolveWithRefund(
	ctx context.Context,
	exchangeID uuid.UUID,
	next exchange.Status,
	eventType exchange.EventType,
	authorize func(req *exchange.Request) error,
) error {
	var refunded int64

	err := o.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		store := o.store.WithTx(tx)
		ledger := o.ledger.WithTx(tx)

		req, err := store.GetByID(ctx, exchangeID)
		if err != nil {
			return err
		}
		if err := authorize(req); err != nil {
			return err
		}
		if req.Status != exchange.StatusPending {
			return exchange.ErrAlreadyProcessed
		}

		ok, err := store.TransitionFromPending(ctx, req.ID, next)
		if err != nil {
			return err
		}
		if !ok {
			return exchange.ErrAlreadyProcessed
		}

		if _, _, err := ledger.Credit(ctx, req.RequesterID, req.CoinAmount, coin.ReasonExchangeRefund, req.ID); err != nil {
			return err
		}

		if err := o.enqueueEvent(ctx, tx, eventType, req); err != nil {
			return err
		}

		refunded = req.CoinAmount
		return nil
	})
	if err != nil {
		return err
	}

	metrics.CoinsRefundedTotal.Add(float64(refunded))
	return nil
}

func (o *OrchestratorImpl) enqueueEvent(ctx context.Context, tx pgx.Tx, t exchange.EventType, req *exchange.Request) error {
	message, err := outbox.NewMessage(exchange.NewEvent(t, req))
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := o.outbox.WithTx(tx).Create(ctx, message); err != nil {
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}

func (o *OrchestratorImpl) PendingForOwner(ctx context.Context, ownerID uuid.UUID) ([]*exchange.Request, error) {
	return o.store.ListPendingForOwner(ctx, ownerID)
}

func (o *OrchestratorImpl) SentByRequester(ctx context.Context, requesterID uuid.UUID) ([]*exchange.Request, error) {
	return o.store.ListByRequester(ctx, requesterID)
}

func (o *OrchestratorImpl) Price(ctx context.Context, cardID uuid.UUID) (*pricing.Quote, error) {
	info, err := o.catalog.GetPricingInfo(ctx, cardID)
	if err != nil {
		return nil, err
	}
	quote := o.calc.Price(info.BasePrice, info.LikeCount, info.ExchangeCount)
	return &quote, nil
}

func (o *OrchestratorImpl) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return o.ledger.Balance(ctx, userID)
}

func (o *OrchestratorImpl) CoinHistory(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*coin.Transaction, int64, error) {
	transactions, err := o.ledger.History(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := o.ledger.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (o *OrchestratorImpl) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*exchange.Record, int64, error) {
	records, err := o.history.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := o.history.CountByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
