package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"transfer-ledger/internal/config"
	"transfer-ledger/internal/metrics"
	"transfer-ledger/internal/models"
	"transfer-ledger/internal/store"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TransferService moves money between two users. A transfer is a sequence of
// single-record writes: transfer row, two mirrored transactions, two balance
// syncs, status update. A failure part way leaves the earlier writes in place
// for the ReconcileService to finish or reject.
type TransferService struct {
	store      store.Store
	balances   *BalanceService
	statuses   config.StatusIDs
	categories config.CategoryIDs
	metrics    metrics.Collector
	logger     zerolog.Logger
	mu         sync.Map
}

func NewTransferService(
	st store.Store,
	balances *BalanceService,
	statuses config.StatusIDs,
	categories config.CategoryIDs,
	collector metrics.Collector,
	logger zerolog.Logger,
) *TransferService {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &TransferService{
		store:      st,
		balances:   balances,
		statuses:   statuses,
		categories: categories,
		metrics:    collector,
		logger:     logger,
	}
}

func (s *TransferService) getMutex(userID string) *sync.Mutex {
	mu, _ := s.mu.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Execute runs one transfer and reports the outcome as a value. It never panics
// and never returns a Go error; storage failures surface as transfer-failed.
func (s *TransferService) Execute(ctx context.Context, req models.TransferRequest) (result models.TransferResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("sender_user_id", req.SenderUserID).
				Msg("Panic recovered during transfer")
			result = models.TransferFailed(models.NewTransferFailedError())
		}

		outcome := "success"
		if !result.Success {
			outcome = string(result.Error.Code)
		}
		s.metrics.RecordTransfer(outcome, time.Since(start))
	}()

	if req.Amount <= 0 {
		return models.TransferFailed(models.NewInvalidAmountError(req.Amount))
	}
	if req.SenderUserID == req.ReceiverUserID {
		return models.TransferFailed(models.NewSelfTransferError())
	}

	// one transfer per sender at a time in this process, so the funds check
	// below cannot be passed twice against the same balance
	mu := s.getMutex(req.SenderUserID)
	mu.Lock()
	defer mu.Unlock()

	transferID, err := s.run(ctx, req)
	if err != nil {
		var transferErr *models.TransferError
		if errors.As(err, &transferErr) {
			s.logger.Info().
				Str("sender_user_id", req.SenderUserID).
				Str("receiver_user_id", req.ReceiverUserID).
				Int64("amount", req.Amount).
				Str("code", string(transferErr.Code)).
				Msg("Transfer rejected")
			return models.TransferFailed(transferErr)
		}

		s.logger.Error().
			Err(err).
			Str("transfer_id", transferID).
			Str("sender_user_id", req.SenderUserID).
			Str("receiver_user_id", req.ReceiverUserID).
			Int64("amount", req.Amount).
			Msg("Transfer failed")
		return models.TransferFailed(models.NewTransferFailedError())
	}

	s.logger.Info().
		Str("transfer_id", transferID).
		Str("sender_user_id", req.SenderUserID).
		Str("receiver_user_id", req.ReceiverUserID).
		Int64("amount", req.Amount).
		Msg("Transfer completed")

	return models.TransferSucceeded(transferID)
}

// run performs the steps after validation. The returned id is set as soon as the
// transfer row exists, even when a later step fails.
func (s *TransferService) run(ctx context.Context, req models.TransferRequest) (string, error) {
	live, err := s.balances.Synchronize(ctx, req.SenderUserID)
	if errors.Is(err, store.ErrNotFound) {
		return "", models.NewNotFoundError("Sender")
	}
	if err != nil {
		return "", fmt.Errorf("synchronize sender balance: %w", err)
	}
	if live < req.Amount {
		return "", models.NewInsufficientFundsError(live, req.Amount)
	}

	sender, receiver, err := s.fetchParties(ctx, req.SenderUserID, req.ReceiverUserID)
	if err != nil {
		return "", err
	}

	transfer, err := s.store.CreateTransfer(ctx, &models.Transfer{
		SenderUserID:   sender.ID,
		ReceiverUserID: receiver.ID,
		Amount:         req.Amount,
		Description:    models.TruncateDescription(req.Description),
		StatusID:       s.statuses.Pending,
	})
	if err != nil {
		return "", fmt.Errorf("create transfer: %w", err)
	}

	debit, credit := transferLegs(transfer, sender, receiver, s.statuses, s.categories)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.store.CreateTransaction(gctx, debit)
		return err
	})
	g.Go(func() error {
		_, err := s.store.CreateTransaction(gctx, credit)
		return err
	})
	if err := g.Wait(); err != nil {
		return transfer.ID, fmt.Errorf("create transfer legs: %w", err)
	}

	if err := syncUsers(ctx, s.balances, sender.ID, receiver.ID); err != nil {
		return transfer.ID, err
	}

	if err := s.store.UpdateTransfer(ctx, transfer.ID, store.TransferUpdate{StatusID: store.String(s.statuses.Completed)}); err != nil {
		return transfer.ID, fmt.Errorf("complete transfer: %w", err)
	}

	return transfer.ID, nil
}

func (s *TransferService) fetchParties(ctx context.Context, senderID, receiverID string) (*models.User, *models.User, error) {
	var sender, receiver *models.User

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.store.GetUser(gctx, senderID)
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("Sender")
		}
		if err != nil {
			return fmt.Errorf("fetch sender: %w", err)
		}
		sender = u
		return nil
	})
	g.Go(func() error {
		u, err := s.store.GetUser(gctx, receiverID)
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("Recipient")
		}
		if err != nil {
			return fmt.Errorf("fetch recipient: %w", err)
		}
		receiver = u
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sender, receiver, nil
}

// syncUsers synchronizes both users jointly and fails if either fails.
func syncUsers(ctx context.Context, balances *BalanceService, a, b string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := balances.Synchronize(gctx, a)
		return err
	})
	g.Go(func() error {
		_, err := balances.Synchronize(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("synchronize balances: %w", err)
	}
	return nil
}

// transferLegs builds the debit and credit mirrored from transfer.
func transferLegs(transfer *models.Transfer, sender, receiver *models.User, statuses config.StatusIDs, categories config.CategoryIDs) (*models.Transaction, *models.Transaction) {
	debit := &models.Transaction{
		UserID:       sender.ID,
		Amount:       -transfer.Amount,
		Counterparty: counterpartyLabel("Transfer to ", receiver),
		Description:  transfer.Description,
		StatusID:     statuses.Completed,
		CategoryID:   categories.Transfer,
		TransferID:   transfer.ID,
	}
	credit := &models.Transaction{
		UserID:       receiver.ID,
		Amount:       transfer.Amount,
		Counterparty: counterpartyLabel("Transfer from ", sender),
		Description:  transfer.Description,
		StatusID:     statuses.Completed,
		CategoryID:   categories.Transfer,
		TransferID:   transfer.ID,
	}
	return debit, credit
}

func counterpartyLabel(prefix string, u *models.User) string {
	return models.TruncateCounterparty(prefix + u.DisplayName())
}

// GetTransfer returns a transfer and its legs.
func (s *TransferService) GetTransfer(ctx context.Context, id string) (*models.Transfer, []*models.Transaction, error) {
	transfer, err := s.store.GetTransfer(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	legs, err := s.store.ListTransactionsByTransfer(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return transfer, legs, nil
}
