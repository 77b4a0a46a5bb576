package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

// TransactionRepository is the storage TransactionService writes to.
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// EventPublisher announces stored transactions. *amqp.Client implements it.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, tx core.Transaction) error
}

// TransactionView is a transaction shown in a requested currency. The
// Original fields are set only when the amount was converted.
type TransactionView struct {
	core.Transaction
	OriginalAmount   *decimal.Decimal
	OriginalCurrency core.CurrencyCode
}

// TransactionService stores transactions locally and then publishes an event.
// A publish failure never fails the write.
type TransactionService struct {
	repo      TransactionRepository
	publisher EventPublisher
	catalog   *CurrencyCatalog
	logger    *log.Logger
}

// NewTransactionService wires the service. publisher may be nil when no
// broker is configured.
func NewTransactionService(repo TransactionRepository, publisher EventPublisher, catalog *CurrencyCatalog) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		catalog:   catalog,
		logger:    log.Default(log.ComponentStorage),
	}
}

// Create normalises the category, fills in the default currency and stores tx.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx, err := s.prepare(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, saved)
	return saved, nil
}

// Update replaces the editable fields of transaction id with those of tx.
// A generated occurrence keeps its rule link.
func (s *TransactionService) Update(ctx context.Context, id string, tx core.Transaction) (core.Transaction, error) {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = current.ID
	tx.RecurringID = current.RecurringID
	tx.CreatedAt = current.CreatedAt
	if tx, err = s.prepare(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.repo.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Transaction updated", log.FieldTransactionID, updated.ID)
	return updated, nil
}

func (s *TransactionService) prepare(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Category = core.FormatCategory(tx.Category)
	code, err := s.catalog.resolveCode(ctx, tx.Currency)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Currency = code
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// CreateFromRule stores one occurrence of rule on day. It fails with
// core.ErrDuplicate when that occurrence already exists.
func (s *TransactionService) CreateFromRule(ctx context.Context, rule core.RecurringRule, day core.Date) (core.Transaction, error) {
	return s.Create(ctx, core.Transaction{
		Amount:      rule.Amount,
		Currency:    rule.Currency,
		Category:    rule.Category,
		Description: rule.Description,
		IsIncome:    rule.IsIncome,
		Date:        day,
		RecurringID: rule.ID,
	})
}

// Get returns transaction id, converted to target when target is non-empty.
func (s *TransactionService) Get(ctx context.Context, id, target string) (TransactionView, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return TransactionView{}, err
	}
	to, err := parseTarget(target)
	if err != nil {
		return TransactionView{}, err
	}
	return s.view(ctx, tx, to)
}

// List returns the matching transactions. When target is non-empty every
// amount in another currency is converted to target.
func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter, target string) ([]TransactionView, error) {
	to, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]TransactionView, len(txs))
	for i, tx := range txs {
		if out[i], err = s.view(ctx, tx, to); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *TransactionService) view(ctx context.Context, tx core.Transaction, to core.CurrencyCode) (TransactionView, error) {
	if to == "" || tx.Currency == to {
		return TransactionView{Transaction: tx}, nil
	}
	res, err := s.catalog.Convert(ctx, tx.Amount, string(tx.Currency), string(to))
	if err != nil {
		return TransactionView{}, fmt.Errorf("convert transaction %s: %w", tx.ID, err)
	}
	v := TransactionView{
		Transaction:      tx,
		OriginalAmount:   &tx.Amount,
		OriginalCurrency: tx.Currency,
	}
	v.Amount = res.ConvertedAmount
	v.Currency = to
	return v, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteTransaction(ctx, id)
}

func (s *TransactionService) publish(ctx context.Context, tx core.Transaction) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping event",
			log.FieldTransactionID, tx.ID)
		return
	}
	if err := s.publisher.PublishTransactionCreated(ctx, tx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldOperation, log.OpPublish,
			log.FieldTransactionID, tx.ID,
			log.FieldError, err)
	}
}
