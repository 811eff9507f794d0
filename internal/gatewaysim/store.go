package gatewaysim

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Sandbox transactions progress on wall-clock time alone: freshly created
// ones are new, they start processing after newFor, and settle after
// processingFor. Amounts ending in 99 are rejected instead, so failure
// paths can be exercised deterministically.
const (
	newFor        = 2 * time.Second
	processingFor = 6 * time.Second
)

type transaction struct {
	ID          string
	AmountMinor int64
	Currency    string
	OrderID     string
	Description string
	CreatedAt   time.Time
	notified    bool
}

type Store struct {
	mu           sync.Mutex
	transactions map[string]*transaction
	now          func() time.Time
}

func NewStore() *Store {
	return &Store{
		transactions: make(map[string]*transaction),
		now:          time.Now,
	}
}

func (s *Store) Create(amountMinor int64, currency, orderID, description string) *transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		ID:          uuid.NewString(),
		AmountMinor: amountMinor,
		Currency:    currency,
		OrderID:     orderID,
		Description: description,
		CreatedAt:   s.now(),
	}
	s.transactions[tx.ID] = tx
	return tx
}

func (s *Store) Get(id string) (*transaction, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, "", ErrTransactionNotFound
	}
	return tx, s.status(tx), nil
}

// MarkNotified records that the terminal webhook for this transaction was
// delivered, so it only fires once.
func (s *Store) MarkNotified(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.notified {
		return false
	}
	tx.notified = true
	return true
}

func (s *Store) status(tx *transaction) string {
	age := s.now().Sub(tx.CreatedAt)
	switch {
	case age < newFor:
		return "new"
	case age < processingFor:
		return "pending"
	case tx.AmountMinor%100 == 99:
		return "rejected"
	default:
		return "settled"
	}
}
