package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"swisscluster/camt-import/internal/models"

	"github.com/shopspring/decimal"
)

// MockStore is an in-memory Store for tests.
type MockStore struct {
	mu      sync.Mutex
	records []Record
	nextID  int

	// CreateErr, when set, is returned by every Create call.
	CreateErr error
	// FindErr, when set, is returned by every Find call.
	FindErr error
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// Seed adds a record directly, bypassing Create.
func (m *MockStore) Seed(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
}

// Records returns a copy of all stored records.
func (m *MockStore) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// FindByReference implements Store.
func (m *MockStore) FindByReference(_ context.Context, bankAccountID, referenceNumber string) (*Record, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	if referenceNumber == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].BankAccountID == bankAccountID && m.records[i].ReferenceNumber == referenceNumber {
			return &m.records[i], nil
		}
	}
	return nil, nil
}

// FindByAmountDate implements Store.
func (m *MockStore) FindByAmountDate(_ context.Context, bankAccountID string, date time.Time, deposit, withdrawal decimal.Decimal) (*Record, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		rec := &m.records[i]
		if rec.BankAccountID == bankAccountID &&
			rec.Date.Equal(date) &&
			rec.Deposit.Equal(deposit) &&
			rec.Withdrawal.Equal(withdrawal) {
			return rec, nil
		}
	}
	return nil, nil
}

// Create implements Store.
func (m *MockStore) Create(_ context.Context, bankAccountID string, tx models.NormalizedTransaction) (string, error) {
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ReferenceNumber != "" {
		for i := range m.records {
			if m.records[i].BankAccountID == bankAccountID && m.records[i].ReferenceNumber == tx.ReferenceNumber {
				return "", ErrDuplicateReference
			}
		}
	}

	m.nextID++
	name := fmt.Sprintf("BTX-%04d", m.nextID)
	m.records = append(m.records, Record{
		Name:            name,
		BankAccountID:   bankAccountID,
		Date:            tx.Date,
		Deposit:         tx.Deposit,
		Withdrawal:      tx.Withdrawal,
		Description:     tx.Description,
		ReferenceNumber: tx.ReferenceNumber,
		Currency:        tx.Currency,
		PartyType:       tx.PartyType,
		Party:           tx.Party,
	})
	return name, nil
}
