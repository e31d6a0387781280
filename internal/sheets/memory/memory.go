package memory

import (
	"context"
	"fmt"
	"sync"

	"finanzen/internal/core"
)

// Export is one call of ExportTransactions as recorded by the Store.
type Export struct {
	Import       core.Import
	Transactions []core.Transaction
}

// Store is an in-process exporter for development and tests.
type Store struct {
	mu      sync.Mutex
	exports []Export
	rows    int
}

func New() *Store {
	return &Store{}
}

// ExportTransactions records the rows and returns a synthetic range reference.
func (s *Store) ExportTransactions(_ context.Context, imp core.Import, txs []core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(txs) == 0 {
		return "", nil
	}
	first := s.rows + 1
	s.rows += len(txs)
	s.exports = append(s.exports, Export{
		Import:       imp,
		Transactions: append([]core.Transaction(nil), txs...),
	})
	return fmt.Sprintf("mem:%d-%d", first, s.rows), nil
}

// Exports returns a copy of everything exported so far.
func (s *Store) Exports() []Export {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Export(nil), s.exports...)
}

// Rows returns the number of exported transactions.
func (s *Store) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}
