package funds

import (
	"errors"
	"math/big"
	"sync"
)

// Bank moves external value (the settlement currency) between principals and
// the marketplace. Credit recipients are untrusted: an implementation may run
// arbitrary recipient code before returning, which is why the marketplace
// finishes all bookkeeping before calling Credit.
type Bank interface {
	// Debit removes amount from principal's balance. Fails when the balance
	// is insufficient.
	Debit(principal string, amount *big.Int) error
	// Credit adds amount to principal's balance.
	Credit(principal string, amount *big.Int) error
	// BalanceOf returns principal's current balance.
	BalanceOf(principal string) *big.Int
}

var ErrInsufficientFunds = errors.New("insufficient funds")

// InMemoryBank is the Bank used by tests and local runs.
type InMemoryBank struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

func NewInMemoryBank() *InMemoryBank {
	return &InMemoryBank{balances: make(map[string]*big.Int)}
}

// Seed credits principal without a counterparty, for test setup.
func (b *InMemoryBank) Seed(principal string, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(principal, amount)
}

func (b *InMemoryBank) add(principal string, amount *big.Int) {
	cur, ok := b.balances[principal]
	if !ok {
		cur = new(big.Int)
		b.balances[principal] = cur
	}
	cur.Add(cur, amount)
}

func (b *InMemoryBank) Debit(principal string, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.balances[principal]
	if !ok || cur.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	cur.Sub(cur, amount)
	return nil
}

func (b *InMemoryBank) Credit(principal string, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(principal, amount)
	return nil
}

func (b *InMemoryBank) BalanceOf(principal string) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, ok := b.balances[principal]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(cur)
}
