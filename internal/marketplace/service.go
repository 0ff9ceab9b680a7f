package marketplace

import (
	"fmt"
	"math/big"
	"time"

	"carbon-registry/registry-backend/internal/domain"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/ledger"
	"carbon-registry/registry-backend/internal/roles"
	"carbon-registry/registry-backend/pkg/funds"
	"carbon-registry/registry-backend/pkg/guard"
)

// MaxFeeBps caps the platform fee at 5%.
const MaxFeeBps = 500

// DefaultFeeBps is the fee applied until an admin changes it.
const DefaultFeeBps = 250

var bpsDenominator = big.NewInt(10_000)

// Service is the escrow and settlement engine. Units under offer are held in
// the escrow account on the ledger; external value moves through the Bank.
//
// Settlement discipline: all internal bookkeeping (listing state, ledger
// transfers, trade log, counters, fee accrual) completes before any external
// value transfer begins, and every entry point holds the reentrancy guard for
// its full duration. A rejected value transfer rolls the already-applied
// bookkeeping back before the operation returns.
type Service struct {
	g      *guard.Guard
	roles  *roles.Set
	events events.Recorder
	ledger *ledger.Service
	bank   funds.Bank

	escrowAccount string
	listings      []*Listing
	bySeller      map[string][]uint64
	tradesByUser  map[string][]Trade
	trades        []Trade
	feeBps        uint64
	accruedFees   *big.Int
	totalVolume   *big.Int
	totalTrades   uint64
}

func NewService(rs *roles.Set, rec events.Recorder, l *ledger.Service, bank funds.Bank, escrowAccount string) *Service {
	return &Service{
		g:             guard.New(),
		roles:         rs,
		events:        rec,
		ledger:        l,
		bank:          bank,
		escrowAccount: escrowAccount,
		bySeller:      make(map[string][]uint64),
		tradesByUser:  make(map[string][]Trade),
		feeBps:        DefaultFeeBps,
		accruedFees:   new(big.Int),
		totalVolume:   new(big.Int),
	}
}

// CreateListing escrows amount units from the caller and records the listing.
// Escrow transfer and record creation succeed together or neither happens.
func (s *Service) CreateListing(caller string, amount, pricePerUnit *big.Int, creditID uint64, projectName string) (uint64, error) {
	if err := s.g.Enter(); err != nil {
		return 0, err
	}
	defer s.g.Exit()

	if amount == nil || amount.Sign() <= 0 {
		return 0, domain.Validationf("amount must be positive")
	}
	if pricePerUnit == nil || pricePerUnit.Sign() <= 0 {
		return 0, domain.Validationf("price must be positive")
	}
	if err := s.ledger.Transfer(caller, s.escrowAccount, amount); err != nil {
		return 0, fmt.Errorf("escrow transfer: %w", err)
	}

	id := uint64(len(s.listings))
	listing := &Listing{
		ID:           id,
		Seller:       caller,
		Remaining:    new(big.Int).Set(amount),
		PricePerUnit: new(big.Int).Set(pricePerUnit),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
		CreditID:     creditID,
		ProjectName:  projectName,
	}
	s.listings = append(s.listings, listing)
	s.bySeller[caller] = append(s.bySeller[caller], id)

	s.events.Record(events.TypeListingCreated, caller, id, map[string]interface{}{
		"amount": amount.String(),
		"price":  pricePerUnit.String(),
	})
	return id, nil
}

// BuyCredits settles a purchase of amount units from the listing.
//
//	totalPrice     = amount * pricePerUnit / Unit
//	fee            = totalPrice * feeBps / 10000
//	sellerProceeds = totalPrice - fee
//
// Division truncates toward zero; the fee remainder stays with the seller, so
// fee + sellerProceeds == totalPrice exactly.
func (s *Service) BuyCredits(caller string, listingID uint64, amount, payment *big.Int) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if listingID >= uint64(len(s.listings)) {
		return domain.NotFoundf("listing %d", listingID)
	}
	listing := s.listings[listingID]
	if !listing.Active {
		return domain.Statef("listing %d is not active", listingID)
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.Validationf("amount must be positive")
	}
	if amount.Cmp(listing.Remaining) > 0 {
		return domain.Statef("amount exceeds remaining %s", listing.Remaining)
	}
	if caller == listing.Seller {
		return domain.Validationf("cannot buy own listing")
	}
	if payment == nil {
		payment = new(big.Int)
	}

	totalPrice := new(big.Int).Mul(amount, listing.PricePerUnit)
	totalPrice.Quo(totalPrice, ledger.Unit)
	fee := new(big.Int).Mul(totalPrice, new(big.Int).SetUint64(s.feeBps))
	fee.Quo(fee, bpsDenominator)
	proceeds := new(big.Int).Sub(totalPrice, fee)

	if payment.Cmp(totalPrice) < 0 {
		return domain.Statef("insufficient payment: need %s, got %s", totalPrice, payment)
	}
	if err := s.bank.Debit(caller, payment); err != nil {
		return domain.Statef("payment debit failed: %v", err)
	}

	// Internal bookkeeping, strictly before any external value transfer.
	listing.Remaining.Sub(listing.Remaining, amount)
	soldOut := listing.Remaining.Sign() == 0
	if soldOut {
		listing.Active = false
	}
	if err := s.ledger.Transfer(s.escrowAccount, caller, amount); err != nil {
		// Escrow always covers active listings; restore and surface.
		listing.Remaining.Add(listing.Remaining, amount)
		listing.Active = true
		_ = s.bank.Credit(caller, payment)
		return fmt.Errorf("escrow release: %w", err)
	}
	trade := Trade{
		ListingID:  listingID,
		Buyer:      caller,
		Seller:     listing.Seller,
		Amount:     new(big.Int).Set(amount),
		TotalPrice: new(big.Int).Set(totalPrice),
		At:         time.Now().UTC(),
	}
	s.trades = append(s.trades, trade)
	s.tradesByUser[caller] = append(s.tradesByUser[caller], trade)
	s.tradesByUser[listing.Seller] = append(s.tradesByUser[listing.Seller], trade)
	s.accruedFees.Add(s.accruedFees, fee)
	s.totalVolume.Add(s.totalVolume, totalPrice)
	s.totalTrades++

	// External value transfers. Recipients are untrusted; a rejection rolls
	// back everything applied above.
	if err := s.bank.Credit(listing.Seller, proceeds); err != nil {
		s.rollbackBuy(listing, caller, amount, payment, fee, totalPrice, soldOut)
		return fmt.Errorf("seller payment: %w", err)
	}
	refund := new(big.Int).Sub(payment, totalPrice)
	if refund.Sign() > 0 {
		if err := s.bank.Credit(caller, refund); err != nil {
			_ = s.bank.Debit(listing.Seller, proceeds)
			s.rollbackBuy(listing, caller, amount, payment, fee, totalPrice, soldOut)
			return fmt.Errorf("buyer refund: %w", err)
		}
	}

	s.events.Record(events.TypeCreditsSold, caller, listingID, map[string]interface{}{
		"seller":      listing.Seller,
		"amount":      amount.String(),
		"total_price": totalPrice.String(),
		"fee":         fee.String(),
	})
	return nil
}

func (s *Service) rollbackBuy(listing *Listing, buyer string, amount, payment, fee, totalPrice *big.Int, soldOut bool) {
	listing.Remaining.Add(listing.Remaining, amount)
	if soldOut {
		listing.Active = true
	}
	_ = s.ledger.Transfer(buyer, s.escrowAccount, amount)
	s.trades = s.trades[:len(s.trades)-1]
	s.tradesByUser[buyer] = s.tradesByUser[buyer][:len(s.tradesByUser[buyer])-1]
	s.tradesByUser[listing.Seller] = s.tradesByUser[listing.Seller][:len(s.tradesByUser[listing.Seller])-1]
	s.accruedFees.Sub(s.accruedFees, fee)
	s.totalVolume.Sub(s.totalVolume, totalPrice)
	s.totalTrades--
	_ = s.bank.Credit(buyer, payment)
}

// CancelListing releases the remaining escrow back to the seller and
// terminally deactivates the listing.
func (s *Service) CancelListing(caller string, listingID uint64) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if listingID >= uint64(len(s.listings)) {
		return domain.NotFoundf("listing %d", listingID)
	}
	listing := s.listings[listingID]
	if caller != listing.Seller {
		return domain.Authorizationf("only the seller may cancel")
	}
	if !listing.Active {
		return domain.Statef("listing %d is not active", listingID)
	}

	released := new(big.Int).Set(listing.Remaining)
	listing.Remaining.SetUint64(0)
	listing.Active = false
	if released.Sign() > 0 {
		if err := s.ledger.Transfer(s.escrowAccount, caller, released); err != nil {
			listing.Remaining.Set(released)
			listing.Active = true
			return fmt.Errorf("escrow release: %w", err)
		}
	}

	s.events.Record(events.TypeListingCancelled, caller, listingID, map[string]interface{}{
		"released": released.String(),
	})
	return nil
}

// UpdateListingPrice changes the per-unit price. Escrow is untouched.
func (s *Service) UpdateListingPrice(caller string, listingID uint64, newPrice *big.Int) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if listingID >= uint64(len(s.listings)) {
		return domain.NotFoundf("listing %d", listingID)
	}
	listing := s.listings[listingID]
	if caller != listing.Seller {
		return domain.Authorizationf("only the seller may update the price")
	}
	if !listing.Active {
		return domain.Statef("listing %d is not active", listingID)
	}
	if newPrice == nil || newPrice.Sign() <= 0 {
		return domain.Validationf("price must be positive")
	}
	listing.PricePerUnit.Set(newPrice)

	s.events.Record(events.TypeListingPriceUpdated, caller, listingID, map[string]interface{}{
		"price": newPrice.String(),
	})
	return nil
}

// UpdatePlatformFee sets the fee rate in basis points. Requires the Admin
// capability; rates above MaxFeeBps are rejected.
func (s *Service) UpdatePlatformFee(caller string, newFeeBps uint64) error {
	if err := s.g.Enter(); err != nil {
		return err
	}
	defer s.g.Exit()

	if err := s.roles.Require(caller, roles.Admin); err != nil {
		return err
	}
	if newFeeBps > MaxFeeBps {
		return domain.Validationf("fee %d bps exceeds maximum %d", newFeeBps, MaxFeeBps)
	}
	old := s.feeBps
	s.feeBps = newFeeBps

	s.events.Record(events.TypePlatformFeeUpdated, caller, 0, map[string]interface{}{
		"old_bps": old,
		"new_bps": newFeeBps,
	})
	return nil
}

// WithdrawFees sweeps the tracked accrued-fee counter to the caller. Only the
// counter is swept, never the whole held balance: value mid-transit to sellers
// and buyers must not be captured.
func (s *Service) WithdrawFees(caller string) (*big.Int, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()

	if err := s.roles.Require(caller, roles.Admin); err != nil {
		return nil, err
	}
	if s.accruedFees.Sign() == 0 {
		return nil, domain.Statef("no accrued fees")
	}
	amount := new(big.Int).Set(s.accruedFees)
	s.accruedFees.SetUint64(0)
	if err := s.bank.Credit(caller, amount); err != nil {
		s.accruedFees.Set(amount)
		return nil, fmt.Errorf("fee payout: %w", err)
	}

	s.events.Record(events.TypeFeesWithdrawn, caller, 0, map[string]interface{}{
		"amount": amount.String(),
	})
	return amount, nil
}

// GetActiveListings returns up to limit active listings with id >= fromID in
// ascending id order. Resume by passing the last returned id plus one.
func (s *Service) GetActiveListings(fromID uint64, limit int) ([]*Listing, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()

	if limit <= 0 {
		limit = 100
	}
	out := make([]*Listing, 0, limit)
	for i := fromID; i < uint64(len(s.listings)) && len(out) < limit; i++ {
		if s.listings[i].Active {
			out = append(out, s.listings[i].clone())
		}
	}
	return out, nil
}

// GetListing returns the listing record for id.
func (s *Service) GetListing(id uint64) (*Listing, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	if id >= uint64(len(s.listings)) {
		return nil, domain.NotFoundf("listing %d", id)
	}
	return s.listings[id].clone(), nil
}

// GetTrades returns the user's trade history, both sides, oldest first.
func (s *Service) GetTrades(user string) ([]Trade, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	out := make([]Trade, len(s.tradesByUser[user]))
	copy(out, s.tradesByUser[user])
	return out, nil
}

// GetMarketplaceStats returns lifetime aggregates and the current fee rate.
func (s *Service) GetMarketplaceStats() (Stats, error) {
	if err := s.g.Enter(); err != nil {
		return Stats{}, err
	}
	defer s.g.Exit()
	return Stats{
		ListingsCreated: uint64(len(s.listings)),
		TotalVolume:     new(big.Int).Set(s.totalVolume),
		TotalTrades:     s.totalTrades,
		FeeBps:          s.feeBps,
	}, nil
}

// AccruedFees returns the fee balance awaiting withdrawal.
func (s *Service) AccruedFees() (*big.Int, error) {
	if err := s.g.Enter(); err != nil {
		return nil, err
	}
	defer s.g.Exit()
	return new(big.Int).Set(s.accruedFees), nil
}
