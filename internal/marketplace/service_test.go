package marketplace

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-registry/registry-backend/internal/domain"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/ledger"
	"carbon-registry/registry-backend/internal/roles"
	"carbon-registry/registry-backend/pkg/funds"
)

const (
	owner  = "0xowner"
	minter = "0xminter"
	seller = "0xseller"
	buyer  = "0xbuyer"
	escrow = "escrow.marketplace"
)

func units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), ledger.Unit)
}

type fixture struct {
	ledger *ledger.Service
	market *Service
	bank   *funds.InMemoryBank
	log    *events.Log
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithBank(t, funds.NewInMemoryBank(), nil)
}

// newFixtureWithBank wires the engine around a custom Bank; wrap receives the
// built marketplace so test banks can call back into it.
func newFixtureWithBank(t *testing.T, bank funds.Bank, wrap func(*Service)) *fixture {
	t.Helper()
	rs := roles.NewSet(owner)
	require.NoError(t, rs.Grant(owner, minter, roles.Minter))
	log := events.NewLog()
	l := ledger.NewService(rs, log)
	m := NewService(rs, log, l, bank, escrow)
	if wrap != nil {
		wrap(m)
	}
	mem, _ := bank.(*funds.InMemoryBank)
	f := &fixture{ledger: l, market: m, bank: mem, log: log}

	_, err := l.Mint(minter, seller, units(1000), "ProjectX", "reforestation", "Kenya", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	return f
}

func TestCreateListingEscrowsUnits(t *testing.T) {
	f := newFixture(t)

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	sellerBal, err := f.ledger.BalanceOf(seller)
	require.NoError(t, err)
	escrowBal, err := f.ledger.BalanceOf(escrow)
	require.NoError(t, err)
	assert.Equal(t, units(0), sellerBal)
	assert.Equal(t, units(1000), escrowBal)

	listing, err := f.market.GetListing(id)
	require.NoError(t, err)
	assert.True(t, listing.Active)
	assert.Equal(t, units(1000), listing.Remaining)
}

func TestCreateListingValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.market.CreateListing(seller, big.NewInt(0), units(2), 0, "ProjectX")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.market.CreateListing(seller, units(10), big.NewInt(0), 0, "ProjectX")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Insufficient balance: nothing is recorded.
	_, err = f.market.CreateListing(seller, units(2000), units(2), 0, "ProjectX")
	assert.ErrorIs(t, err, domain.ErrState)
	stats, err := f.market.GetMarketplaceStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.ListingsCreated)
}

// Partial buy: mint 1000, list at 2 per credit, buy 500. Listing stays active
// with 500 remaining, the buyer holds 500 credits, the seller is paid the
// total minus the platform fee.
func TestBuyCreditsPartial(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(1000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)

	require.NoError(t, f.market.BuyCredits(buyer, id, units(500), units(1000)))

	listing, err := f.market.GetListing(id)
	require.NoError(t, err)
	assert.True(t, listing.Active)
	assert.Equal(t, units(500), listing.Remaining)

	buyerBal, err := f.ledger.BalanceOf(buyer)
	require.NoError(t, err)
	assert.Equal(t, units(500), buyerBal)

	// totalPrice = 1000, fee = 1000 * 250 / 10000 = 25, proceeds = 975.
	assert.Equal(t, units(975), f.bank.BalanceOf(seller))
	assert.Equal(t, units(0), f.bank.BalanceOf(buyer))

	fees, err := f.market.AccruedFees()
	require.NoError(t, err)
	assert.Equal(t, units(25), fees)

	trades, err := f.market.GetTrades(buyer)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, units(1000), trades[0].TotalPrice)

	sellerTrades, err := f.market.GetTrades(seller)
	require.NoError(t, err)
	assert.Len(t, sellerTrades, 1)
}

func TestBuyCreditsExactPaymentBoundary(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(1000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)

	// payment == totalPrice - 1 fails before any mutation.
	short := new(big.Int).Sub(units(1000), big.NewInt(1))
	err = f.market.BuyCredits(buyer, id, units(500), short)
	assert.ErrorIs(t, err, domain.ErrState)
	assert.Equal(t, units(1000), f.bank.BalanceOf(buyer))

	// payment == totalPrice succeeds with zero refund.
	require.NoError(t, f.market.BuyCredits(buyer, id, units(500), units(1000)))
	assert.Equal(t, units(0), f.bank.BalanceOf(buyer))
}

func TestBuyCreditsOverpaymentRefunded(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(1500))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)

	require.NoError(t, f.market.BuyCredits(buyer, id, units(500), units(1500)))
	// 500 overpayment returned.
	assert.Equal(t, units(500), f.bank.BalanceOf(buyer))
	assert.Equal(t, units(975), f.bank.BalanceOf(seller))
}

func TestBuyCreditsExhaustsListing(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(2000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)

	require.NoError(t, f.market.BuyCredits(buyer, id, units(1000), units(2000)))

	listing, err := f.market.GetListing(id)
	require.NoError(t, err)
	assert.False(t, listing.Active)
	assert.Equal(t, units(0), listing.Remaining)

	err = f.market.BuyCredits(buyer, id, units(1), units(2))
	assert.ErrorIs(t, err, domain.ErrState)
}

func TestBuyOwnListingRejected(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(seller, units(1000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)

	err = f.market.BuyCredits(seller, id, units(1), units(1000))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBuyCreditsFailures(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(10))

	id, err := f.market.CreateListing(seller, units(100), units(2), 0, "ProjectX")
	require.NoError(t, err)

	assert.ErrorIs(t, f.market.BuyCredits(buyer, 99, units(1), units(2)), domain.ErrNotFound)
	assert.ErrorIs(t, f.market.BuyCredits(buyer, id, big.NewInt(0), units(2)), domain.ErrValidation)
	assert.ErrorIs(t, f.market.BuyCredits(buyer, id, units(101), units(300)), domain.ErrState)
}

func TestCancelListing(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(1000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)
	require.NoError(t, f.market.BuyCredits(buyer, id, units(500), units(1000)))

	require.NoError(t, f.market.CancelListing(seller, id))

	sellerBal, err := f.ledger.BalanceOf(seller)
	require.NoError(t, err)
	assert.Equal(t, units(500), sellerBal)

	listing, err := f.market.GetListing(id)
	require.NoError(t, err)
	assert.False(t, listing.Active)
	assert.Equal(t, units(0), listing.Remaining)

	// Cancellation is terminal.
	assert.ErrorIs(t, f.market.CancelListing(seller, id), domain.ErrState)
}

func TestCancelListingSellerOnly(t *testing.T) {
	f := newFixture(t)

	id, err := f.market.CreateListing(seller, units(100), units(2), 0, "ProjectX")
	require.NoError(t, err)

	assert.ErrorIs(t, f.market.CancelListing(buyer, id), domain.ErrAuthorization)
	assert.ErrorIs(t, f.market.CancelListing(seller, 99), domain.ErrNotFound)
}

func TestUpdateListingPrice(t *testing.T) {
	f := newFixture(t)

	id, err := f.market.CreateListing(seller, units(100), units(2), 0, "ProjectX")
	require.NoError(t, err)

	require.NoError(t, f.market.UpdateListingPrice(seller, id, units(3)))
	listing, err := f.market.GetListing(id)
	require.NoError(t, err)
	assert.Equal(t, units(3), listing.PricePerUnit)
	// Escrow untouched.
	escrowBal, err := f.ledger.BalanceOf(escrow)
	require.NoError(t, err)
	assert.Equal(t, units(100), escrowBal)

	assert.ErrorIs(t, f.market.UpdateListingPrice(buyer, id, units(3)), domain.ErrAuthorization)
	assert.ErrorIs(t, f.market.UpdateListingPrice(seller, id, big.NewInt(0)), domain.ErrValidation)
}

func TestUpdatePlatformFee(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.market.UpdatePlatformFee(owner, 100))
	stats, err := f.market.GetMarketplaceStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), stats.FeeBps)

	assert.ErrorIs(t, f.market.UpdatePlatformFee(owner, 501), domain.ErrValidation)
	assert.ErrorIs(t, f.market.UpdatePlatformFee(buyer, 100), domain.ErrAuthorization)
}

func TestWithdrawFees(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(1000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)
	require.NoError(t, f.market.BuyCredits(buyer, id, units(500), units(1000)))

	got, err := f.market.WithdrawFees(owner)
	require.NoError(t, err)
	assert.Equal(t, units(25), got)
	assert.Equal(t, units(25), f.bank.BalanceOf(owner))

	// Counter is swept, not the held balance; a second withdraw finds nothing.
	fees, err := f.market.AccruedFees()
	require.NoError(t, err)
	assert.Equal(t, units(0), fees)
	_, err = f.market.WithdrawFees(owner)
	assert.ErrorIs(t, err, domain.ErrState)

	_, err = f.market.WithdrawFees(buyer)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestGetActiveListingsPagination(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 5; i++ {
		_, err := f.market.CreateListing(seller, units(100), units(2), 0, "ProjectX")
		require.NoError(t, err)
	}
	require.NoError(t, f.market.CancelListing(seller, 2))

	page, err := f.market.GetActiveListings(0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(0), page[0].ID)
	assert.Equal(t, uint64(1), page[1].ID)

	// Restart after the last seen id; the cancelled listing is skipped.
	page, err = f.market.GetActiveListings(page[1].ID+1, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].ID)
	assert.Equal(t, uint64(4), page[1].ID)
}

func TestMarketplaceStats(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(2000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)
	require.NoError(t, f.market.BuyCredits(buyer, id, units(500), units(1000)))
	require.NoError(t, f.market.BuyCredits(buyer, id, units(500), units(1000)))

	stats, err := f.market.GetMarketplaceStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ListingsCreated)
	assert.Equal(t, uint64(2), stats.TotalTrades)
	assert.Equal(t, units(2000), stats.TotalVolume)
	assert.Equal(t, uint64(DefaultFeeBps), stats.FeeBps)
}

// Escrow invariant: the escrow account's ledger balance always equals the sum
// of remaining amounts over active listings.
func TestEscrowMatchesActiveListings(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, units(1000))

	idA, err := f.market.CreateListing(seller, units(600), units(2), 0, "ProjectX")
	require.NoError(t, err)
	_, err = f.market.CreateListing(seller, units(400), units(2), 0, "ProjectX")
	require.NoError(t, err)
	require.NoError(t, f.market.BuyCredits(buyer, idA, units(300), units(600)))
	require.NoError(t, f.market.CancelListing(seller, idA))

	active, err := f.market.GetActiveListings(0, 100)
	require.NoError(t, err)
	sum := new(big.Int)
	for _, listing := range active {
		sum.Add(sum, listing.Remaining)
	}
	escrowBal, err := f.ledger.BalanceOf(escrow)
	require.NoError(t, err)
	assert.Equal(t, sum, escrowBal)
}

// rejectingBank refuses credits to chosen recipients.
type rejectingBank struct {
	*funds.InMemoryBank
	reject map[string]bool
}

func (b *rejectingBank) Credit(principal string, amount *big.Int) error {
	if b.reject[principal] {
		return errors.New("recipient rejected transfer")
	}
	return b.InMemoryBank.Credit(principal, amount)
}

// A rejected seller payment rolls back all bookkeeping and returns the
// buyer's payment.
func TestBuyRollsBackOnSellerPaymentFailure(t *testing.T) {
	inner := funds.NewInMemoryBank()
	bank := &rejectingBank{InMemoryBank: inner, reject: map[string]bool{seller: true}}
	f := newFixtureWithBank(t, bank, nil)
	inner.Seed(buyer, units(1000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)

	err = f.market.BuyCredits(buyer, id, units(500), units(1000))
	require.Error(t, err)

	listing, err := f.market.GetListing(id)
	require.NoError(t, err)
	assert.True(t, listing.Active)
	assert.Equal(t, units(1000), listing.Remaining)

	buyerBal, err := f.ledger.BalanceOf(buyer)
	require.NoError(t, err)
	assert.Equal(t, units(0), buyerBal)
	assert.Equal(t, units(1000), inner.BalanceOf(buyer))

	trades, err := f.market.GetTrades(buyer)
	require.NoError(t, err)
	assert.Empty(t, trades)

	stats, err := f.market.GetMarketplaceStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stats.TotalTrades)
	assert.Equal(t, units(0), stats.TotalVolume)

	fees, err := f.market.AccruedFees()
	require.NoError(t, err)
	assert.Equal(t, units(0), fees)
}

// reentrantBank plays a malicious seller whose payment callback re-enters the
// marketplace before the buy finishes.
type reentrantBank struct {
	*funds.InMemoryBank
	market    *Service
	attempted error
	fired     bool
}

func (b *reentrantBank) Credit(principal string, amount *big.Int) error {
	if principal == seller && !b.fired {
		b.fired = true
		b.attempted = b.market.CancelListing(seller, 0)
	}
	return b.InMemoryBank.Credit(principal, amount)
}

func TestReentrantCallbackRejected(t *testing.T) {
	inner := funds.NewInMemoryBank()
	bank := &reentrantBank{InMemoryBank: inner}
	f := newFixtureWithBank(t, bank, func(m *Service) { bank.market = m })
	inner.Seed(buyer, units(1000))

	id, err := f.market.CreateListing(seller, units(1000), units(2), 0, "ProjectX")
	require.NoError(t, err)

	// The outer buy succeeds; the nested cancel is rejected by the guard.
	require.NoError(t, f.market.BuyCredits(buyer, id, units(500), units(1000)))
	assert.True(t, bank.fired)
	assert.ErrorIs(t, bank.attempted, domain.ErrState)

	// Listing state reflects only the buy.
	listing, err := f.market.GetListing(id)
	require.NoError(t, err)
	assert.True(t, listing.Active)
	assert.Equal(t, units(500), listing.Remaining)
}

// Remainder handling: a price that does not divide evenly still conserves
// value, with the division remainder assigned to the seller.
func TestFeeRemainderStaysWithSeller(t *testing.T) {
	f := newFixture(t)
	f.bank.Seed(buyer, big.NewInt(999))

	// 1 credit at 999 value units: totalPrice = 999, fee = 999*250/10000
	// truncated from 24.975 to 24, proceeds = 975.
	id, err := f.market.CreateListing(seller, units(1), big.NewInt(999), 0, "ProjectX")
	require.NoError(t, err)
	require.NoError(t, f.market.BuyCredits(buyer, id, units(1), big.NewInt(999)))

	fees, err := f.market.AccruedFees()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(24), fees)
	proceeds := f.bank.BalanceOf(seller)
	assert.Equal(t, big.NewInt(975), proceeds)
	assert.Equal(t, big.NewInt(999), new(big.Int).Add(fees, proceeds))
}
