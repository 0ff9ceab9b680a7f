package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRetrieve(t *testing.T) {
	log := NewLog()

	ev := log.Record(TypeCreditsIssued, "0xalice", 0, map[string]interface{}{"amount": "100"})
	assert.Equal(t, uint64(1), ev.ID)
	log.Record(TypeCreditsRetired, "0xalice", 0, nil)
	log.Record(TypeCreditsIssued, "0xbob", 1, nil)

	issued := log.ByType(TypeCreditsIssued)
	require.Len(t, issued, 2)
	assert.Equal(t, "0xalice", issued[0].Principal)
	assert.Equal(t, "0xbob", issued[1].Principal)

	alice := log.ByPrincipal("0xalice")
	require.Len(t, alice, 2)
	assert.Equal(t, TypeCreditsIssued, alice[0].Type)
	assert.Equal(t, TypeCreditsRetired, alice[1].Type)

	assert.Len(t, log.All(), 3)
}

func TestIDsAreSequential(t *testing.T) {
	log := NewLog()
	for want := uint64(1); want <= 5; want++ {
		ev := log.Record(TypeListingCreated, "0xseller", want-1, nil)
		assert.Equal(t, want, ev.ID)
	}
}

func TestSinksReceiveEveryRecord(t *testing.T) {
	log := NewLog()
	var seen []Event
	log.Subscribe(func(ev Event) { seen = append(seen, ev) })

	log.Record(TypeCreditsIssued, "0xalice", 0, nil)
	log.Record(TypeCreditsSold, "0xbob", 3, nil)

	require.Len(t, seen, 2)
	assert.Equal(t, TypeCreditsSold, seen[1].Type)
	assert.Equal(t, uint64(3), seen[1].Ref)
}
