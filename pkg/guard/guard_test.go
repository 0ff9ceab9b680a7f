package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-registry/registry-backend/internal/domain"
)

func TestEnterExit(t *testing.T) {
	g := New()
	require.NoError(t, g.Enter())
	g.Exit()
	require.NoError(t, g.Enter())
	g.Exit()
}

func TestNestedEnterFails(t *testing.T) {
	g := New()
	require.NoError(t, g.Enter())
	defer g.Exit()

	err := g.Enter()
	assert.ErrorIs(t, err, domain.ErrState)
}

func TestReleasedAfterFailure(t *testing.T) {
	g := New()
	require.NoError(t, g.Enter())
	require.Error(t, g.Enter())
	g.Exit()
	// Usable again after release.
	assert.NoError(t, g.Enter())
	g.Exit()
}
