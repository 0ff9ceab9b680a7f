package registry

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-registry/registry-backend/internal/domain"
	"carbon-registry/registry-backend/internal/events"
	"carbon-registry/registry-backend/internal/roles"
)

const (
	owner    = "0xowner"
	verifier = "0xverifier"
	acme     = "0xacme"
	someone  = "0xsomeone"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	rs := roles.NewSet(owner)
	require.NoError(t, rs.Grant(owner, verifier, roles.Verifier))
	return NewService(rs, events.NewLog())
}

func TestRegisterIssuer(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.RegisterIssuer(acme, "Acme Offsets"))

	issuer, err := svc.GetIssuer(acme)
	require.NoError(t, err)
	assert.Equal(t, "Acme Offsets", issuer.Name)
	assert.True(t, issuer.Active)
	assert.False(t, issuer.Verified)

	assert.ErrorIs(t, svc.RegisterIssuer(acme, "Acme Again"), domain.ErrState)
	assert.ErrorIs(t, svc.RegisterIssuer(someone, ""), domain.ErrValidation)
}

func TestVerifyIssuerIdempotent(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RegisterIssuer(acme, "Acme Offsets"))

	require.NoError(t, svc.VerifyIssuer(verifier, acme))
	// Repeat verification is a silent no-op, unlike projects.
	require.NoError(t, svc.VerifyIssuer(verifier, acme))

	issuer, err := svc.GetIssuer(acme)
	require.NoError(t, err)
	assert.True(t, issuer.Verified)

	assert.ErrorIs(t, svc.VerifyIssuer(verifier, someone), domain.ErrNotFound)
	assert.ErrorIs(t, svc.VerifyIssuer(someone, acme), domain.ErrAuthorization)
}

func TestRegisterProject(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RegisterIssuer(acme, "Acme Offsets"))

	id, err := svc.RegisterProject(acme, "Mangrove Restoration", "blue-carbon", "Indonesia", "ipfs://meta")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	project, err := svc.GetProject(id)
	require.NoError(t, err)
	assert.Equal(t, "Mangrove Restoration", project.Name)
	assert.Equal(t, acme, project.Owner)
	assert.True(t, project.Active)
	assert.False(t, project.Verified)

	issuer, err := svc.GetIssuer(acme)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), issuer.ProjectsRegistered)

	_, err = svc.RegisterProject(acme, "", "", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

// An address with no prior RegisterIssuer call cannot register projects.
func TestRegisterProjectRequiresIssuer(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.RegisterProject(someone, "Rogue Project", "", "", "")
	assert.ErrorIs(t, err, domain.ErrAuthorization)
}

func TestVerifyProject(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RegisterIssuer(acme, "Acme Offsets"))
	id, err := svc.RegisterProject(acme, "Mangrove Restoration", "", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.VerifyProject(verifier, id))

	count, err := svc.TotalVerifiedProjects()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Repeat verification fails and the counter is not double-incremented.
	assert.ErrorIs(t, svc.VerifyProject(verifier, id), domain.ErrState)
	count, err = svc.TotalVerifiedProjects()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	assert.ErrorIs(t, svc.VerifyProject(verifier, 99), domain.ErrNotFound)
	assert.ErrorIs(t, svc.VerifyProject(someone, id), domain.ErrAuthorization)
}

func TestRecordCreditsIssued(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RegisterIssuer(acme, "Acme Offsets"))
	id, err := svc.RegisterProject(acme, "Mangrove Restoration", "", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.RecordCreditsIssued(owner, id, big.NewInt(1000)))
	require.NoError(t, svc.RecordCreditsIssued(owner, id, big.NewInt(500)))

	project, err := svc.GetProject(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), project.TotalCreditsIssued)

	assert.ErrorIs(t, svc.RecordCreditsIssued(owner, 99, big.NewInt(1)), domain.ErrNotFound)
	assert.ErrorIs(t, svc.RecordCreditsIssued(acme, id, big.NewInt(1)), domain.ErrAuthorization)
}

func TestDeactivateProject(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.RegisterIssuer(acme, "Acme Offsets"))
	id, err := svc.RegisterProject(acme, "Mangrove Restoration", "", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.VerifyProject(verifier, id))

	require.NoError(t, svc.DeactivateProject(owner, id))

	project, err := svc.GetProject(id)
	require.NoError(t, err)
	assert.False(t, project.Active)
	// Verified flag survives deactivation.
	assert.True(t, project.Verified)

	assert.ErrorIs(t, svc.DeactivateProject(owner, 99), domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeactivateProject(acme, id), domain.ErrAuthorization)
}
