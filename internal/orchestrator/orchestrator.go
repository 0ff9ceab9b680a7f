package orchestrator

import (
	"fmt"
	"log"
	"math/big"

	"carbon-registry/registry-backend/internal/certificates"
	"carbon-registry/registry-backend/internal/events"
)

// Orchestrator is the trusted driver between the ledger and the certificate
// issuer. It subscribes to retirement records and mints an attestation for
// each one using its Minter principal. The certificate issuer itself never
// checks the ledger; this component is the trust boundary.
type Orchestrator struct {
	principal string
	certs     *certificates.Service
	uriPrefix string
}

func New(principal string, c *certificates.Service, uriPrefix string) *Orchestrator {
	return &Orchestrator{
		principal: principal,
		certs:     c,
		uriPrefix: uriPrefix,
	}
}

// Attach subscribes the orchestrator to the event log. Must be called before
// any retirement is recorded.
func (o *Orchestrator) Attach(l *events.Log) {
	l.Subscribe(func(ev events.Event) {
		if ev.Type != events.TypeCreditsRetired {
			return
		}
		if err := o.HandleRetirement(ev); err != nil {
			log.Printf("orchestrator: certificate for credit %d: %v", ev.Ref, err)
		}
	})
}

// HandleRetirement mints a certificate for an observed retirement record. The
// record itself carries everything the attestation needs; the ledger is not
// consulted again.
func (o *Orchestrator) HandleRetirement(ev events.Event) error {
	amount := new(big.Int)
	raw, ok := ev.Fields["amount"].(string)
	if !ok {
		return fmt.Errorf("retirement record %d has no amount", ev.ID)
	}
	if _, ok := amount.SetString(raw, 10); !ok {
		return fmt.Errorf("retirement record %d has malformed amount %q", ev.ID, raw)
	}
	project, _ := ev.Fields["project"].(string)
	uri := fmt.Sprintf("%s/credits/%d/retirement", o.uriPrefix, ev.Ref)
	_, err := o.certs.MintCertificate(o.principal, ev.Principal, amount, ev.Ref, project, uri)
	return err
}
