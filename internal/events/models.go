package events

import "time"

// Type names an emitted notification record.
type Type string

const (
	TypeCreditsIssued       Type = "CREDITS_ISSUED"
	TypeCreditsRetired      Type = "CREDITS_RETIRED"
	TypeIssuerRegistered    Type = "ISSUER_REGISTERED"
	TypeIssuerVerified      Type = "ISSUER_VERIFIED"
	TypeProjectRegistered   Type = "PROJECT_REGISTERED"
	TypeProjectVerified     Type = "PROJECT_VERIFIED"
	TypeProjectDeactivated  Type = "PROJECT_DEACTIVATED"
	TypeListingCreated      Type = "LISTING_CREATED"
	TypeListingCancelled    Type = "LISTING_CANCELLED"
	TypeListingPriceUpdated Type = "LISTING_PRICE_UPDATED"
	TypeCreditsSold         Type = "CREDITS_SOLD"
	TypePlatformFeeUpdated  Type = "PLATFORM_FEE_UPDATED"
	TypeFeesWithdrawn       Type = "FEES_WITHDRAWN"
	TypeCertificateMinted   Type = "CERTIFICATE_MINTED"
)

// Event is an append-only notification record. Ref carries the domain
// identifier the record is about (credit, listing, project or certificate id)
// and Principal the address it is indexed under. Events are observational
// only; no invariant consults them.
type Event struct {
	ID        uint64                 `json:"id"`
	Type      Type                   `json:"type"`
	Principal string                 `json:"principal"`
	Ref       uint64                 `json:"ref"`
	At        time.Time              `json:"at"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}
