package model

import "time"

// Recipient captures who claimed an item at handover. Name, address and
// an identity document are mandatory; contact details are not.
type Recipient struct {
	Name        string `json:"name" validate:"required"`
	Address     string `json:"address" validate:"required"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty" validate:"omitempty,phone"`
	IDDocType   string `json:"id_doc_type,omitempty" validate:"required,oneof=id_card passport drivers_license"`
	IDDocNumber string `json:"id_doc_number,omitempty" validate:"required"`
}

// Identity document types accepted at handover.
const (
	IDDocCard     = "id_card"
	IDDocPassport = "passport"
	IDDocLicense  = "drivers_license"
)

// ArchivedItem is an item frozen at the moment of handover, together
// with the recipient record. Once written it is never mutated or
// deleted.
type ArchivedItem struct {
	Item

	Recipient    Recipient `json:"recipient"`
	HandedOverAt time.Time `json:"handed_over_at"`
	HandedOverBy string    `json:"handed_over_by"`
}
