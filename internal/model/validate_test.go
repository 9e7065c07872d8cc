package model

import (
	"strings"
	"testing"
)

func validRecipient() Recipient {
	return Recipient{
		Name:        "Erika Mustermann",
		Address:     "Heidestrasse 17, 51147 Koeln",
		IDDocType:   IDDocCard,
		IDDocNumber: "T22000129",
	}
}

func TestValidateRecipient(t *testing.T) {
	if err := Validate(validRecipient()); err != nil {
		t.Fatalf("Validate() on a complete recipient: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Recipient)
		wantMsg string
	}{
		{"missing name", func(r *Recipient) { r.Name = "" }, "name is required"},
		{"missing address", func(r *Recipient) { r.Address = "" }, "address is required"},
		{"missing document type", func(r *Recipient) { r.IDDocType = "" }, "id_doc_type is required"},
		{"unknown document type", func(r *Recipient) { r.IDDocType = "library_card" }, "id_doc_type must be one of"},
		{"missing document number", func(r *Recipient) { r.IDDocNumber = "" }, "id_doc_number is required"},
		{"bad email", func(r *Recipient) { r.Email = "not-an-email" }, "email is not a valid email address"},
		{"bad phone", func(r *Recipient) { r.Phone = "call me" }, "phone may only contain"},
	}

	for _, tt := range tests {
		rec := validRecipient()
		tt.mutate(&rec)

		err := Validate(rec)
		if err == nil {
			t.Errorf("%s: Validate() accepted the record", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantMsg) {
			t.Errorf("%s: Validate() = %q, want message containing %q", tt.name, err, tt.wantMsg)
		}
	}
}

func TestValidatePhoneCharset(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+49 221 1234567", true},
		{"(0221) 123-45-67", true},
		{"01761234567", true},
		{"", true}, // optional field
		{"0176/1234567", false},
		{"+49 221 abc", false},
	}

	for _, tt := range tests {
		rec := validRecipient()
		rec.Phone = tt.phone

		err := Validate(rec)
		if tt.valid && err != nil {
			t.Errorf("Validate() rejected phone %q: %v", tt.phone, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("Validate() accepted phone %q", tt.phone)
		}
	}
}
