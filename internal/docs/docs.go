// Package docs renders the printable paperwork: the registration slip
// that stays with an item on the shelf and the handover receipt the
// recipient signs. Documents are self-contained HTML pages with the item
// identifier embedded as a QR code, so printing needs no further
// requests.
package docs

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"fundbuero/internal/model"
)

//go:embed templates
var content embed.FS

// qrSize is the pixel edge length of the embedded QR code. Scanners at
// the counter read this size reliably from a laser-printed slip.
const qrSize = 192

var document = template.Must(
	template.New("document.html").Funcs(funcMap()).ParseFS(content, "templates/document.html"),
)

// funcMap returns the template function map with the German display
// names used on printed documents.
func funcMap() template.FuncMap {
	return template.FuncMap{
		"statusName": func(status string) string {
			switch status {
			case model.StatusActive:
				return "Aktiv"
			case model.StatusStored:
				return "Eingelagert"
			case model.StatusSold:
				return "Verkauft"
			case model.StatusHandedOver:
				return "Ausgegeben"
			default:
				return status
			}
		},
		"docTypeName": func(docType string) string {
			switch docType {
			case model.IDDocCard:
				return "Personalausweis"
			case model.IDDocPassport:
				return "Reisepass"
			case model.IDDocLicense:
				return "Führerschein"
			default:
				return docType
			}
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02.01.2006")
		},
	}
}

// Data is the payload for the document template. Recipient is nil on
// the registration slip and set on the handover receipt.
type Data struct {
	Title        string
	Item         model.Item
	Recipient    *model.Recipient
	HandedOverAt time.Time
	Registrar    string
	QR           template.URL
	PrintedAt    time.Time
}

// RenderItem writes the registration slip for an item. The slip's QR
// code is what gets scanned during a later handover.
func RenderItem(w io.Writer, item model.Item, registrar string) error {
	qr, err := qrDataURI(item.ID)
	if err != nil {
		return err
	}
	return document.Execute(w, Data{
		Title:     "Fundanzeige",
		Item:      item,
		Registrar: registrar,
		QR:        qr,
		PrintedAt: time.Now(),
	})
}

// RenderArchived writes the handover receipt for an archived item,
// including the recipient block and the signature lines.
func RenderArchived(w io.Writer, archived model.ArchivedItem, registrar string) error {
	qr, err := qrDataURI(archived.ID)
	if err != nil {
		return err
	}
	recipient := archived.Recipient
	return document.Execute(w, Data{
		Title:        "Ausgabebeleg",
		Item:         archived.Item,
		Recipient:    &recipient,
		HandedOverAt: archived.HandedOverAt,
		Registrar:    registrar,
		QR:           qr,
		PrintedAt:    time.Now(),
	})
}

// qrDataURI encodes the identifier as a PNG QR code inlined as a data
// URI.
func qrDataURI(id string) (template.URL, error) {
	png, err := qrcode.Encode(id, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encoding qr code: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}
