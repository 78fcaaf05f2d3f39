package core

import "strings"

// Field names a logical slab column.
type Field string

const (
	FieldSlabID         Field = "slab_id"
	FieldFamily         Field = "family"
	FieldFormulation    Field = "formulation"
	FieldVersion        Field = "version"
	FieldQuantity       Field = "quantity"
	FieldStatus         Field = "status"
	FieldCategory       Field = "category"
	FieldReceivedDate   Field = "received_date"
	FieldSentToLocation Field = "sent_to_location"
	FieldSentToDate     Field = "sent_to_date"
	FieldNotes          Field = "notes"
	FieldBoxSharedLink  Field = "box_shared_link"
	FieldImageURL       Field = "image_url"
	FieldSKU            Field = "sku"
)

// FieldOrder is the column order used by exports.
var FieldOrder = []Field{
	FieldSlabID, FieldFamily, FieldFormulation, FieldVersion, FieldQuantity,
	FieldStatus, FieldCategory, FieldReceivedDate, FieldSentToLocation,
	FieldSentToDate, FieldNotes, FieldBoxSharedLink, FieldImageURL, FieldSKU,
}

// fieldAliases lists the accepted header spellings per field, in priority
// order. The first alias is the canonical export header. Matching is exact:
// older exports depend on these spellings, so do not reorder or fold case.
var fieldAliases = map[Field][]string{
	FieldSlabID:         {"Slab ID", "slab_id", "SlabID", "ID"},
	FieldFamily:         {"Family", "family", "Product Family"},
	FieldFormulation:    {"Formulation", "formulation", "Color", "Colour"},
	FieldVersion:        {"Version", "version", "Ver"},
	FieldQuantity:       {"Quantity", "quantity", "Qty", "QTY", "qty"},
	FieldStatus:         {"Status", "status"},
	FieldCategory:       {"Category", "category", "Type"},
	FieldReceivedDate:   {"Received Date", "received_date", "Date Received", "Received"},
	FieldSentToLocation: {"Sent To Location", "sent_to_location", "Sent To", "Location"},
	FieldSentToDate:     {"Sent To Date", "sent_to_date", "Date Sent", "Sent Date"},
	FieldNotes:          {"Notes", "notes", "Comments"},
	FieldBoxSharedLink:  {"Box Shared Link", "box_shared_link", "Box Link", "Box"},
	FieldImageURL:       {"Image URL", "image_url", "Image", "Photo"},
	FieldSKU:            {"SKU", "sku"},
}

// Aliases returns the accepted headers for f.
func Aliases(f Field) []string {
	return fieldAliases[f]
}

// Header returns the canonical export header for f.
func Header(f Field) string {
	if a := fieldAliases[f]; len(a) > 0 {
		return a[0]
	}
	return string(f)
}

// Get resolves f in the row: the first alias with a non-empty value wins.
func (r Row) Get(f Field) string {
	for _, alias := range fieldAliases[f] {
		if v := strings.TrimSpace(r[alias]); v != "" {
			return v
		}
	}
	return ""
}
