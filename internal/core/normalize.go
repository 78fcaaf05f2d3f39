package core

// normalize.go maps free-text CSV cells onto canonical slab values.
//
// None of these functions fail. Unrecognized input resolves to a documented
// default (status -> in_stock, date -> today, category -> current) so that a
// messy spreadsheet always imports; callers that need strictness must check
// the raw value themselves.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/slabstock/internal/slab"
)

// statusSynonyms maps lower-cased status spellings to the import vocabulary.
var statusSynonyms = map[string]slab.Status{
	"in stock":     slab.StatusInStock,
	"in-stock":     slab.StatusInStock,
	"instock":      slab.StatusInStock,
	"in_stock":     slab.StatusInStock,
	"available":    slab.StatusInStock,
	"sent":         slab.StatusSent,
	"sent out":     slab.StatusSent,
	"sent-out":     slab.StatusSent,
	"shipped":      slab.StatusSent,
	"reserved":     slab.StatusReserved,
	"on hold":      slab.StatusReserved,
	"on-hold":      slab.StatusReserved,
	"not in yet":   slab.StatusReserved,
	"not-in-yet":   slab.StatusReserved,
	"not_in_yet":   slab.StatusReserved,
	"sold":         slab.StatusSold,
	"sold out":     slab.StatusSold,
	"sold-out":     slab.StatusSold,
	"discontinued": slab.StatusSold,
	"disc":         slab.StatusSold,
}

var separatorRun = regexp.MustCompile(`[\s-]+`)

// NormalizeStatus maps a free-text status onto the import vocabulary.
// Anything unrecognized becomes in_stock.
func NormalizeStatus(raw string) slab.Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusSynonyms[key]; ok {
		return s
	}

	candidate := slab.Status(separatorRun.ReplaceAllString(key, "_"))
	if slab.IsImportStatus(candidate) {
		return candidate
	}
	return slab.StatusInStock
}

// NormalizeCategory coerces a category cell to current or development.
func NormalizeCategory(raw string) slab.Category {
	c := slab.Category(strings.ToLower(strings.TrimSpace(raw)))
	if c == slab.CategoryDevelopment {
		return c
	}
	return slab.CategoryCurrent
}

// ParseQuantity parses a quantity cell. Missing, malformed or negative
// values count as a single slab.
func ParseQuantity(raw string) int {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 1
		}
		n = int(f)
	}
	if n < 0 {
		return 1
	}
	return n
}

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future
// are moved to the previous century.
var TwoDigitYearPivot = 20

const isoDate = "2006-01-02"

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		isoDate, "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "Jan 2 2006",
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05",
		"20060102",
	}
)

// ParseDate normalizes a date cell to YYYY-MM-DD. Empty or unparseable
// input yields now's UTC date.
func ParseDate(raw string, now time.Time) string {
	if t, ok := parseDateValue(raw, now); ok {
		return t.Format(isoDate)
	}
	return now.UTC().Format(isoDate)
}

func parseDateValue(raw string, now time.Time) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	pivotYear := now.Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// ExtractURL interprets a link cell. "n"/"no" and blanks mean no link.
// "y"/"yes" says a link exists but carries none, so it is also dropped.
// Anything else is returned verbatim.
func ExtractURL(raw string) *string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "n", "no", "y", "yes":
		return nil
	}
	return &s
}

// FormatDisplayDate renders a stored YYYY-MM-DD date as M/D/YYYY in UTC.
// Year 1 and earlier is the "unknown date" sentinel and renders as "old".
func FormatDisplayDate(stored string) string {
	s := strings.TrimSpace(stored)
	if s == "" {
		return ""
	}

	t, err := time.Parse(isoDate, s)
	if err != nil {
		if len(s) < len(isoDate) {
			return stored
		}
		if t, err = time.Parse(isoDate, s[:len(isoDate)]); err != nil {
			return stored
		}
	}

	t = t.UTC()
	if t.Year() <= 1 {
		return "old"
	}
	return strconv.Itoa(int(t.Month())) + "/" + strconv.Itoa(t.Day()) + "/" + strconv.Itoa(t.Year())
}
