package importer

// transform.go converts raw spreadsheet cells into typed values.
//
// Cells arrive as strings regardless of source: Excel-styled dates come
// through formatted, unstyled ones as raw serial numbers, and CSV files
// carry whatever the exporter wrote. Every function here treats the
// empty string like an absent value and returns ok=false for malformed
// but non-empty input instead of erroring; the caller's validation step
// decides whether that becomes a row error.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Spreadsheet serial epoch (the usual 1900 date system, which places
// day zero on 1899-12-30 to absorb the Lotus leap-year bug).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// saoPaulo is the fixed offset the sanitization files are written in.
// Brazil abolished DST in 2019, so a fixed UTC-3 is exact for this data.
var saoPaulo = time.FixedZone("-03", -3*60*60)

var dateLayouts = []string{
	"02/01/2006", "2/1/2006", "02/01/06", "2/1/06", "2006-01-02",
}

var dateTimeLayouts = []string{
	"02/01/2006 15:04:05", "02/01/2006 15:04",
	"2/1/2006 15:04:05", "2/1/2006 15:04",
	"2006-01-02 15:04:05",
}

// numericRegex validates a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// maxSerial is 9999-12-31 in the 1900 date system, the highest date a
// spreadsheet cell can hold. Values outside [1, maxSerial] are stray
// numbers, not dates.
const maxSerial = 2958465

func serialInRange(serial float64) bool {
	return serial >= 1 && serial < maxSerial+1
}

// ParseDate parses a day/month/year cell or a spreadsheet serial into a
// calendar date (UTC midnight).
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serialInRange(serial) {
		return serialToTime(serial), true
	}

	return time.Time{}, false
}

// ParseDateTime parses a sanitization-file timestamp. The cell carries a
// wall-clock time with no zone; it is reinterpreted as UTC-3 and
// converted to UTC. The conversion must be exact because the resulting
// instant orders "most recent status" updates.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, saoPaulo); err == nil {
			return t.UTC(), true
		}
	}

	// Date-only timestamps occur when the export drops the time part.
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, saoPaulo); err == nil {
			return t.UTC(), true
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serialInRange(serial) {
		wall := serialToTime(serial)
		t := time.Date(wall.Year(), wall.Month(), wall.Day(),
			wall.Hour(), wall.Minute(), wall.Second(), 0, saoPaulo)
		return t.UTC(), true
	}

	return time.Time{}, false
}

// serialToTime converts a spreadsheet serial (days since the 1900-system
// epoch, fraction = time of day) to a UTC instant, rounded to the
// nearest second to absorb float representation error.
func serialToTime(serial float64) time.Time {
	seconds := math.Round(serial * 86400)
	return serialEpoch.Add(time.Duration(seconds) * time.Second)
}

// NormalizePhone strips every non-digit; blank input stays empty.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeClassification canonicalizes a temperature label:
// trim, lowercase, capitalize the first letter ("  QUENTE " -> "Quente").
func NormalizeClassification(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// ToNumeric parses a monetary cell into pgtype.Numeric. Accepts
// Brazilian formatting ("R$ 1.234,56"), plain decimals, and serials
// exported as "1234.56". Invalid or empty input yields Valid=false.
func ToNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)

	if strings.Contains(s, ",") {
		// Brazilian convention: '.' groups thousands, ',' is the
		// decimal separator.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToText wraps a trimmed cell in pgtype.Text, invalid when blank.
func ToText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

var diacriticsRemover = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeVendorName canonicalizes a vendor name for the uniqueness
// key: diacritics stripped, lowercased, inner whitespace collapsed.
func NormalizeVendorName(s string) string {
	if stripped, _, err := transform.String(diacriticsRemover, s); err == nil {
		s = stripped
	}
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
