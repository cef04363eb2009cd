package consult

import (
	"fmt"
	"time"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/importer"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/lookup"
)

// ReportRow is one line of the result spreadsheet: either one bond of a
// successfully consulted document, or a zero-bond diagnostic row.
type ReportRow struct {
	Document   string
	Name       string
	Employer   string
	Enrollment string
	Situation  string
	Salary     string
	// Disposable is the capped amount available for consignment,
	// derived from the salary.
	Disposable string
	StartDate  string
	// TenureYears is whole years between admission and severance (or
	// today when still active), never negative.
	TenureYears int
	StatusCode  string
	Message     string
}

// disposableRate is the consignable share of a salary.
const disposableRate = 0.70

// bondRow derives one report row from a registry bond.
func bondRow(document, name string, b lookup.Bond, now time.Time) ReportRow {
	row := ReportRow{
		Document:   document,
		Name:       name,
		Employer:   b.Empregador,
		Enrollment: b.Matricula,
		Situation:  b.Situacao,
		Salary:     b.Salario,
		StartDate:  b.DataAdmissao,
		StatusCode: b.CodigoBeneficio,
		Message:    b.Mensagem,
	}

	if salary, ok := parseMoney(b.Salario); ok {
		row.Disposable = formatMoney(salary * disposableRate)
	}
	row.TenureYears = tenureYears(b.DataAdmissao, b.DataAfastamento, now)

	return row
}

// messageRow is a zero-bond row carrying only a diagnostic.
func messageRow(document, message string) ReportRow {
	return ReportRow{Document: document, Message: message}
}

// parseMoney reads a Brazilian-formatted monetary string into a float.
func parseMoney(s string) (float64, bool) {
	n := importer.ToNumeric(s)
	if !n.Valid {
		return 0, false
	}
	f, err := n.Float64Value()
	if err != nil {
		return 0, false
	}
	return f.Float64, true
}

// formatMoney renders a float back in the comma-decimal convention the
// rest of the spreadsheet uses.
func formatMoney(v float64) string {
	cents := int64(v*100 + 0.5)
	if v < 0 {
		cents = int64(v*100 - 0.5)
	}
	whole, frac := cents/100, cents%100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d,%02d", whole, frac)
}

// tenureYears computes whole years between a bond's start and end
// dates. An absent end date means the bond is active, so now is used;
// an end before the start clamps to zero.
func tenureYears(start, end string, now time.Time) int {
	from, ok := importer.ParseDate(start)
	if !ok {
		return 0
	}

	to := now
	if t, ok := importer.ParseDate(end); ok {
		to = t
	}
	if to.Before(from) {
		return 0
	}

	years := to.Year() - from.Year()
	anniversary := from.AddDate(years, 0, 0)
	if anniversary.After(to) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
