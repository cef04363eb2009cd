package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

// Row is one spreadsheet row keyed by lowercase-normalized header name.
// A missing key and an empty value are equivalent.
type Row map[string]string

// Get returns the trimmed cell for a header, "" when absent.
func (r Row) Get(header string) string {
	return strings.TrimSpace(r[header])
}

// Column names of the registration ("cadastral") dialect.
const (
	ColCPFCliente  = "cpfcliente"
	ColNomeCliente = "nomecliente"
	ColNascimento  = "datadenascimento"
	ColContrato    = "datacontrato"
	ColFornecedor  = "fornecedor"
)

// Column names of the sanitization ("higienizacao") dialect.
const (
	ColCPF          = "cpf"
	ColCodigo       = "codigo"
	ColMensagem     = "mensagem"
	ColSaldo        = "saldo"
	ColLiberado     = "liberado"
	ColDataConsulta = "dataconsulta"
)

// ColGeneral is the pseudo-column row errors use when the failure is
// not attributable to a specific cell.
const ColGeneral = "general"

// PhoneColumn and ClassColumn name the nth phone/classification pair
// (1-based, up to 4).
func PhoneColumn(n int) string { return fmt.Sprintf("fone%d", n) }
func ClassColumn(n int) string { return fmt.Sprintf("classificacao%d", n) }

// MaxPhones is how many phone/classification pairs a lead carries.
const MaxPhones = 4

// requiredHeaders lists the headers each dialect demands. Checked once
// per file before any row is processed.
var requiredHeaders = map[string][]string{
	store.ImportCadastral:    {ColCPFCliente},
	store.ImportHigienizacao: {ColCPF, ColCodigo, ColDataConsulta},
}

// NormalizeHeader canonicalizes a header cell for Row keys: trimmed,
// lowercased, inner whitespace removed.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "")
}

// MissingHeaders returns the required headers absent from the file's
// header row, sorted for a deterministic error message. A nil result
// means the file is acceptable for the import type.
func MissingHeaders(importType string, header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[NormalizeHeader(h)] = true
	}

	var missing []string
	for _, want := range requiredHeaders[importType] {
		if !present[want] {
			missing = append(missing, want)
		}
	}
	sort.Strings(missing)
	return missing
}

// BuildRow zips a header row and a data row into a Row. Cells beyond
// the header width are dropped; short rows simply leave keys absent.
func BuildRow(header, cells []string) Row {
	row := make(Row, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if key == "" || i >= len(cells) {
			continue
		}
		row[key] = cells[i]
	}
	return row
}

// IsEmptyRow reports whether every cell is blank.
func IsEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
