package importer

import (
	"reflect"
	"testing"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct{ in, want string }{
		{"CPF Cliente", "cpfcliente"},
		{"  Data de Nascimento ", "datadenascimento"},
		{"FONE1", "fone1"},
		{"cpf", "cpf"},
	}
	for _, tt := range tests {
		if got := NormalizeHeader(tt.in); got != tt.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMissingHeaders(t *testing.T) {
	tests := []struct {
		name       string
		importType string
		header     []string
		want       []string
	}{
		{
			name:       "cadastral complete",
			importType: store.ImportCadastral,
			header:     []string{"CPF Cliente", "Nome Cliente", "Fone1"},
			want:       nil,
		},
		{
			name:       "cadastral missing cpf",
			importType: store.ImportCadastral,
			header:     []string{"Nome Cliente"},
			want:       []string{"cpfcliente"},
		},
		{
			name:       "higienizacao complete",
			importType: store.ImportHigienizacao,
			header:     []string{"CPF", "Codigo", "Data Consulta", "Saldo"},
			want:       nil,
		},
		{
			name:       "higienizacao missing two",
			importType: store.ImportHigienizacao,
			header:     []string{"CPF"},
			want:       []string{"codigo", "dataconsulta"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingHeaders(tt.importType, tt.header)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingHeaders() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildRow(t *testing.T) {
	header := []string{"CPF Cliente", "Nome Cliente", "Fone1", ""}
	cells := []string{"12345678901", " Maria ", "48 99999-0000"}

	row := BuildRow(header, cells)

	if got := row.Get(ColCPFCliente); got != "12345678901" {
		t.Errorf("Get(cpfcliente) = %q", got)
	}
	if got := row.Get(ColNomeCliente); got != "Maria" {
		t.Errorf("Get(nomecliente) = %q, want trimmed", got)
	}
	// Short row: the missing cell reads as empty.
	if got := row.Get(PhoneColumn(2)); got != "" {
		t.Errorf("Get(fone2) = %q, want empty", got)
	}
}

func TestIsEmptyRow(t *testing.T) {
	if !IsEmptyRow([]string{"", "  ", "\t"}) {
		t.Error("blank cells should be an empty row")
	}
	if IsEmptyRow([]string{"", "x"}) {
		t.Error("row with content is not empty")
	}
}
