package consult

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/lookup"
)

func TestBondRowDisposable(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		salary string
		want   string
	}{
		{"2.500,00", "1750,00"},
		{"1000", "700,00"},
		{"R$ 100,00", "70,00"},
		{"", ""},
		{"indisponível", ""},
	}

	for _, tt := range tests {
		row := bondRow("52998224725", "Maria", lookup.Bond{Salario: tt.salary}, now)
		assert.Equal(t, tt.want, row.Disposable, "salary %q", tt.salary)
	}
}

func TestTenureYears(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start string
		end   string
		want  int
	}{
		{"closed bond", "01/01/2020", "01/01/2023", 3},
		{"day before anniversary", "02/06/2020", "", 4},
		{"on anniversary", "01/06/2020", "", 5},
		{"end before start clamps", "01/01/2023", "01/01/2020", 0},
		{"unparseable start", "quando", "", 0},
		{"sub-year bond", "01/03/2025", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tenureYears(tt.start, tt.end, now))
		})
	}
}

func TestBondRowCarriesFields(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := lookup.Bond{
		Empregador:      "ACME",
		Matricula:       "M-1",
		Situacao:        "ATIVO",
		Salario:         "1.000,00",
		DataAdmissao:    "15/03/2021",
		CodigoBeneficio: "001",
		Mensagem:        "ok",
	}

	row := bondRow("52998224725", "Maria", b, now)
	assert.Equal(t, "52998224725", row.Document)
	assert.Equal(t, "Maria", row.Name)
	assert.Equal(t, "ACME", row.Employer)
	assert.Equal(t, 4, row.TenureYears)
	assert.Equal(t, "700,00", row.Disposable)
}
