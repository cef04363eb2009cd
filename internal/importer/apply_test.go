package importer

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

func TestSparseApplierKeepsExistingValues(t *testing.T) {
	lead := &store.Lead{
		Name:   pgtype.Text{String: "Maria Silva", Valid: true},
		Phone1: pgtype.Text{String: "48999990000", Valid: true},
		Class1: pgtype.Text{String: "Quente", Valid: true},
	}

	// Empty cells must not blank out data an earlier import provided.
	applierFor(store.ImportCadastral).Apply(lead, Row{
		ColNomeCliente: "",
		PhoneColumn(1): "",
		PhoneColumn(2): "(48) 3222-1111",
		ClassColumn(2): "frio",
		ColNascimento:  "15/03/1990",
	})

	if lead.Name.String != "Maria Silva" {
		t.Errorf("Name overwritten to %q", lead.Name.String)
	}
	if lead.Phone1.String != "48999990000" {
		t.Errorf("Phone1 overwritten to %q", lead.Phone1.String)
	}
	if lead.Phone2.String != "4832221111" {
		t.Errorf("Phone2 = %q", lead.Phone2.String)
	}
	if lead.Class2.String != "Frio" {
		t.Errorf("Class2 = %q", lead.Class2.String)
	}
	if !lead.BirthDate.Valid || lead.BirthDate.Time.Year() != 1990 {
		t.Errorf("BirthDate = %+v", lead.BirthDate)
	}
}

func TestDenseApplierOverwritesUnconditionally(t *testing.T) {
	lead := &store.Lead{
		StatusCode:    pgtype.Text{String: "001", Valid: true},
		StatusMessage: pgtype.Text{String: "antigo", Valid: true},
	}

	applierFor(store.ImportHigienizacao).Apply(lead, Row{
		ColCodigo:       "",
		ColMensagem:     "sem saldo",
		ColSaldo:        "R$ 100,00",
		ColDataConsulta: "15/03/2021 10:00:00",
	})

	// The file is the authority: an empty code clears the stored one.
	if lead.StatusCode.Valid {
		t.Errorf("StatusCode = %+v, want cleared", lead.StatusCode)
	}
	if lead.StatusMessage.String != "sem saldo" {
		t.Errorf("StatusMessage = %q", lead.StatusMessage.String)
	}
	if !lead.Balance.Valid {
		t.Error("Balance not set")
	}
	if !lead.StatusUpdatedAt.Valid {
		t.Error("StatusUpdatedAt not set")
	}
}

func TestDenseApplierInvalidTimestamp(t *testing.T) {
	lead := &store.Lead{
		StatusUpdatedAt: pgtype.Timestamptz{Valid: true},
	}

	applierFor(store.ImportHigienizacao).Apply(lead, Row{
		ColDataConsulta: "quando der",
	})

	if lead.StatusUpdatedAt.Valid {
		t.Error("unparseable timestamp should clear StatusUpdatedAt")
	}
}

func TestApplierSelection(t *testing.T) {
	if _, ok := applierFor(store.ImportCadastral).(sparseApplier); !ok {
		t.Error("cadastral should use the sparse policy")
	}
	if _, ok := applierFor(store.ImportHigienizacao).(denseApplier); !ok {
		t.Error("higienizacao should use the dense policy")
	}
}
