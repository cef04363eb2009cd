package importer

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

// rowApplier mutates a lead's fields from a parsed row. One
// implementation exists per import dialect; the engine selects it once
// per batch, not per row.
type rowApplier interface {
	Apply(lead *store.Lead, row Row)
}

// applierFor returns the field-application policy for an import type.
func applierFor(importType string) rowApplier {
	if importType == store.ImportHigienizacao {
		return denseApplier{}
	}
	return sparseApplier{}
}

// sparseApplier is the registration policy: a cell only writes its
// field when the transformed value is non-empty, so re-imports never
// blank out data an earlier file provided.
type sparseApplier struct{}

func (sparseApplier) Apply(lead *store.Lead, row Row) {
	if v := ToText(row.Get(ColNomeCliente)); v.Valid {
		lead.Name = v
	}
	if t, ok := ParseDate(row.Get(ColNascimento)); ok {
		lead.BirthDate = pgtype.Date{Time: t, Valid: true}
	}

	phones := []*pgtype.Text{&lead.Phone1, &lead.Phone2, &lead.Phone3, &lead.Phone4}
	classes := []*pgtype.Text{&lead.Class1, &lead.Class2, &lead.Class3, &lead.Class4}
	for i := 0; i < MaxPhones; i++ {
		if p := NormalizePhone(row.Get(PhoneColumn(i + 1))); p != "" {
			*phones[i] = pgtype.Text{String: p, Valid: true}
		}
		if c := NormalizeClassification(row.Get(ClassColumn(i + 1))); c != "" {
			*classes[i] = pgtype.Text{String: c, Valid: true}
		}
	}
}

// denseApplier is the sanitization policy: the file is the authority on
// consultation status, so every status field is overwritten even when
// the incoming cell is empty.
type denseApplier struct{}

func (denseApplier) Apply(lead *store.Lead, row Row) {
	lead.StatusCode = ToText(row.Get(ColCodigo))
	lead.StatusMessage = ToText(row.Get(ColMensagem))
	lead.Balance = ToNumeric(row.Get(ColSaldo))
	lead.ReleasedAmount = ToNumeric(row.Get(ColLiberado))

	if t, ok := ParseDateTime(row.Get(ColDataConsulta)); ok {
		lead.StatusUpdatedAt = pgtype.Timestamptz{Time: t, Valid: true}
	} else {
		lead.StatusUpdatedAt = pgtype.Timestamptz{Valid: false}
	}
}
