// Package consult runs registry consultation batches: it fans a list of
// documents through the lookup client with bounded retries, derives the
// per-bond result rows, and renders the spreadsheet callers download.
package consult

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/config"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/cpf"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/lookup"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

// Fixed diagnostic messages used in zero-bond report rows.
const (
	msgInvalidDocument = "CPF inválido"
	msgNoBonds         = "Nenhum vínculo encontrado"
	msgExhausted       = "Falha na consulta após múltiplas tentativas"
)

// batchStore is the slice of the persistence layer the orchestrator
// uses; *store.Queries satisfies it.
type batchStore interface {
	CreateConsultation(ctx context.Context, id pgtype.UUID, title string, valid, invalid []string) error
	MarkConsultationRunning(ctx context.Context, id pgtype.UUID) error
	UpdateConsultationCounts(ctx context.Context, id pgtype.UUID, success, fail int) error
	SetConsultationReport(ctx context.Context, id pgtype.UUID, path string) error
	FinishConsultation(ctx context.Context, id pgtype.UUID, status string) error
	ConsultationCancelRequested(ctx context.Context, id pgtype.UUID) (bool, error)
}

// Orchestrator runs consultation batches in the background.
type Orchestrator struct {
	store  batchStore
	client lookup.Consulter
	cfg    config.ConsultConfig
	log    *slog.Logger

	jobs sync.WaitGroup

	// sleep and now are swappable in tests.
	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

// NewOrchestrator wires the orchestrator to its store and lookup client.
func NewOrchestrator(s batchStore, client lookup.Consulter, cfg config.ConsultConfig, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:  s,
		client: client,
		cfg:    cfg,
		log:    log,
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// SplitDocuments tokenizes a pasted blob of documents. Commas,
// semicolons and any whitespace all separate entries.
func SplitDocuments(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n' || r == '\r' || r == '\t' || r == ' '
	})
}

// Submit validates the document list, persists the batch, and starts
// processing it in the background. Duplicates are collapsed keeping
// first position; documents failing normalization or the checksum go to
// the invalid list.
func (o *Orchestrator) Submit(ctx context.Context, title string, documents []string) (pgtype.UUID, error) {
	if strings.TrimSpace(title) == "" {
		return pgtype.UUID{}, fmt.Errorf("title is required")
	}

	var valid, invalid []string
	seen := make(map[string]bool)
	for _, raw := range documents {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		normalized, ok := cpf.Normalize(raw)
		if !ok {
			normalized = strings.TrimSpace(raw)
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		if ok && cpf.IsValid(normalized) {
			valid = append(valid, normalized)
		} else {
			invalid = append(invalid, normalized)
		}
	}
	if len(valid)+len(invalid) == 0 {
		return pgtype.UUID{}, fmt.Errorf("no documents submitted")
	}

	batchID := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	if err := o.store.CreateConsultation(ctx, batchID, strings.TrimSpace(title), valid, invalid); err != nil {
		return pgtype.UUID{}, err
	}

	o.jobs.Add(1)
	go func() {
		defer o.jobs.Done()
		defer func() {
			if r := recover(); r != nil {
				o.log.Error("consultation job panicked", "batch_id", uuid.UUID(batchID.Bytes), "panic", r)
				o.finish(batchID, store.ConsultFailed)
			}
		}()
		o.run(batchID, valid, invalid)
	}()

	return batchID, nil
}

// Wait blocks until all in-flight jobs finish. Used during shutdown.
func (o *Orchestrator) Wait() {
	o.jobs.Wait()
}

func (o *Orchestrator) run(batchID pgtype.UUID, valid, invalid []string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Timeout)
	defer cancel()

	log := o.log.With("batch_id", uuid.UUID(batchID.Bytes))
	started := o.now()

	if err := o.store.MarkConsultationRunning(ctx, batchID); err != nil {
		log.Error("mark running failed", "error", err)
		o.finish(batchID, store.ConsultFailed)
		return
	}

	rows := make([]ReportRow, 0, len(valid)+len(invalid))
	for _, doc := range invalid {
		rows = append(rows, messageRow(doc, msgInvalidDocument))
	}

	pending := append([]string(nil), valid...)
	lastErr := make(map[string]string)
	success, terminal := 0, 0

	for attempt := 1; attempt <= o.cfg.MaxAttempts && len(pending) > 0; attempt++ {
		var still []string

		for _, doc := range pending {
			if o.cancelled(ctx, batchID) {
				log.Info("consultation cancelled", "attempt", attempt)
				o.finish(batchID, store.ConsultCancelled)
				return
			}

			out := o.client.Consult(ctx, doc)
			switch out.Status {
			case lookup.StatusOK:
				success++
				if len(out.Bonds) == 0 {
					row := messageRow(doc, msgNoBonds)
					row.Name = out.Name
					rows = append(rows, row)
					break
				}
				for _, b := range out.Bonds {
					rows = append(rows, bondRow(doc, out.Name, b, o.now()))
				}

			case lookup.StatusNotFound:
				// Definitive negative: resolved, but neither a success
				// nor a failure.
				rows = append(rows, messageRow(doc, out.Message))

			case lookup.StatusTerminal:
				terminal++
				rows = append(rows, messageRow(doc, out.Message))

			case lookup.StatusRetriable:
				lastErr[doc] = out.Message
				still = append(still, doc)
			}
		}

		pending = still

		if o.cancelled(ctx, batchID) {
			log.Info("consultation cancelled", "attempt", attempt)
			o.finish(batchID, store.ConsultCancelled)
			return
		}

		if len(pending) > 0 && attempt < o.cfg.MaxAttempts {
			o.sleep(ctx, o.cfg.RetryDelay)
		}
	}

	for _, doc := range pending {
		msg := lastErr[doc]
		if msg == "" {
			msg = msgExhausted
		}
		rows = append(rows, messageRow(doc, msg))
	}

	fail := len(invalid) + terminal + len(pending)
	if err := o.store.UpdateConsultationCounts(ctx, batchID, success, fail); err != nil {
		log.Error("update counts failed", "error", err)
		o.finish(batchID, store.ConsultFailed)
		return
	}

	path, err := WriteReport(o.cfg.ReportsDir, uuid.UUID(batchID.Bytes), rows)
	if err != nil {
		log.Error("report generation failed", "error", err)
		o.finish(batchID, store.ConsultFailed)
		return
	}
	if err := o.store.SetConsultationReport(ctx, batchID, path); err != nil {
		log.Error("persist report path failed", "error", err)
		o.finish(batchID, store.ConsultFailed)
		return
	}

	o.finish(batchID, store.ConsultCompleted)
	log.Info("consultation completed",
		"success", success, "fail", fail, "rows", len(rows),
		"elapsed", time.Since(started))
}

// cancelled polls the persisted cancel flag and the job context.
func (o *Orchestrator) cancelled(ctx context.Context, batchID pgtype.UUID) bool {
	if ctx.Err() != nil {
		return true
	}
	requested, err := o.store.ConsultationCancelRequested(ctx, batchID)
	if err != nil {
		o.log.Warn("cancel poll failed", "error", err)
		return false
	}
	return requested
}

// finish marks a terminal status with a short independent deadline, so
// a timed-out job context cannot block recording its own end.
func (o *Orchestrator) finish(batchID pgtype.UUID, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := o.store.FinishConsultation(ctx, batchID, status); err != nil {
		o.log.Error("finish consultation failed", "status", status, "error", err)
	}
}
