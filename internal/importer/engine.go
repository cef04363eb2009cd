// Package importer ingests lead spreadsheets: it parses uploaded files,
// applies the per-dialect field policy row by row, snapshots every lead
// it is about to mutate, and can undo the most recent completed batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/config"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/cpf"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

// ErrUnknownImportType is returned for a type other than cadastral or
// higienizacao.
var ErrUnknownImportType = errors.New("unknown import type")

// leadStore is the slice of the persistence layer the import and
// rollback engines use. *store.Queries satisfies it both pool-bound and
// transaction-bound.
type leadStore interface {
	CreateImportBatchIfIdle(ctx context.Context, id pgtype.UUID, importType string, origin pgtype.Text, fileName string) error
	GetImportBatch(ctx context.Context, id pgtype.UUID) (*store.ImportBatch, error)
	LatestBatchID(ctx context.Context) (pgtype.UUID, error)
	MarkBatchRunning(ctx context.Context, id pgtype.UUID, totalRows int) error
	FinishBatch(ctx context.Context, id pgtype.UUID, status string) error
	AdvanceBatchProgress(ctx context.Context, id pgtype.UUID, delta int) error
	AddRowError(ctx context.Context, batchID pgtype.UUID, rowNum int, column, message string) error
	PurgeAllBackups(ctx context.Context) error
	InsertLeadBackups(ctx context.Context, backups []store.LeadBackup) error

	GetLeadByCPF(ctx context.Context, cpf string) (*store.Lead, error)
	InsertLead(ctx context.Context, l *store.Lead) error
	UpdateLead(ctx context.Context, l *store.Lead) error
	AttachLeadPivot(ctx context.Context, batchID pgtype.UUID, leadID int64, action string) error
	FindOrCreateVendor(ctx context.Context, name, normalized string) (int64, bool, error)
	EnsureVendorBackup(ctx context.Context, batchID pgtype.UUID, vendorID int64) error
	InsertContractIfAbsent(ctx context.Context, leadID int64, date time.Time, vendorID pgtype.Int8) (int64, bool, error)
	InsertContractBackup(ctx context.Context, batchID pgtype.UUID, contractID int64) error

	DeleteContractsBackedUpByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error)
	DeleteLeadsInsertedByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error)
	ListLeadRestoreBackups(ctx context.Context, batchID pgtype.UUID) ([]store.LeadBackup, error)
	RestoreLead(ctx context.Context, b store.LeadBackup) error
	DeleteUnusedVendorsBackedUpByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error)
	DeleteBatchPivots(ctx context.Context, batchID pgtype.UUID) error
	DeleteBatchBackups(ctx context.Context, batchID pgtype.UUID) error
}

// txRunner executes fn inside one database transaction, committing when
// fn returns nil and rolling back otherwise.
type txRunner func(ctx context.Context, fn func(qtx leadStore) error) error

// jobFailure marks a systemic error that invalidates the whole batch
// (pool exhaustion, connection loss) rather than a single row.
type jobFailure struct{ err error }

func (e jobFailure) Error() string { return e.err.Error() }
func (e jobFailure) Unwrap() error { return e.err }

// Engine runs import jobs. One job runs at a time; admission is
// enforced in the database so concurrent submissions race safely.
type Engine struct {
	store leadStore
	inTx  txRunner
	cfg   config.ImportConfig
	log   *slog.Logger

	jobs sync.WaitGroup
}

// NewEngine returns an Engine backed by pool.
func NewEngine(pool *pgxpool.Pool, cfg config.ImportConfig, log *slog.Logger) *Engine {
	return newEngine(store.New(pool), pgxTxRunner(pool), cfg, log)
}

func newEngine(st leadStore, inTx txRunner, cfg config.ImportConfig, log *slog.Logger) *Engine {
	return &Engine{store: st, inTx: inTx, cfg: cfg, log: log}
}

func pgxTxRunner(pool *pgxpool.Pool) txRunner {
	return func(ctx context.Context, fn func(qtx leadStore) error) error {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return jobFailure{fmt.Errorf("begin transaction: %w", err)}
		}
		defer tx.Rollback(ctx)

		if err := fn(store.New(tx)); err != nil {
			return err
		}
		return tx.Commit(ctx)
	}
}

// Submit admits a new import batch and starts processing it in the
// background. It returns store.ErrImportInProgress when another batch
// is pending or running.
func (e *Engine) Submit(ctx context.Context, importType, origin, fileName string, data []byte) (pgtype.UUID, error) {
	if importType != store.ImportCadastral && importType != store.ImportHigienizacao {
		return pgtype.UUID{}, fmt.Errorf("%w: %q", ErrUnknownImportType, importType)
	}
	if int64(len(data)) > e.cfg.MaxFileSize {
		return pgtype.UUID{}, fmt.Errorf("file exceeds %d bytes", e.cfg.MaxFileSize)
	}

	batchID := pgtype.UUID{Bytes: uuid.New(), Valid: true}
	originText := pgtype.Text{String: origin, Valid: origin != ""}

	if err := e.store.CreateImportBatchIfIdle(ctx, batchID, importType, originText, fileName); err != nil {
		return pgtype.UUID{}, err
	}

	e.jobs.Add(1)
	go func() {
		defer e.jobs.Done()
		defer func() {
			if r := recover(); r != nil {
				e.log.Error("import job panicked", "batch_id", uuid.UUID(batchID.Bytes), "panic", r)
				e.failBatch(batchID, fmt.Sprintf("erro interno: %v", r))
			}
		}()
		e.run(batchID, importType, fileName, data)
	}()

	return batchID, nil
}

// Wait blocks until all in-flight jobs finish. Used during shutdown.
func (e *Engine) Wait() {
	e.jobs.Wait()
}

func (e *Engine) run(batchID pgtype.UUID, importType, fileName string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Timeout)
	defer cancel()

	log := e.log.With("batch_id", uuid.UUID(batchID.Bytes), "type", importType, "file", fileName)
	started := time.Now()

	// A new import is the new restore point; older backups are dead
	// weight the moment it is admitted.
	if err := e.store.PurgeAllBackups(ctx); err != nil {
		log.Error("purge backups failed", "error", err)
		e.failBatch(batchID, "falha ao preparar backups: "+err.Error())
		return
	}

	header, rows, err := ParseFile(fileName, data)
	if err != nil {
		log.Error("file parse failed", "error", err)
		e.failBatch(batchID, "arquivo ilegível: "+err.Error())
		return
	}

	if missing := MissingHeaders(importType, header); len(missing) > 0 {
		msg := "colunas obrigatórias ausentes: " + strings.Join(missing, ", ")
		log.Warn("header validation failed", "missing", missing)
		e.failBatch(batchID, msg)
		return
	}

	if err := e.store.MarkBatchRunning(ctx, batchID, len(rows)); err != nil {
		log.Error("mark running failed", "error", err)
		e.failBatch(batchID, err.Error())
		return
	}

	applier := applierFor(importType)
	rec := NewRecorder(e.store, batchID, e.cfg.ChunkSize)

	pending := 0
	for i, cells := range rows {
		rowNum := i + 2 // header is spreadsheet row 1

		if !IsEmptyRow(cells) {
			row := BuildRow(header, cells)
			if procErr := e.processRow(ctx, batchID, importType, applier, rec, row); procErr != nil {
				column, message, fatal := classifyRowFailure(ctx, procErr)
				if fatal {
					log.Error("import aborted", "row", rowNum, "error", procErr)
					e.failBatch(batchID, procErr.Error())
					return
				}
				if column == ColGeneral {
					log.Warn("row failed", "row", rowNum, "error", procErr)
				}
				if err := e.store.AddRowError(ctx, batchID, rowNum, column, message); err != nil {
					log.Error("record row error failed", "error", err)
					e.failBatch(batchID, err.Error())
					return
				}
			}
		}

		pending++
		if pending >= e.cfg.ChunkSize {
			if err := rec.Flush(ctx); err != nil {
				log.Error("backup flush failed", "error", err)
				e.failBatch(batchID, err.Error())
				return
			}
			if err := e.store.AdvanceBatchProgress(ctx, batchID, pending); err != nil {
				log.Error("advance progress failed", "error", err)
				e.failBatch(batchID, err.Error())
				return
			}
			pending = 0
		}
	}

	if err := rec.Flush(ctx); err != nil {
		log.Error("backup flush failed", "error", err)
		e.failBatch(batchID, err.Error())
		return
	}
	if pending > 0 {
		if err := e.store.AdvanceBatchProgress(ctx, batchID, pending); err != nil {
			log.Error("advance progress failed", "error", err)
			e.failBatch(batchID, err.Error())
			return
		}
	}

	if err := e.store.FinishBatch(ctx, batchID, store.BatchCompleted); err != nil {
		log.Error("finish batch failed", "error", err)
		return
	}
	log.Info("import completed", "rows", len(rows), "elapsed", time.Since(started))
}

// rowError is a per-row failure attributed to a specific cell by the
// validation steps themselves.
type rowError struct {
	Column  string
	Message string
}

func (e *rowError) Error() string { return e.Column + ": " + e.Message }

func rowErr(column, message string) *rowError {
	return &rowError{Column: column, Message: message}
}

// classifyRowFailure decides whether a row failure is captured (batch
// continues) or systemic (batch fails). Validation failures carry their
// own column; anything else that arose inside the row's transaction is
// captured under the general column, so one bad cell the validators
// missed cannot sink the remaining rows.
func classifyRowFailure(ctx context.Context, err error) (column, message string, fatal bool) {
	var re *rowError
	if errors.As(err, &re) {
		return re.Column, re.Message, false
	}

	var jf jobFailure
	if errors.As(err, &jf) || ctx.Err() != nil {
		return "", "", true
	}

	return ColGeneral, err.Error(), false
}

// processRow applies one data row inside its own transaction, so a
// mid-row failure never leaves a half-written lead behind.
func (e *Engine) processRow(ctx context.Context, batchID pgtype.UUID, importType string, applier rowApplier, rec *Recorder, row Row) error {
	cpfColumn := ColCPFCliente
	if importType == store.ImportHigienizacao {
		cpfColumn = ColCPF
	}

	raw := row.Get(cpfColumn)
	if raw == "" {
		return rowErr(ColGeneral, "campo obrigatório ausente: "+cpfColumn)
	}
	document, ok := cpf.Normalize(raw)
	if !ok || !cpf.IsValid(document) {
		return rowErr(cpfColumn, "CPF inválido")
	}

	var snapshot *store.LeadBackup
	var createdID int64

	err := e.inTx(ctx, func(qtx leadStore) error {
		lead, err := qtx.GetLeadByCPF(ctx, document)
		if err != nil {
			return err
		}

		switch {
		case lead == nil && importType == store.ImportHigienizacao:
			// Sanitization only annotates leads registration has created.
			return rowErr(ColCPF, "CPF não cadastrado na base")

		case lead == nil:
			lead = &store.Lead{CPF: document}
			applier.Apply(lead, row)
			if err := qtx.InsertLead(ctx, lead); err != nil {
				return err
			}
			if err := qtx.AttachLeadPivot(ctx, batchID, lead.ID, store.ActionInsert); err != nil {
				return err
			}
			createdID = lead.ID

		default:
			if !rec.Seen(lead.ID) {
				s := Snapshot(batchID, lead)
				snapshot = &s
			}
			applier.Apply(lead, row)
			if err := qtx.UpdateLead(ctx, lead); err != nil {
				return err
			}
			if err := qtx.AttachLeadPivot(ctx, batchID, lead.ID, store.ActionUpdate); err != nil {
				return err
			}
		}

		if importType == store.ImportCadastral {
			return applyContract(ctx, qtx, batchID, lead.ID, row)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Buffer backups only after the commit: a rolled-back row must not
	// leave a snapshot claiming the batch touched the lead.
	if snapshot != nil {
		return rec.Add(ctx, *snapshot)
	}
	if createdID != 0 && !rec.Seen(createdID) {
		return rec.AddNew(ctx, createdID, document)
	}
	return nil
}

// applyContract records the row's contract and vendor, when present.
// Contracts are insert-only and deduplicated on (lead, date).
func applyContract(ctx context.Context, qtx leadStore, batchID pgtype.UUID, leadID int64, row Row) error {
	date, ok := ParseDate(row.Get(ColContrato))
	if !ok {
		return nil
	}

	var vendorID pgtype.Int8
	if name := row.Get(ColFornecedor); name != "" {
		id, created, err := qtx.FindOrCreateVendor(ctx, name, NormalizeVendorName(name))
		if err != nil {
			return err
		}
		if created {
			if err := qtx.EnsureVendorBackup(ctx, batchID, id); err != nil {
				return err
			}
		}
		vendorID = pgtype.Int8{Int64: id, Valid: true}
	}

	contractID, inserted, err := qtx.InsertContractIfAbsent(ctx, leadID, date, vendorID)
	if err != nil {
		return err
	}
	if inserted {
		return qtx.InsertContractBackup(ctx, batchID, contractID)
	}
	return nil
}

// failBatch marks the batch failed and records the fatal message as a
// general row error so the export surfaces it.
func (e *Engine) failBatch(batchID pgtype.UUID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.store.AddRowError(ctx, batchID, 1, ColGeneral, message); err != nil {
		e.log.Error("record fatal error failed", "error", err)
	}
	if err := e.store.FinishBatch(ctx, batchID, store.BatchFailed); err != nil {
		e.log.Error("mark batch failed failed", "error", err)
	}
}
