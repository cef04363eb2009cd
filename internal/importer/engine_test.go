package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/config"
	"github.com/luanlucolli2/catarinense-leads-sub000/internal/store"
)

// Valid documents used across the import tests.
const (
	docExisting = "52998224725"
	docNew      = "11144477735"
	docOther    = "12345678909"
	docBadCheck = "12345678900"
)

type contractBackup struct {
	batchID    pgtype.UUID
	contractID int64
}

type vendorBackup struct {
	batchID  pgtype.UUID
	vendorID int64
}

type pivot struct {
	batchID pgtype.UUID
	leadID  int64
	action  string
}

// fakeLeadStore is an in-memory leadStore. Error hooks let tests fail
// specific operations.
type fakeLeadStore struct {
	mu sync.Mutex

	busy           bool
	batches        map[pgtype.UUID]*store.ImportBatch
	latestOverride *pgtype.UUID
	leads          map[string]*store.Lead
	nextID         int64

	backups         []store.LeadBackup
	contractBackups []contractBackup
	vendorBackups   []vendorBackup
	pivots          []pivot
	rowErrors       []store.RowError
	contracts       map[string]int64
	vendors         map[string]int64
	purged          bool

	updateLeadErr func(cpf string) error
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{
		batches:   make(map[pgtype.UUID]*store.ImportBatch),
		leads:     make(map[string]*store.Lead),
		contracts: make(map[string]int64),
		vendors:   make(map[string]int64),
	}
}

func (f *fakeLeadStore) CreateImportBatchIfIdle(ctx context.Context, id pgtype.UUID, importType string, origin pgtype.Text, fileName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return store.ErrImportInProgress
	}
	f.busy = true
	f.batches[id] = &store.ImportBatch{ID: id, Type: importType, Origin: origin, FileName: fileName, Status: store.BatchPending}
	return nil
}

func (f *fakeLeadStore) GetImportBatch(ctx context.Context, id pgtype.UUID) (*store.ImportBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeLeadStore) LatestBatchID(ctx context.Context) (pgtype.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestOverride != nil {
		return *f.latestOverride, nil
	}
	var latest pgtype.UUID
	for id := range f.batches {
		latest = id
	}
	return latest, nil
}

func (f *fakeLeadStore) MarkBatchRunning(ctx context.Context, id pgtype.UUID, totalRows int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.batches[id]
	b.Status = store.BatchRunning
	b.TotalRows = int32(totalRows)
	return nil
}

func (f *fakeLeadStore) FinishBatch(ctx context.Context, id pgtype.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches[id].Status = status
	f.busy = false
	return nil
}

func (f *fakeLeadStore) AdvanceBatchProgress(ctx context.Context, id pgtype.UUID, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.batches[id]
	b.ProcessedRows += int32(delta)
	if b.ProcessedRows > b.TotalRows {
		return fmt.Errorf("progress %d exceeds total %d", b.ProcessedRows, b.TotalRows)
	}
	return nil
}

func (f *fakeLeadStore) AddRowError(ctx context.Context, batchID pgtype.UUID, rowNum int, column, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowErrors = append(f.rowErrors, store.RowError{RowNumber: int32(rowNum), Column: column, Message: message})
	return nil
}

func (f *fakeLeadStore) PurgeAllBackups(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = true
	f.backups = nil
	f.contractBackups = nil
	f.vendorBackups = nil
	return nil
}

func (f *fakeLeadStore) InsertLeadBackups(ctx context.Context, backups []store.LeadBackup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backups = append(f.backups, backups...)
	return nil
}

func (f *fakeLeadStore) GetLeadByCPF(ctx context.Context, cpf string) (*store.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[cpf]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeadStore) InsertLead(ctx context.Context, l *store.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l.ID = f.nextID
	cp := *l
	f.leads[l.CPF] = &cp
	return nil
}

func (f *fakeLeadStore) UpdateLead(ctx context.Context, l *store.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateLeadErr != nil {
		if err := f.updateLeadErr(l.CPF); err != nil {
			return err
		}
	}
	cp := *l
	f.leads[l.CPF] = &cp
	return nil
}

func (f *fakeLeadStore) AttachLeadPivot(ctx context.Context, batchID pgtype.UUID, leadID int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pivots = append(f.pivots, pivot{batchID: batchID, leadID: leadID, action: action})
	return nil
}

func (f *fakeLeadStore) FindOrCreateVendor(ctx context.Context, name, normalized string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.vendors[normalized]; ok {
		return id, false, nil
	}
	f.nextID++
	f.vendors[normalized] = f.nextID
	return f.nextID, true, nil
}

func (f *fakeLeadStore) EnsureVendorBackup(ctx context.Context, batchID pgtype.UUID, vendorID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vendorBackups = append(f.vendorBackups, vendorBackup{batchID: batchID, vendorID: vendorID})
	return nil
}

func (f *fakeLeadStore) InsertContractIfAbsent(ctx context.Context, leadID int64, date time.Time, vendorID pgtype.Int8) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d/%s", leadID, date.Format("2006-01-02"))
	if id, ok := f.contracts[key]; ok {
		return id, false, nil
	}
	f.nextID++
	f.contracts[key] = f.nextID
	return f.nextID, true, nil
}

func (f *fakeLeadStore) InsertContractBackup(ctx context.Context, batchID pgtype.UUID, contractID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contractBackups = append(f.contractBackups, contractBackup{batchID: batchID, contractID: contractID})
	return nil
}

func (f *fakeLeadStore) DeleteContractsBackedUpByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.contractBackups))
	f.contracts = make(map[string]int64)
	return n, nil
}

func (f *fakeLeadStore) DeleteLeadsInsertedByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, b := range f.backups {
		if b.BatchID == batchID && b.WasNew {
			delete(f.leads, b.CPF)
			n++
		}
	}
	return n, nil
}

func (f *fakeLeadStore) ListLeadRestoreBackups(ctx context.Context, batchID pgtype.UUID) ([]store.LeadBackup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.LeadBackup
	for _, b := range f.backups {
		if b.BatchID == batchID && !b.WasNew {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeLeadStore) RestoreLead(ctx context.Context, b store.LeadBackup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[b.CPF]
	if !ok {
		return fmt.Errorf("lead %s not found", b.CPF)
	}
	l.Name = b.Name
	l.BirthDate = b.BirthDate
	l.Phone1, l.Phone2, l.Phone3, l.Phone4 = b.Phone1, b.Phone2, b.Phone3, b.Phone4
	l.Class1, l.Class2, l.Class3, l.Class4 = b.Class1, b.Class2, b.Class3, b.Class4
	l.StatusCode = b.StatusCode
	l.StatusMessage = b.StatusMessage
	l.Balance = b.Balance
	l.ReleasedAmount = b.ReleasedAmount
	l.StatusUpdatedAt = b.StatusUpdatedAt
	return nil
}

func (f *fakeLeadStore) DeleteUnusedVendorsBackedUpByBatch(ctx context.Context, batchID pgtype.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, vb := range f.vendorBackups {
		if vb.batchID == batchID {
			n++
		}
	}
	return n, nil
}

func (f *fakeLeadStore) DeleteBatchPivots(ctx context.Context, batchID pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pivots = nil
	return nil
}

func (f *fakeLeadStore) DeleteBatchBackups(ctx context.Context, batchID pgtype.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backups = nil
	return nil
}

func (f *fakeLeadStore) batchStatus(id pgtype.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches[id].Status
}

func (f *fakeLeadStore) errorList() []store.RowError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.RowError(nil), f.rowErrors...)
}

func (f *fakeLeadStore) lead(cpf string) *store.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.leads[cpf]
	if !ok {
		return nil
	}
	cp := *l
	return &cp
}

// sameStoreTx runs the transaction body against the fake itself; the
// fake has no transactional semantics, which is fine for these paths.
func sameStoreTx(st leadStore) txRunner {
	return func(ctx context.Context, fn func(qtx leadStore) error) error {
		return fn(st)
	}
}

func testEngine(f *fakeLeadStore) *Engine {
	cfg := config.ImportConfig{MaxFileSize: 1 << 20, ChunkSize: 2, Timeout: time.Minute}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newEngine(f, sameStoreTx(f), cfg, log)
}

func submitAndWait(t *testing.T, e *Engine, importType, file string) pgtype.UUID {
	t.Helper()
	id, err := e.Submit(context.Background(), importType, "test", "leads.csv", []byte(file))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	e.Wait()
	return id
}

func TestSubmitRejectsUnknownType(t *testing.T) {
	e := testEngine(newFakeLeadStore())
	_, err := e.Submit(context.Background(), "bulk", "", "leads.csv", []byte("cpfcliente\n"))
	if !errors.Is(err, ErrUnknownImportType) {
		t.Fatalf("Submit() error = %v, want ErrUnknownImportType", err)
	}
}

func TestSubmitRejectsOversizedFile(t *testing.T) {
	f := newFakeLeadStore()
	e := testEngine(f)
	e.cfg.MaxFileSize = 8
	_, err := e.Submit(context.Background(), store.ImportCadastral, "", "leads.csv", []byte("cpfcliente;nomecliente\n"))
	if err == nil {
		t.Fatal("Submit() accepted a file over the size limit")
	}
}

func TestSubmitRejectsConcurrentImport(t *testing.T) {
	f := newFakeLeadStore()
	f.busy = true
	e := testEngine(f)
	_, err := e.Submit(context.Background(), store.ImportCadastral, "", "leads.csv", []byte("cpfcliente\n"))
	if !errors.Is(err, store.ErrImportInProgress) {
		t.Fatalf("Submit() error = %v, want ErrImportInProgress", err)
	}
}

func TestCadastralImportCreatesAndUpdatesLeads(t *testing.T) {
	f := newFakeLeadStore()
	f.nextID = 1
	f.leads[docExisting] = &store.Lead{ID: 1, CPF: docExisting, Name: pgtype.Text{String: "Nome Antigo", Valid: true}}

	e := testEngine(f)
	file := "cpfcliente;nomecliente;fone1\n" +
		docExisting + ";Maria Souza;(48) 99999-0001\n" +
		docNew + ";Joao Lima;\n"
	id := submitAndWait(t, e, store.ImportCadastral, file)

	if got := f.batchStatus(id); got != store.BatchCompleted {
		t.Fatalf("batch status = %q, want %q", got, store.BatchCompleted)
	}
	if errs := f.errorList(); len(errs) != 0 {
		t.Fatalf("row errors = %v, want none", errs)
	}
	if !f.purged {
		t.Error("previous backups were not purged at admission")
	}

	updated := f.lead(docExisting)
	if updated.Name.String != "Maria Souza" {
		t.Errorf("existing lead name = %q, want %q", updated.Name.String, "Maria Souza")
	}
	if updated.Phone1.String != "48999990001" {
		t.Errorf("existing lead phone = %q, want digits only", updated.Phone1.String)
	}
	if created := f.lead(docNew); created == nil || created.Name.String != "Joao Lima" {
		t.Errorf("new lead = %+v, want inserted with name", created)
	}

	var snapshots, fresh int
	for _, b := range f.backups {
		if b.WasNew {
			fresh++
		} else {
			snapshots++
			if b.Name.String != "Nome Antigo" {
				t.Errorf("snapshot name = %q, want pre-import value", b.Name.String)
			}
		}
	}
	if snapshots != 1 || fresh != 1 {
		t.Errorf("backups = %d snapshots, %d new; want 1 and 1", snapshots, fresh)
	}

	if b, _ := f.GetImportBatch(context.Background(), id); b.ProcessedRows != b.TotalRows || b.TotalRows != 2 {
		t.Errorf("progress = %d/%d, want 2/2", b.ProcessedRows, b.TotalRows)
	}
}

func TestCadastralImportRecordsContracts(t *testing.T) {
	f := newFakeLeadStore()
	e := testEngine(f)
	file := "cpfcliente;nomecliente;datacontrato;fornecedor\n" +
		docNew + ";Joao Lima;15/03/2021;Banco Alfa\n"
	id := submitAndWait(t, e, store.ImportCadastral, file)

	if got := f.batchStatus(id); got != store.BatchCompleted {
		t.Fatalf("batch status = %q, want %q", got, store.BatchCompleted)
	}
	if len(f.contractBackups) != 1 {
		t.Errorf("contract backups = %d, want 1", len(f.contractBackups))
	}
	if len(f.vendorBackups) != 1 {
		t.Errorf("vendor backups = %d, want 1", len(f.vendorBackups))
	}
}

func TestUnexpectedRowFailureRecordsGeneralError(t *testing.T) {
	f := newFakeLeadStore()
	f.nextID = 2
	f.leads[docExisting] = &store.Lead{ID: 1, CPF: docExisting}
	f.leads[docOther] = &store.Lead{ID: 2, CPF: docOther}
	f.updateLeadErr = func(cpf string) error {
		if cpf == docExisting {
			return errors.New("numeric field overflow")
		}
		return nil
	}

	e := testEngine(f)
	file := "cpf;codigo;dataconsulta\n" +
		docExisting + ";1;15/03/2021 10:30:00\n" +
		docOther + ";1;15/03/2021 10:30:00\n"
	id := submitAndWait(t, e, store.ImportHigienizacao, file)

	if got := f.batchStatus(id); got != store.BatchCompleted {
		t.Fatalf("batch status = %q, want %q (one bad row must not sink the batch)", got, store.BatchCompleted)
	}

	errs := f.errorList()
	if len(errs) != 1 {
		t.Fatalf("row errors = %v, want exactly one", errs)
	}
	if errs[0].Column != ColGeneral || errs[0].RowNumber != 2 {
		t.Errorf("row error = %+v, want column %q at row 2", errs[0], ColGeneral)
	}
	if !strings.Contains(errs[0].Message, "numeric field overflow") {
		t.Errorf("row error message = %q, want the underlying cause", errs[0].Message)
	}

	if l := f.lead(docOther); !l.StatusCode.Valid {
		t.Error("row after the failed one was not applied")
	}
}

func TestBlankDocumentCellRecordsGeneralError(t *testing.T) {
	f := newFakeLeadStore()
	e := testEngine(f)
	file := "cpfcliente;nomecliente\n" +
		";Sem Documento\n" +
		docNew + ";Joao Lima\n"
	id := submitAndWait(t, e, store.ImportCadastral, file)

	if got := f.batchStatus(id); got != store.BatchCompleted {
		t.Fatalf("batch status = %q, want %q", got, store.BatchCompleted)
	}

	errs := f.errorList()
	if len(errs) != 1 {
		t.Fatalf("row errors = %v, want exactly one", errs)
	}
	if errs[0].Column != ColGeneral {
		t.Errorf("missing-cell error column = %q, want %q", errs[0].Column, ColGeneral)
	}
	if !strings.Contains(errs[0].Message, ColCPFCliente) {
		t.Errorf("missing-cell error message = %q, want it to name the absent column", errs[0].Message)
	}
}

func TestInvalidChecksumRecordsDocumentColumn(t *testing.T) {
	f := newFakeLeadStore()
	e := testEngine(f)
	file := "cpfcliente;nomecliente\n" + docBadCheck + ";Maria Souza\n"
	id := submitAndWait(t, e, store.ImportCadastral, file)

	if got := f.batchStatus(id); got != store.BatchCompleted {
		t.Fatalf("batch status = %q, want %q", got, store.BatchCompleted)
	}
	errs := f.errorList()
	if len(errs) != 1 || errs[0].Column != ColCPFCliente {
		t.Fatalf("row errors = %v, want one under %q", errs, ColCPFCliente)
	}
	if f.lead(docBadCheck) != nil {
		t.Error("lead with invalid document was persisted")
	}
}

func TestSanitizationRequiresExistingLead(t *testing.T) {
	f := newFakeLeadStore()
	e := testEngine(f)
	file := "cpf;codigo;dataconsulta\n" + docNew + ";1;15/03/2021 10:30:00\n"
	id := submitAndWait(t, e, store.ImportHigienizacao, file)

	if got := f.batchStatus(id); got != store.BatchCompleted {
		t.Fatalf("batch status = %q, want %q", got, store.BatchCompleted)
	}
	errs := f.errorList()
	if len(errs) != 1 || errs[0].Column != ColCPF {
		t.Fatalf("row errors = %v, want one under %q", errs, ColCPF)
	}
	if f.lead(docNew) != nil {
		t.Error("sanitization created a lead")
	}
}

func TestMissingRequiredHeadersFailBatch(t *testing.T) {
	f := newFakeLeadStore()
	e := testEngine(f)
	file := "cpf;mensagem\n" + docExisting + ";ok\n"
	id := submitAndWait(t, e, store.ImportHigienizacao, file)

	if got := f.batchStatus(id); got != store.BatchFailed {
		t.Fatalf("batch status = %q, want %q", got, store.BatchFailed)
	}
	errs := f.errorList()
	if len(errs) != 1 || errs[0].Column != ColGeneral {
		t.Fatalf("row errors = %v, want one general entry", errs)
	}
	if !strings.Contains(errs[0].Message, "colunas obrigatórias ausentes") {
		t.Errorf("error message = %q, want missing-header report", errs[0].Message)
	}
}

func TestSystemicFailureAbortsBatch(t *testing.T) {
	f := newFakeLeadStore()
	f.leads[docOther] = &store.Lead{ID: 1, CPF: docOther}
	broken := func(ctx context.Context, fn func(qtx leadStore) error) error {
		return jobFailure{errors.New("connection refused")}
	}
	cfg := config.ImportConfig{MaxFileSize: 1 << 20, ChunkSize: 2, Timeout: time.Minute}
	e := newEngine(f, broken, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	file := "cpfcliente;nomecliente\n" +
		docExisting + ";Maria Souza\n" +
		docOther + ";Joao Lima\n"
	id := submitAndWait(t, e, store.ImportCadastral, file)

	if got := f.batchStatus(id); got != store.BatchFailed {
		t.Fatalf("batch status = %q, want %q", got, store.BatchFailed)
	}
	errs := f.errorList()
	if len(errs) != 1 || errs[0].Column != ColGeneral || errs[0].RowNumber != 1 {
		t.Fatalf("row errors = %v, want a single fatal general entry", errs)
	}
}
