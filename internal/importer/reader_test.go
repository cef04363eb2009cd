package importer

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseFileCSV(t *testing.T) {
	data := []byte("CPF Cliente,Nome Cliente\n12345678901,Maria\n,\n98765432100,Jose\n")

	header, rows, err := ParseFile("leads.csv", data)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(header) != 2 || header[0] != "CPF Cliente" {
		t.Errorf("header = %v", header)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3 (empty row kept for numbering)", len(rows))
	}
	if rows[2][1] != "Jose" {
		t.Errorf("rows[2] = %v", rows[2])
	}
}

func TestParseFileCSVSemicolon(t *testing.T) {
	data := []byte("CPF;Codigo;Data Consulta\n12345678901;001;15/03/2021 10:00:00\n")

	header, rows, err := ParseFile("status.csv", data)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(header) != 3 {
		t.Fatalf("header = %v, want 3 columns", header)
	}
	if len(rows) != 1 || rows[0][1] != "001" {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseFileCSVBOM(t *testing.T) {
	data := append([]byte("\xef\xbb\xbf"), []byte("CPF Cliente\n12345678901\n")...)

	header, _, err := ParseFile("leads.csv", data)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if NormalizeHeader(header[0]) != ColCPFCliente {
		t.Errorf("header[0] = %q, BOM not stripped", header[0])
	}
}

func TestParseFileCSVInvalidUTF8(t *testing.T) {
	// Latin-1 "Jos\xe9" is not valid UTF-8; parsing must not fail.
	data := []byte("Nome Cliente,CPF Cliente\nJos\xe9,12345678901\n")

	_, rows, err := ParseFile("leads.csv", data)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
}

func TestParseFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"CPF Cliente", "Nome Cliente"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow(sheet, "A2", &[]interface{}{"12345678901", "Maria"}); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	header, rows, err := ParseFile("leads.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if header[0] != "CPF Cliente" {
		t.Errorf("header = %v", header)
	}
	if len(rows) != 1 || rows[0][1] != "Maria" {
		t.Errorf("rows = %v", rows)
	}
}

func TestParseFileEmpty(t *testing.T) {
	if _, _, err := ParseFile("empty.csv", []byte("")); err == nil {
		t.Error("empty file should error")
	}
}
