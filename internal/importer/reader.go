package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ParseFile extracts the header row and data rows from an uploaded
// spreadsheet. XLSX files are read through excelize (first sheet);
// anything else is treated as CSV. The first non-empty row is the
// header; everything after it is data.
func ParseFile(fileName string, data []byte) (header []string, rows [][]string, err error) {
	var records [][]string

	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		records, err = parseXLSX(data)
	} else {
		records, err = parseCSV(data)
	}
	if err != nil {
		return nil, nil, err
	}

	for i, rec := range records {
		if !IsEmptyRow(rec) {
			return rec, records[i+1:], nil
		}
	}
	return nil, nil, fmt.Errorf("empty file")
}

func parseXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

func parseCSV(data []byte) ([][]string, error) {
	data = sanitizeUTF8(data)
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	// Brazilian exports often use semicolons; sniff the first line.
	if i := bytes.IndexByte(data, '\n'); i > 0 {
		first := data[:i]
		if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
			r.Comma = ';'
		}
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement
// rune so downstream string handling never chokes on mixed encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
