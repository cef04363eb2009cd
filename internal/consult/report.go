package consult

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// reportHeader fixes the column order of the result spreadsheet.
var reportHeader = []string{
	"CPF", "Nome", "Empregador", "Matrícula", "Situação",
	"Salário", "Margem Disponível", "Data Admissão", "Tempo de Vínculo (anos)",
	"Código", "Mensagem",
}

// WriteReport renders the result rows to an XLSX file under dir and
// returns the stored path. One bold header row; every cell left-aligned
// horizontally and centered vertically.
func WriteReport(dir string, batchID uuid.UUID, rows []ReportRow) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("report style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("report header style: %w", err)
	}

	header := make([]interface{}, len(reportHeader))
	for i, h := range reportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return "", fmt.Errorf("write report header: %w", err)
	}

	for i, row := range rows {
		cells := []interface{}{
			row.Document, row.Name, row.Employer, row.Enrollment, row.Situation,
			row.Salary, row.Disposable, row.StartDate, row.TenureYears,
			row.StatusCode, row.Message,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return "", fmt.Errorf("write report row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(reportHeader))
	if err != nil {
		return "", err
	}
	if err := f.SetCellStyle(sheet, "A1", fmt.Sprintf("%s%d", lastCol, len(rows)+1), cellStyle); err != nil {
		return "", fmt.Errorf("apply cell style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return "", fmt.Errorf("apply header style: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("consulta-%s.xlsx", batchID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}
