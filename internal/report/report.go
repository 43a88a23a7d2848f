// Package report renders person rosters and roll-call history as xlsx workbooks.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	conferenceModels "custodia/internal/conference/models"
	personModels "custodia/internal/person/models"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	rosterSheet  = "Presos"
	historySheet = "Conferências"
	timeLayout   = "02/01/2006 15:04"
)

var rosterHeaders = []string{
	"Pavilhão", "Cela", "Nome", "Matrícula", "Status",
	"Televisão", "Rádio", "Ventilador", "Colchão",
	"Dia de visita", "Data de entrada", "Unidade",
}

var historyHeaders = []string{
	"Data", "Unidade", "Conferidos", "Esperados", "Ausentes", "Observação",
}

// Roster lists people sorted by pavilion, cell and name.
func Roster(people []personModels.Person) ([]byte, error) {
	sorted := make([]personModels.Person, len(people))
	copy(sorted, people)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Pavilion != b.Pavilion {
			return a.Pavilion < b.Pavilion
		}
		if a.Cell != b.Cell {
			return a.Cell < b.Cell
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})

	rows := make([][]any, 0, len(sorted))
	for _, p := range sorted {
		rows = append(rows, []any{
			p.Pavilion, p.Cell, p.Name, p.RegistrationNumber, string(p.Status),
			yesNo(p.Television), yesNo(p.Radio), yesNo(p.Fan), yesNo(p.Mattress),
			p.VisitDay, p.EntryDate, p.FacilityName,
		})
	}
	return build(rosterSheet, rosterHeaders, []float64{12, 8, 32, 14, 18, 10, 8, 11, 9, 14, 16, 24}, rows)
}

// ConferenceHistory lists roll calls newest first.
func ConferenceHistory(records []conferenceModels.Conference) ([]byte, error) {
	sorted := make([]conferenceModels.Conference, len(records))
	copy(sorted, records)
	conferenceModels.SortNewestFirst(sorted)

	rows := make([][]any, 0, len(sorted))
	for _, c := range sorted {
		date := ""
		if !c.CreatedAt.IsZero() {
			date = c.CreatedAt.Format(timeLayout)
		}
		rows = append(rows, []any{date, c.FacilityID, c.TotalChecked, c.TotalExpected, c.Missing(), c.Note})
	}
	return build(historySheet, historyHeaders, []float64{18, 16, 12, 12, 10, 40}, rows)
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func build(sheet string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("set header %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %s: %w", cell, err)
		}
		if col < len(widths) {
			name, err := excelize.ColumnNumberToName(col + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(sheet, name, name, widths[col]); err != nil {
				return nil, fmt.Errorf("set width %s: %w", name, err)
			}
		}
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
