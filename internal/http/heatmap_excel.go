package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/KeviinASD/audi-back/internal/service"
)

const (
	heatMapSheet = "Heat Map"
	summarySheet = "Summary"
)

// HeatMapExportHeader columns of the "Heat Map" sheet
var HeatMapExportHeader = []string{
	"Code",
	"Name",
	"Location",
	"Status",
	"Vs Previous Day",
	"Obsolete",
	"Security Risk",
	"Risky Apps",
	"Last Sync (UTC)",
}

var heatMapColumnWidths = []float64{16, 24, 20, 12, 16, 10, 14, 12, 22}

// statusFill cell colour per daily status
var statusFill = map[string]string{
	"operative": "#C6EFCE",
	"degraded":  "#FFEB9C",
	"critical":  "#FFC7CE",
	"no-data":   "#D9D9D9",
}

// GenerateHeatMapWorkbook renders a daily heat map as an XLSX workbook.
func GenerateHeatMapWorkbook(resp *service.DailyHeatMapResponse) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; Close happens at the end or on error.

	index, err := f.NewSheet(heatMapSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	statusStyles := map[string]int{}
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create status style: %w", err)
		}
		statusStyles[status] = id
	}

	for col, header := range HeatMapExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(heatMapSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(heatMapSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(heatMapSheet, name, name, heatMapColumnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, c := range resp.Equipments {
		row := i + 2
		lastSync := ""
		if c.LastSync != nil {
			lastSync = c.LastSync.UTC().Format(time.DateTime)
		}
		values := []any{
			c.Equipment.Code,
			c.Equipment.Name,
			c.Equipment.Location,
			string(c.Status),
			string(c.StatusCompareToPrevDay),
			yesNo(c.IsObsolete),
			yesNo(c.HasSecurityRisk),
			c.RiskyAppsCount,
			lastSync,
		}
		for col, v := range values {
			if err := setCellValue(f, heatMapSheet, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
		if style, ok := statusStyles[string(c.Status)]; ok {
			cell, _ := excelize.CoordinatesToCellName(4, row)
			if err := f.SetCellStyle(heatMapSheet, cell, cell, style); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set status style: %w", err)
			}
		}
	}

	if err := f.SetPanes(heatMapSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	summaryRows := [][]any{
		{"Laboratory", resp.Laboratory.Name},
		{"Location", resp.Laboratory.Location},
		{"Date", resp.Date},
		{"Risky software scope", string(resp.RiskySoftwareScope)},
		{"Total", resp.Summary.Total},
		{"Operative", resp.Summary.Operative},
		{"Degraded", resp.Summary.Degraded},
		{"Critical", resp.Summary.Critical},
		{"No data", resp.Summary.NoData},
		{"With security risk", resp.Summary.WithSecurityRisk},
		{"With risky software", resp.Summary.WithRiskySoftware},
		{"Obsolete", resp.Summary.Obsolete},
	}
	for i, r := range summaryRows {
		for col, v := range r {
			if err := setCellValue(f, summarySheet, col+1, i+1, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set summary cell: %w", err)
			}
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
