package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"happdash/internal/config"
	"happdash/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "預約計畫"

// Exporter renders plan tables to Excel for operators who want the data
// outside the dashboard.
type Exporter struct {
	cfg    config.ExportConfig
	logger *zerolog.Logger
}

func NewExporter(cfg config.ExportConfig, logger *zerolog.Logger) *Exporter {
	return &Exporter{cfg: cfg, logger: logger}
}

// PlanTableFile writes the plan table to an xlsx file under the configured
// export directory and returns its path. The label ends up in the title row,
// typically the status filter or "all".
func (e *Exporter) PlanTableFile(plans []models.Plan, label string) (string, error) {
	if err := os.MkdirAll(e.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f, err := e.buildPlanTable(plans, label)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("plans_%s_%s.xlsx", label, time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.cfg.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("plans", len(plans)).Msg("Excel file created")
	return filePath, nil
}

// WritePlanTable streams the plan table as xlsx to w. Used by the HTTP
// export endpoint so nothing touches disk.
func (e *Exporter) WritePlanTable(w io.Writer, plans []models.Plan, label string) error {
	f, err := e.buildPlanTable(plans, label)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

func (e *Exporter) buildPlanTable(plans []models.Plan, label string) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	if label == "" {
		label = "all"
	}
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("預約計畫 (%s) %s",
		label, time.Now().Format("02.01.2006 15:04")))

	headers := []string{
		"計畫 ID", "房間", "場館", "使用日期", "開始", "結束",
		"訂房日期", "訂房時間", "狀態", "LINE 使用者",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, plan := range plans {
		row := i + 3
		endTime := plan.EndTime
		if endTime == "" {
			endTime = "-"
		}

		values := []any{
			plan.ID, plan.RoomName, plan.Venue, plan.StartDay, plan.StartTime, endTime,
			plan.BookingDay, plan.BookingTime, plan.Status, plan.LineUserID,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}

		if styleID, err := statusStyle(f, plan.Status); err == nil {
			statusCell, _ := excelize.CoordinatesToCellName(9, row)
			_ = f.SetCellStyle(sheetName, statusCell, statusCell, styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 28)
	for col := 'B'; col <= 'J'; col++ {
		_ = f.SetColWidth(sheetName, string(col), string(col), 14)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// statusStyle colors the status cell: green for completed, yellow for
// pending and in_progress, red for failed, gray for cancelled.
func statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.StatusCompleted:
		color = "#C6EFCE"
	case models.StatusPending, models.StatusInProgress:
		color = "#FFEB9C"
	case models.StatusFailed:
		color = "#FFC7CE"
	case models.StatusCancelled:
		color = "#D9D9D9"
	default:
		color = "#FFFFFF"
	}

	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
