package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"termin/internal/domain"
	"termin/internal/models"
	"termin/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ScheduleExporter writes the booking schedule to an Excel file: one
// row per catalog slot, one column per day. Cancelled records are
// history and never appear.
type ScheduleExporter struct {
	store  domain.Store
	slots  schedule.Catalog
	path   string
	logger *zerolog.Logger
}

func NewScheduleExporter(store domain.Store, slots schedule.Catalog, path string, logger *zerolog.Logger) *ScheduleExporter {
	return &ScheduleExporter{
		store:  store,
		slots:  slots,
		path:   path,
		logger: logger,
	}
}

// Export renders the range into an xlsx file and returns its path.
func (e *ScheduleExporter) Export(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if endDate.Before(startDate) {
		return "", fmt.Errorf("end date %s before start date %s", endDate.Format(models.DateLayout), startDate.Format(models.DateLayout))
	}

	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Raspored"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Raspored: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateCols := e.writeDateHeaders(f, sheetName, startDate, endDate)
	e.writeSlotHeaders(f, sheetName)

	for date, col := range dateCols {
		bookings, err := e.store.QueryBookings(ctx, domain.QueryFilter{Date: date})
		if err != nil {
			return "", fmt.Errorf("error getting bookings for %s: %v", date, err)
		}
		e.writeDayColumn(f, sheetName, col, bookings)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 10)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 24)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("raspored_%s_do_%s.xlsx",
		startDate.Format(models.DateLayout),
		endDate.Format(models.DateLayout))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("schedule exported")
	return filePath, nil
}

func (e *ScheduleExporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	dateCols := make(map[string]int)

	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, d.Format("02.01"))
		_ = f.SetCellStyle(sheetName, cell, cell, style)
		dateCols[d.Format(models.DateLayout)] = col
		col++
	}
	return dateCols
}

func (e *ScheduleExporter) writeSlotHeaders(f *excelize.File, sheetName string) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	for i, slot := range e.slots.All() {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		_ = f.SetCellValue(sheetName, cell, slot)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}

func (e *ScheduleExporter) writeDayColumn(f *excelize.File, sheetName string, col int, bookings []*models.Booking) {
	bySlot := make(map[string][]*models.Booking)
	for _, b := range bookings {
		if !b.Occupies() {
			continue
		}
		bySlot[b.Time] = append(bySlot[b.Time], b)
	}

	for i, slot := range e.slots.All() {
		cell, _ := excelize.CoordinatesToCellName(col, i+3)
		occupants := bySlot[slot]
		if len(occupants) == 0 {
			continue
		}

		var cellValue string
		for _, b := range occupants {
			cellValue += cellLine(b)
		}
		_ = f.SetCellValue(sheetName, cell, cellValue)

		if styleID, err := e.cellStyle(f, occupants); err == nil {
			_ = f.SetCellStyle(sheetName, cell, cell, styleID)
		}
	}
}

func cellLine(b *models.Booking) string {
	if b.ManualBlock || b.Status == models.StatusBlocked {
		return "BLOKIRANO\n"
	}
	line := fmt.Sprintf("%s - %s (%s)", b.Customer.Name, b.ServiceName, b.BarberName)
	if b.Status == models.StatusPending {
		line += " [na čekanju]"
	}
	return line + "\n"
}

func (e *ScheduleExporter) cellStyle(f *excelize.File, occupants []*models.Booking) (int, error) {
	color := "#FFEB9C" // pending
	for _, b := range occupants {
		switch b.Status {
		case models.StatusBlocked:
			color = "#D9D9D9"
		case models.StatusApproved:
			color = "#FFC7CE"
		}
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}
