package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"happdash/internal/config"
	"happdash/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testPlans() []models.Plan {
	return []models.Plan{
		{
			ID:          "p1",
			RoomID:      "589",
			RoomName:    "601",
			Venue:       "minquan",
			StartDay:    "2025-11-18",
			StartTime:   "21:00",
			EndTime:     "22:00",
			BookingDay:  "2025-11-04",
			BookingTime: "09:00",
			Status:      models.StatusPending,
		},
		{
			ID:        "p2",
			RoomID:    "590",
			RoomName:  "602",
			Venue:     "minquan",
			StartDay:  "2025-11-19",
			StartTime: "10:00",
			Status:    models.StatusCompleted,
		},
	}
}

func TestPlanTableFile(t *testing.T) {
	logger := zerolog.Nop()
	dir := t.TempDir()
	e := NewExporter(config.ExportConfig{Path: dir}, &logger)

	path, err := e.PlanTableFile(testPlans(), "pending")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	// Title, header, two plan rows.
	require.GreaterOrEqual(t, len(rows), 4)

	assert.Equal(t, "p1", rows[2][0])
	assert.Equal(t, "601", rows[2][1])
	assert.Equal(t, "21:00", rows[2][4])
	assert.Equal(t, "22:00", rows[2][5])

	// Single bookings carry no end time.
	assert.Equal(t, "p2", rows[3][0])
	assert.Equal(t, "-", rows[3][5])
}

func TestWritePlanTable(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(config.ExportConfig{}, &logger)

	var buf bytes.Buffer
	require.NoError(t, e.WritePlanTable(&buf, testPlans(), ""))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	value, err := f.GetCellValue(sheetName, "A3")
	require.NoError(t, err)
	assert.Equal(t, "p1", value)
}

func TestEmptyTableStillWrites(t *testing.T) {
	logger := zerolog.Nop()
	e := NewExporter(config.ExportConfig{}, &logger)

	var buf bytes.Buffer
	require.NoError(t, e.WritePlanTable(&buf, nil, "failed"))
	assert.NotZero(t, buf.Len())
}
