// Package report renders guest lists into spreadsheet downloads for the
// hospitality dashboard.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/stadium-hospitality/internal/model"
	"github.com/iliyamo/stadium-hospitality/internal/repository"
)

// RoomPresenceSheet is the name of the worksheet written by WriteRoomPresence.
const RoomPresenceSheet = "Presence"

// RoomPresenceHeader is the first row of the export.
var RoomPresenceHeader = []string{
	"Guest ID",
	"Last Name",
	"First Name",
	"Company",
	"VIP Level",
	"Table",
	"Seat",
	"Event",
	"Status",
	"Last Access",
}

var columnWidths = []float64{10, 22, 18, 26, 12, 8, 8, 26, 16, 22}

// WriteRoomPresence writes an XLSX with one row per guest to w.  A title row
// above the header names the room and the generation time (UTC).
func WriteRoomPresence(w io.Writer, room *model.Room, guests []repository.GuestWithStatus, generated time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RoomPresenceSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	title := fmt.Sprintf("%s (room %d) generated %s", room.Name, room.ID, generated.UTC().Format(time.RFC3339))
	if err := f.SetCellValue(RoomPresenceSheet, "A1", title); err != nil {
		return fmt.Errorf("set title: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	header := make([]interface{}, len(RoomPresenceHeader))
	for i, h := range RoomPresenceHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(RoomPresenceSheet, "A2", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(RoomPresenceHeader), 2)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(RoomPresenceSheet, "A2", last, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(RoomPresenceSheet, col, col, width); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	for i, g := range guests {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		if err != nil {
			return err
		}
		row := []interface{}{
			g.ID,
			g.LastName,
			g.FirstName,
			g.CompanyName,
			string(g.VipLevel),
			g.TableNumber,
			g.SeatNumber,
			g.EventName,
			string(g.Status),
			"",
		}
		if g.LastAccessTime != nil {
			row[len(row)-1] = g.LastAccessTime.UTC().Format("2006-01-02 15:04:05")
		}
		if err := f.SetSheetRow(RoomPresenceSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+3, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// RoomPresenceFilename returns the download name of a room export.
func RoomPresenceFilename(room *model.Room, generated time.Time) string {
	return fmt.Sprintf("room-%d-presence-%s.xlsx", room.ID, generated.UTC().Format("20060102-1504"))
}
