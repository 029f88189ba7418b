package booking

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "2006-01-02 15:04"

var exportHeader = []interface{}{
	"Booking ID", "Date", "Type", "Class", "Member", "Email", "Status", "Booked at",
}

// WriteXLSX renders bookings as a single-sheet workbook.
func WriteXLSX(w io.Writer, bookings []BookingWithDetails) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, b := range bookings {
		title := ""
		if b.ClassTitle != nil {
			title = *b.ClassTitle
		}

		row := []interface{}{
			b.ID,
			b.DateTime.Format(exportTimeLayout),
			string(b.BookingType),
			title,
			b.UserName,
			b.UserEmail,
			string(b.Status),
			b.CreatedAt.Format(exportTimeLayout),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "H", 18); err != nil {
		return err
	}

	return f.Write(w)
}
