package export

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Report"

// WriteXLSX renders the table into a single-sheet workbook. Amounts stay
// numeric unless a float64 cannot hold them exactly, in which case the cell
// carries the fixed two-decimal text instead.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return err
	}

	for col, name := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			style := 0
			switch v := value.(type) {
			case decimal.Decimal:
				if fv, exact := exactFloat(v); exact {
					err = f.SetCellFloat(sheetName, cell, fv, -1, 64)
					style = amountStyle
				} else {
					err = f.SetCellStr(sheetName, cell, v.StringFixed(2))
				}
			case time.Time:
				err = f.SetCellValue(sheetName, cell, v.UTC())
				style = dateStyle
			default:
				err = f.SetCellValue(sheetName, cell, FormatCell(v))
			}
			if err != nil {
				return err
			}
			if style != 0 {
				if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
					return err
				}
			}
		}
	}
	return f.Write(w)
}

func exactFloat(d decimal.Decimal) (float64, bool) {
	f := d.InexactFloat64()
	return f, decimal.NewFromFloat(f).Equal(d)
}
