package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet of an xlsx workbook. Cells keep their raw
// values; numeric cells styled with a date format become Time cells.
func readXLSX(data []byte) ([][]Cell, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, newError(KindParseFailure, err, "failed to open XLSX file")
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newError(KindParseFailure, nil, "no sheets found in XLSX file")
	}
	sheet := sheets[0]

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}
	styles := dateStyles{f: f, cache: make(map[int]bool)}

	iter, err := f.Rows(sheet)
	if err != nil {
		return nil, newError(KindParseFailure, err, "failed to open rows iterator for sheet %s", sheet)
	}
	defer func() {
		_ = iter.Close()
	}()

	var records [][]Cell
	for rowNum := 1; iter.Next(); rowNum++ {
		values, err := iter.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, newError(KindParseFailure, err, "failed to read row %d in sheet %s", rowNum, sheet)
		}

		rec := make([]Cell, len(values))
		for col, v := range values {
			rec[col] = Text(v)
			serial, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil || !styles.isDate(sheet, cell) {
				continue
			}
			if ts, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				rec[col] = Timestamp(ts)
			}
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, newError(KindParseFailure, err, "failed to read sheet %s", sheet)
	}

	return records, nil
}

// dateStyles memoizes whether a cell style id carries a date number format.
type dateStyles struct {
	f     *excelize.File
	cache map[int]bool
}

func (d dateStyles) isDate(sheet, cell string) bool {
	id, err := d.f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	if v, ok := d.cache[id]; ok {
		return v
	}
	v := false
	if style, err := d.f.GetStyle(id); err == nil && style != nil {
		v = isDateNumFmt(style.NumFmt, style.CustomNumFmt)
	}
	d.cache[id] = v
	return v
}

// isDateNumFmt reports whether a built-in format id or a custom format code
// renders a serial number as a date or time.
func isDateNumFmt(id int, custom *string) bool {
	if custom != nil && *custom != "" {
		return isDateFormatCode(*custom)
	}
	switch {
	case id >= 14 && id <= 22,
		id >= 27 && id <= 36,
		id >= 45 && id <= 47,
		id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode looks for date or time tokens outside quoted literals,
// escapes and bracketed sections such as colors and locales.
func isDateFormatCode(code string) bool {
	// only the positive section decides
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	inQuote, inBracket := false, false
	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case inQuote:
			inQuote = ch != '"'
		case inBracket:
			inBracket = ch != ']'
		case ch == '"':
			inQuote = true
		case ch == '[':
			inBracket = true
		case ch == '\\' || ch == '_' || ch == '*':
			i++
		default:
			switch ch | 0x20 {
			case 'd', 'm', 'y', 'h', 's':
				return true
			}
		}
	}
	return false
}

// readXLS reads the first sheet of a legacy BIFF workbook as formatted
// strings.
func readXLS(data []byte) (records [][]Cell, err error) {
	// The BIFF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = newError(KindParseFailure, fmt.Errorf("%v", r), "failed to read XLS file")
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, newError(KindParseFailure, err, "failed to open XLS file")
	}
	if wb.NumSheets() == 0 {
		return nil, newError(KindParseFailure, errors.New("workbook has no sheets"), "failed to open XLS file")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, newError(KindParseFailure, nil, "no sheets found in XLS file")
	}

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		rec := make([]Cell, row.LastCol())
		for col := range rec {
			rec[col] = Text(row.Col(col))
		}
		records = append(records, rec)
	}
	return records, nil
}

// xlsRow returns row i of sheet, or nil when the sheet stores nothing for it.
// WorkSheet.Row dereferences the missing entry.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
