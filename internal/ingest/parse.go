package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Recognized file extensions, lowercase and without the dot.
const (
	FormatCSV  = "csv"
	FormatTXT  = "txt"
	FormatXLSX = "xlsx"
	FormatXLS  = "xls"
)

// SupportedFormats lists the extensions Parse accepts.
var SupportedFormats = []string{FormatCSV, FormatXLSX, FormatXLS, FormatTXT}

// naTokens are cell values read as missing.
var naTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
	"<NA>": {},
}

// Extension returns the lowercase text after the last '.' of name, or ""
// when name has no extension.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// IsSupported reports whether ext is one of SupportedFormats.
func IsSupported(ext string) bool {
	switch ext {
	case FormatCSV, FormatTXT, FormatXLSX, FormatXLS:
		return true
	}
	return false
}

func unsupportedFormat(ext string) *Error {
	if ext == "" {
		return newError(KindUnsupportedFormat, nil, "file has no extension; allowed: %s", strings.Join(SupportedFormats, ", "))
	}
	return newError(KindUnsupportedFormat, nil, "unsupported file type %q; allowed: %s", ext, strings.Join(SupportedFormats, ", "))
}

// Parse converts raw bytes into a Table according to the extension of
// in.Name. Delimited text is decoded with the detected encoding; only txt
// files get delimiter auto-detection, csv files use in.Delimiter or a comma.
// Spreadsheets are read from their first sheet.
//
// A table with a header but no data rows is returned without error.
func Parse(in RawInput) (*Table, error) {
	ext := Extension(in.Name)

	var (
		records [][]Cell
		lines   []int
		err     error
	)
	switch ext {
	case FormatCSV, FormatTXT:
		records, lines, err = readDelimited(in.Data, in.Delimiter, ext == FormatTXT)
	case FormatXLSX:
		records, err = readXLSX(in.Data)
	case FormatXLS:
		records, err = readXLS(in.Data)
	default:
		return nil, unsupportedFormat(ext)
	}
	if err != nil {
		return nil, err
	}

	return buildTable(records, lines)
}

// readDelimited also returns the source line each record starts on.
func readDelimited(data []byte, delim rune, detect bool) ([][]Cell, []int, error) {
	text, err := decodeText(data, DetectEncoding(data))
	if err != nil {
		return nil, nil, err
	}

	switch {
	case delim != 0:
	case detect:
		delim = DetectDelimiter(text)
	default:
		delim = ','
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		records [][]Cell
		lines   []int
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, newError(KindParseFailure, err, "parse delimited text")
		}
		line, _ := r.FieldPos(0)
		cells := make([]Cell, len(rec))
		for j, v := range rec {
			cells[j] = Text(v)
		}
		records = append(records, cells)
		lines = append(lines, line)
	}
	return records, lines, nil
}

// buildTable takes the first non-blank record as the header and shapes the
// rest into rows of exactly the header's width. Records with no fields are
// skipped; records whose fields are all empty become rows of nulls. Short
// records are padded with nulls, and a record carrying a value past the
// header's last column fails with the offending line. lines holds the source
// line of each record; when nil the record's 1-based position is used.
func buildTable(records [][]Cell, lines []int) (*Table, error) {
	start := -1
	for i, rec := range records {
		if !isBlankRecord(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, newError(KindParseFailure, nil, "no columns to parse from file")
	}

	t := &Table{Columns: normalizeHeader(records[start])}
	width := len(t.Columns)

	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRecord(rec) {
			continue
		}
		if n := usedWidth(rec); n > width {
			line := i + 1
			if lines != nil {
				line = lines[i]
			}
			return nil, newError(KindParseFailure, nil, "expected %d fields in line %d, saw %d", width, line, n)
		}
		row := make(Row, width)
		for j := range row {
			if j < len(rec) {
				row[j] = normalizeCell(rec[j])
			} else {
				row[j] = Null()
			}
		}
		t.Rows = append(t.Rows, row)
	}

	coerceNumericColumns(t)
	return t, nil
}

// normalizeHeader trims names, names empty headers "Unnamed: <i>" and
// suffixes repeats with ".1", ".2", ... so every name is unique.
func normalizeHeader(rec []Cell) []string {
	names := make([]string, len(rec))
	seen := make(map[string]bool, len(rec))
	for i, c := range rec {
		name := strings.TrimSpace(c.String())
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		base := name
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s.%d", base, n)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func normalizeCell(c Cell) Cell {
	if c.Kind != KindText {
		return c
	}
	if _, ok := naTokens[c.Str]; ok {
		return Null()
	}
	return c
}

// isEmptyRecord reports whether rec holds no fields at all, as produced by a
// blank spreadsheet row or a delimited line with a single empty field.
func isEmptyRecord(rec []Cell) bool {
	return len(rec) == 0 || (len(rec) == 1 && isBlankCell(rec[0]))
}

// usedWidth is the length of rec without its trailing blank cells.
func usedWidth(rec []Cell) int {
	n := len(rec)
	for n > 0 && isBlankCell(rec[n-1]) {
		n--
	}
	return n
}

func isBlankCell(c Cell) bool {
	return c.Kind == KindNull || (c.Kind == KindText && c.Str == "")
}

func isBlankRecord(rec []Cell) bool {
	for _, c := range rec {
		if !isBlankCell(c) {
			return false
		}
	}
	return true
}

// coerceNumericColumns turns a column into Number cells when it holds at
// least one text cell and every non-null cell is text parsing as a float.
func coerceNumericColumns(t *Table) {
	for col := range t.Columns {
		if !numericText(t, col) {
			continue
		}
		for _, row := range t.Rows {
			if row[col].Kind == KindText {
				f, _ := parseNumber(row[col].Str)
				row[col] = Number(f)
			}
		}
	}
}

func numericText(t *Table, col int) bool {
	seen := false
	for _, row := range t.Rows {
		switch c := row[col]; c.Kind {
		case KindNull:
		case KindText:
			if _, ok := parseNumber(c.Str); !ok {
				return false
			}
			seen = true
		default:
			return false
		}
	}
	return seen
}

// parseNumber parses s as a finite decimal or scientific float, ignoring
// surrounding whitespace. Spellings of infinity and NaN are not numbers.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsRune(s, '_') || hasHexPrefix(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func hasHexPrefix(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
