package ingest

import (
	"bytes"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// CellKind tags the value held by a Cell.
type CellKind int

const (
	KindNull CellKind = iota
	KindNumber
	KindText
	KindTime
)

func (k CellKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Cell is a single table value. Only the field matching Kind is meaningful.
type Cell struct {
	Kind CellKind
	Num  float64
	Str  string
	Time time.Time
}

// Null returns a missing value.
func Null() Cell { return Cell{Kind: KindNull} }

// Number returns a numeric cell. NaN and infinities are stored as Null.
func Number(f float64) Cell {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Cell{Kind: KindNumber, Num: f}
}

// Text returns a string cell.
func Text(s string) Cell { return Cell{Kind: KindText, Str: s} }

// Timestamp returns a native date/time cell.
func Timestamp(t time.Time) Cell { return Cell{Kind: KindTime, Time: t} }

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.Kind == KindNull }

// String renders the cell for display. Null renders as "".
func (c Cell) String() string {
	switch c.Kind {
	case KindNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case KindText:
		return c.Str
	case KindTime:
		return c.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// MarshalJSON encodes Null as null, Number as a JSON number, Text as a
// string and Time as an RFC 3339 string.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindNumber:
		return strconv.AppendFloat(nil, c.Num, 'f', -1, 64), nil
	case KindText:
		return json.Marshal(c.Str)
	case KindTime:
		return json.Marshal(c.Time.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}

// Row holds one cell per table column, in column order.
type Row []Cell

// Table is the uniform representation of a parsed file.
// Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    []Row
}

// Column returns the cells of column i from every row.
func (t *Table) Column(i int) []Cell {
	out := make([]Cell, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out
}

// ColumnType is the inferred semantic kind of a column.
type ColumnType string

const (
	TypeNumeric  ColumnType = "numeric"
	TypeDatetime ColumnType = "datetime"
	TypeText     ColumnType = "text"
)

// ColumnTypeMap holds exactly one ColumnType per table column.
type ColumnTypeMap map[string]ColumnType

// RawInput is the transient input of one ingestion.
type RawInput struct {
	Data []byte
	// Name is the filename or a derived name; its extension selects the parser.
	Name string
	// Delimiter overrides delimiter handling for csv/txt. Zero means none.
	Delimiter rune
}

// Result is the bounded preview plus metadata handed to the transport layer.
type Result struct {
	ID          string        `json:"id"`
	Filename    string        `json:"filename"`
	Rows        int           `json:"rows"`
	Columns     []string      `json:"columns"`
	ColumnTypes ColumnTypeMap `json:"column_types"`
	Preview     []Record      `json:"preview"`
	PreviewRows int           `json:"preview_rows"`
}

// Record is a row paired with its column names. It marshals to a JSON object
// whose keys follow column order, with nulls written explicitly.
type Record struct {
	Columns []string
	Cells   Row
}

// MarshalJSON writes the record as an ordered JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.Cells[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
