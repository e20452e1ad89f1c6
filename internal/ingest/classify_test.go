package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func texts(values ...string) []Cell {
	cells := make([]Cell, len(values))
	for i, v := range values {
		cells[i] = Text(v)
	}
	return cells
}

func TestClassifyColumn(t *testing.T) {
	t.Parallel()

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		cells []Cell
		want  ColumnType
	}{
		{"numeric strings", texts("1", "2", "3"), TypeNumeric},
		{"iso dates", texts("2024-01-01", "2024-02-01"), TypeDatetime},
		{"one bad value forces text", texts("1", "2", "x"), TypeText},
		{"all null", []Cell{Null(), Null()}, TypeText},
		{"no rows", nil, TypeText},
		{"number cells", []Cell{Number(1), Null(), Number(2.5)}, TypeNumeric},
		{"time cells", []Cell{Timestamp(jan), Null()}, TypeDatetime},
		{"years read as dates", texts("2024", "2025"), TypeDatetime},
		{"compact dates", texts("20240115", "20231231"), TypeDatetime},
		{"mixed date layouts", texts("2024-01-01", "2024/01/02", "03/04/2024"), TypeDatetime},
		{"dates with nulls", []Cell{Text("2024-01-01"), Null(), Text("2024-01-03")}, TypeDatetime},
		{"one bad date", texts("2024-01-01", "soon"), TypeText},
		{"scientific and signed", texts("1e3", "-2.5", " 7 "), TypeNumeric},
		{"time cell with text date", []Cell{Timestamp(jan), Text("2024-03-01")}, TypeDatetime},
		{"number with text number", []Cell{Number(1), Text("2")}, TypeNumeric},
		{"plain words", texts("alpha", "beta"), TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classifyColumn(tt.cells))
		})
	}
}

func TestClassify_Table(t *testing.T) {
	t.Parallel()

	table := &Table{
		Columns: []string{"id", "day", "label", "empty"},
		Rows: []Row{
			{Number(1), Text("2024-01-01"), Text("a"), Null()},
			{Number(2), Text("2024-01-02"), Text("b"), Null()},
			{Number(3), Null(), Text("c"), Null()},
		},
	}

	want := ColumnTypeMap{
		"id":    TypeNumeric,
		"day":   TypeDatetime,
		"label": TypeText,
		"empty": TypeText,
	}

	first := Classify(table)
	assert.Equal(t, want, first)
	assert.Len(t, first, len(table.Columns))

	// Classification must not depend on or mutate state.
	assert.Equal(t, first, Classify(table))
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2024-01-15", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{" 2024-01-15 ", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-01-15T10:30:00Z", true, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{"20240115", true, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"1", false, time.Time{}},
		{"42.5", false, time.Time{}},
		{"3000", false, time.Time{}},
		{"20241345", false, time.Time{}},
		{"", false, time.Time{}},
		{"hello", false, time.Time{}},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.ok {
			t.Errorf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
