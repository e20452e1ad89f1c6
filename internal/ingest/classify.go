package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Classify assigns a ColumnType to every column of t. Each column is scanned
// in full and the first matching rule wins:
//
//  1. no non-null values: text
//  2. every value is a Number cell: numeric
//  3. every value is a Time cell: datetime
//  4. every value parses as a date: datetime
//  5. every value parses as a number: numeric
//  6. otherwise: text
//
// Null cells are ignored by rules 2 and 3 and count as parseable in rules 4
// and 5. A single non-conforming value forces the weaker type.
func Classify(t *Table) ColumnTypeMap {
	types := make(ColumnTypeMap, len(t.Columns))
	for i, name := range t.Columns {
		types[name] = classifyColumn(t.Column(i))
	}
	return types
}

func classifyColumn(cells []Cell) ColumnType {
	var nonNull, numbers, times int
	for _, c := range cells {
		switch c.Kind {
		case KindNull:
			continue
		case KindNumber:
			numbers++
		case KindTime:
			times++
		}
		nonNull++
	}

	switch {
	case nonNull == 0:
		return TypeText
	case numbers == nonNull:
		return TypeNumeric
	case times == nonNull:
		return TypeDatetime
	case allCells(cells, isDateLike):
		return TypeDatetime
	case allCells(cells, isNumberLike):
		return TypeNumeric
	default:
		return TypeText
	}
}

func allCells(cells []Cell, ok func(Cell) bool) bool {
	for _, c := range cells {
		if !c.IsNull() && !ok(c) {
			return false
		}
	}
	return true
}

func isNumberLike(c Cell) bool {
	switch c.Kind {
	case KindNumber:
		return true
	case KindText:
		_, ok := parseNumber(c.Str)
		return ok
	}
	return false
}

func isDateLike(c Cell) bool {
	switch c.Kind {
	case KindTime:
		return true
	case KindText:
		_, ok := ParseDate(c.Str)
		return ok
	}
	return false
}

// ParseDate is the tolerant date parser used by classification. It accepts
// the many layouts understood by dateparse, read in UTC. Plain numbers are
// dates only as a four digit year (1000-2999) or a compact yyyymmdd.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if _, ok := parseNumber(s); ok && !yearOrCompactDate(s) {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func yearOrCompactDate(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	switch len(s) {
	case 4:
		y, _ := strconv.Atoi(s)
		return y >= 1000 && y <= 2999
	case 8:
		y, _ := strconv.Atoi(s[:4])
		m, _ := strconv.Atoi(s[4:6])
		d, _ := strconv.Atoi(s[6:])
		return y >= 1000 && y <= 2999 && m >= 1 && m <= 12 && d >= 1 && d <= 31
	}
	return false
}
