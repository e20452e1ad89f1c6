package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvRows(n int) []byte {
	var b strings.Builder
	b.WriteString("id,name\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,row%d\n", i, i)
	}
	return []byte(b.String())
}

func TestIngest_EndToEnd(t *testing.T) {
	t.Parallel()

	ing := NewIngestor(Options{})
	res, err := ing.Ingest(context.Background(), RawInput{
		Name: "sample.csv",
		Data: []byte("x,y\n1,2\n3,a\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, "sample.csv", res.Filename)
	assert.Equal(t, []string{"x", "y"}, res.Columns)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 2, res.PreviewRows)
	assert.Equal(t, ColumnTypeMap{"x": TypeNumeric, "y": TypeText}, res.ColumnTypes)

	_, err = uuid.Parse(res.ID)
	assert.NoError(t, err, "ID should be a UUID")

	row, err := json.Marshal(res.Preview[0])
	require.NoError(t, err)
	assert.Equal(t, `{"x":1,"y":"2"}`, string(row))
}

func TestIngest_PreviewBound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rows        int
		wantPreview int
	}{
		{500, 100},
		{100, 100},
		{50, 50},
		{1, 1},
	}

	ing := NewIngestor(Options{})
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d rows", tt.rows), func(t *testing.T) {
			t.Parallel()
			res, err := ing.Ingest(context.Background(), RawInput{Name: "p.csv", Data: csvRows(tt.rows)})
			require.NoError(t, err)
			assert.Equal(t, tt.rows, res.Rows)
			assert.Equal(t, tt.wantPreview, res.PreviewRows)
			assert.Len(t, res.Preview, tt.wantPreview)
		})
	}
}

func TestIngest_PreviewRowsOption(t *testing.T) {
	t.Parallel()

	ing := NewIngestor(Options{PreviewRows: 5})
	res, err := ing.Ingest(context.Background(), RawInput{Name: "p.csv", Data: csvRows(20)})
	require.NoError(t, err)
	assert.Equal(t, 5, res.PreviewRows)
	assert.Equal(t, 20, res.Rows)
}

func TestIngest_EmptyData(t *testing.T) {
	t.Parallel()

	ing := NewIngestor(Options{})
	for _, header := range []string{"a\n", "a,b\n", "a,b,c,d,e,f,g\n"} {
		_, err := ing.Ingest(context.Background(), RawInput{Name: "h.csv", Data: []byte(header)})
		assert.True(t, IsKind(err, KindEmptyData), "header %q: got %v", header, err)
	}
}

func TestIngest_SizeCeiling(t *testing.T) {
	t.Parallel()

	ing := NewIngestor(Options{MaxBytes: 64})

	exact := []byte("a,b\n" + strings.Repeat("1,2\n", 15))
	require.Len(t, exact, 64)
	_, err := ing.Ingest(context.Background(), RawInput{Name: "ok.csv", Data: exact})
	assert.NoError(t, err)

	over := append(append([]byte{}, exact...), '\n')
	_, err = ing.Ingest(context.Background(), RawInput{Name: "big.csv", Data: over})
	assert.True(t, IsKind(err, KindPayloadTooLarge), "got %v", err)

	// The ceiling is checked before the extension.
	_, err = ing.Ingest(context.Background(), RawInput{Name: "big.pdf", Data: over})
	assert.True(t, IsKind(err, KindPayloadTooLarge), "got %v", err)
}

func TestIngest_DefaultCeiling(t *testing.T) {
	t.Parallel()

	ing := NewIngestor(Options{})
	assert.Equal(t, int64(104857600), ing.MaxBytes())

	_, err := ing.Ingest(context.Background(), RawInput{Name: "huge.csv", Data: make([]byte, 100<<20+1)})
	require.True(t, IsKind(err, KindPayloadTooLarge), "got %v", err)
	assert.Equal(t, "file size exceeds 100MB limit", Detail(err))
}

func TestIngest_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	ing := NewIngestor(Options{})
	for _, name := range []string{"report.pdf", "README", "image.png"} {
		_, err := ing.Ingest(context.Background(), RawInput{Name: name, Data: []byte("a,b\n1,2\n")})
		assert.True(t, IsKind(err, KindUnsupportedFormat), "%s: got %v", name, err)
	}
}

func TestIngest_ParseFailurePropagates(t *testing.T) {
	t.Parallel()

	ing := NewIngestor(Options{})
	_, err := ing.Ingest(context.Background(), RawInput{Name: "e.csv", Data: []byte{}})
	assert.True(t, IsKind(err, KindParseFailure), "got %v", err)

	_, err = ing.Ingest(context.Background(), RawInput{Name: "w.csv", Data: []byte("a;b\n1,5;2\n3,5;4\n")})
	assert.True(t, IsKind(err, KindParseFailure), "got %v", err)
}

func TestIngest_AllEmptyFieldsRowCounts(t *testing.T) {
	t.Parallel()

	ing := NewIngestor(Options{})
	res, err := ing.Ingest(context.Background(), RawInput{Name: "n.csv", Data: []byte("a,b\n,\n")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	row, err := json.Marshal(res.Preview[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":null}`, string(row))
}

func TestIngest_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIngestor(Options{}).Ingest(ctx, RawInput{Name: "a.csv", Data: csvRows(3)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngest_TXTWithSemicolons(t *testing.T) {
	t.Parallel()

	res, err := NewIngestor(Options{}).Ingest(context.Background(), RawInput{
		Name: "export.txt",
		Data: []byte("day;amount\n2024-01-01;10\n2024-01-02;12.5\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, ColumnTypeMap{"day": TypeDatetime, "amount": TypeNumeric}, res.ColumnTypes)
}

func TestResult_JSON(t *testing.T) {
	t.Parallel()

	res, err := NewIngestor(Options{}).Ingest(context.Background(), RawInput{
		Name: "n.csv",
		Data: []byte("b,a\n,x\n2,\n"),
	})
	require.NoError(t, err)

	out, err := json.Marshal(res.Preview)
	require.NoError(t, err)
	assert.Equal(t, `[{"b":null,"a":"x"},{"b":2,"a":null}]`, string(out))
}
