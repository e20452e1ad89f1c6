package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/plotapi/internal/ingest"
)

var (
	inspectDelimiter string
	inspectPreview   int
	inspectJSON      bool
	inspectMaxBytes  int64
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Parse a file and report its columns and types",
	Long: `Runs encoding detection, parsing and column classification over a
local file and prints the inferred type of every column followed by the
first rows. The file extension selects the parser.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectDelimiter, "delimiter", "d", "", `field delimiter for csv/txt ("tab", "auto" or one character)`)
	inspectCmd.Flags().IntVarP(&inspectPreview, "preview", "n", 10, "number of preview rows to show")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output the full result as JSON")
	inspectCmd.Flags().Int64Var(&inspectMaxBytes, "max-size", ingest.DefaultMaxBytes, "maximum file size in bytes")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	delim, err := ingest.ParseDelimiter(inspectDelimiter)
	if err != nil {
		return err
	}

	data, err := readLimited(path, inspectMaxBytes)
	if err != nil {
		return err
	}

	ing := ingest.NewIngestor(ingest.Options{
		MaxBytes:    inspectMaxBytes,
		PreviewRows: inspectPreview,
	})

	start := time.Now()
	res, err := ing.Ingest(context.Background(), ingest.RawInput{
		Data:      data,
		Name:      filepath.Base(path),
		Delimiter: delim,
	})
	if err != nil {
		return fmt.Errorf("inspect %s: %s", path, ingest.Detail(err))
	}
	slog.Debug("inspect finished", "file", path, "rows", res.Rows, "duration", time.Since(start))

	if inspectJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	printSummary(cmd.OutOrStdout(), res)
	return nil
}

// readLimited reads path, refusing files over limit bytes.
func readLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("inspect %s: %s", path, ingest.TooLarge(limit))
	}
	return data, nil
}

func printSummary(w io.Writer, res *ingest.Result) {
	re := lipgloss.NewRenderer(w)
	heading := re.NewStyle().Bold(true)
	header := re.NewStyle().Bold(true).Padding(0, 1)
	cell := re.NewStyle().Padding(0, 1)
	styleFunc := func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return header
		}
		return cell
	}

	fmt.Fprintf(w, "%s %s\n", heading.Render("File:"), res.Filename)
	fmt.Fprintf(w, "%s %d\n", heading.Render("Rows:"), res.Rows)
	fmt.Fprintf(w, "%s %d\n\n", heading.Render("Columns:"), len(res.Columns))

	types := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(styleFunc).
		Headers("COLUMN", "TYPE")
	for _, col := range res.Columns {
		types.Row(col, string(res.ColumnTypes[col]))
	}
	fmt.Fprintln(w, types.Render())

	if len(res.Preview) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s\n", heading.Render(fmt.Sprintf("Preview (%d of %d rows):", res.PreviewRows, res.Rows)))
	preview := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(styleFunc).
		Headers(res.Columns...)
	for _, rec := range res.Preview {
		row := make([]string, len(rec.Cells))
		for i, c := range rec.Cells {
			row[i] = c.String()
		}
		preview.Row(row...)
	}
	fmt.Fprintln(w, preview.Render())
}
