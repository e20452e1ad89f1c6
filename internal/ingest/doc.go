// Package ingest turns uploaded or fetched tabular files into a uniform
// in-memory table and infers a semantic type for every column.
//
// This package holds all of the decision logic of the service and has no
// HTTP dependencies. It can be used by the web handlers, the CLI, or tests
// without modification.
//
// # Pipeline
//
// A single ingestion runs synchronously in the caller's goroutine:
//
//  1. [Ingestor.Ingest] enforces the size ceiling and the recognized formats
//  2. [Parse] decodes the bytes and builds a [Table]:
//     csv/txt go through [DetectEncoding] and, for txt only, [DetectDelimiter];
//     xlsx/xls are read from the binary container (first sheet only)
//  3. [Classify] assigns numeric, datetime or text to every column
//  4. the first rows are cut into a preview and returned as a [Result]
//
// Remote sources are retrieved by [Fetcher] before entering the same path.
//
// # Cells
//
// Every cell is a tagged [Cell] (Null, Number, Text or Time). Missing values
// are always Null cells, so every row has exactly one cell per column.
//
// # Error Handling
//
// Failures are returned as *[Error] values carrying a [Kind]. The transport
// layer maps the Kind to a status code and renders the user-facing message
// from [MapError]; the wrapped error keeps the technical detail for
// server-side logs.
//
// # Error Codes Reference
//
//	REQ001  - Bad input: the request could not be understood
//	          Action: Check the URL and delimiter and try again
//
//	FILE001 - File too large: file exceeds the size limit (100MB)
//	          Action: Split the file into smaller chunks
//
//	FILE002 - Parse failure: the file could not be parsed
//	          Action: Pick the delimiter explicitly and resubmit
//
//	FILE005 - Empty data: the file contains no data rows
//	          Action: Upload a file with a header and at least one row
//
//	FILE006 - Unsupported format: the extension is not csv, xlsx, xls or txt
//	          Action: Convert the file to CSV or Excel
//
//	NET001  - Fetch failure: the remote file could not be retrieved
//	          Action: Check that the URL is reachable and try again
//
//	UPL002  - System busy: too many ingestions in progress
//	          Action: Please wait a moment and try again
//
//	UPL005  - Timeout: the request was cancelled or ran out of time
//	          Action: Try a smaller file or check your connection
//
//	ERR000  - Unknown error: an unexpected error occurred
//	          Action: Please try again or contact support
package ingest
