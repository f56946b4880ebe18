// Package load drives each workbook sheet through schema fetch, alignment,
// watermark filtering and insert, collecting one outcome per sheet.
package load

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/andys/sheetsync/align"
	"github.com/andys/sheetsync/config"
	"github.com/andys/sheetsync/db"
)

// Database is the destination-side collaborator, implemented by
// db.Connection.
type Database interface {
	FetchSchema(tableName string) (*db.TableSchema, error)
	CurrentWatermark(tableName, idColumn string) (int64, error)
	InsertRows(schema *db.TableSchema, rows []map[string]interface{}) (db.InsertResult, error)
}

// SheetReader parses one sheet of the source workbook.
type SheetReader interface {
	ReadSheet(path, sheetName string) ([]align.RawRow, error)
}

// Status is a sheet's terminal state.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// sheetState tracks where in the pipeline a sheet currently is; it only
// appears in failure logs.
type sheetState string

const (
	statePending       sheetState = "pending"
	stateRead          sheetState = "read"
	stateSchemaFetched sheetState = "schema_fetched"
	stateAligned       sheetState = "aligned"
	stateFiltered      sheetState = "filtered"
)

// SheetOutcome is the record of one processed sheet, consumed by the
// end-of-run report.
type SheetOutcome struct {
	Sheet            string
	Table            string
	RowsRead         int
	RowsInserted     int
	RowsSkipped      int
	RowsUnidentified int
	BadCells         int
	Status           Status
	ErrorDetail      string
	Duration         time.Duration
}

// Runner processes sheets sequentially: the watermark read and the insert
// share one connection and must not interleave with another writer.
type Runner struct {
	cfg    *config.Config
	db     Database
	reader SheetReader
}

func NewRunner(cfg *config.Config, database Database, reader SheetReader) *Runner {
	return &Runner{cfg: cfg, db: database, reader: reader}
}

// Run processes every named sheet in order. A sheet's failure is recorded
// and the run moves on; the returned slice has one outcome per sheet.
func (r *Runner) Run(sheets []string) []SheetOutcome {
	outcomes := make([]SheetOutcome, 0, len(sheets))
	for _, sheet := range sheets {
		outcomes = append(outcomes, r.processSheet(sheet))
	}
	return outcomes
}

func (r *Runner) processSheet(sheetName string) (outcome SheetOutcome) {
	start := time.Now()
	outcome = SheetOutcome{Sheet: sheetName}
	defer func() { outcome.Duration = time.Since(start) }()

	target, ok := r.cfg.Sheets[strings.ToUpper(sheetName)]
	if !ok {
		slog.Warn("sheet has no configured destination table, skipping", "sheet", sheetName)
		outcome.Status = StatusSkipped
		return outcome
	}
	outcome.Table = target.Table

	slog.Info("processing sheet", "sheet", sheetName, "table", target.Table)
	state := statePending

	fail := func(err error) SheetOutcome {
		slog.Error("sheet failed", "sheet", sheetName, "state", string(state), "error", err)
		outcome.Status = StatusFailed
		outcome.ErrorDetail = err.Error()
		return outcome
	}

	rawRows, err := r.reader.ReadSheet(r.cfg.ExcelPath, sheetName)
	if err != nil {
		return fail(err)
	}
	state = stateRead
	outcome.RowsRead = len(rawRows)

	schema, err := r.db.FetchSchema(target.Table)
	if err != nil {
		return fail(err)
	}
	state = stateSchemaFetched

	idColumn, ok := findColumn(schema, target.IDColumn)
	if !ok {
		return fail(fmt.Errorf("id column %q not present in destination table %s", target.IDColumn, target.Table))
	}

	aligned, stats := align.Align(rawRows, schema)
	state = stateAligned
	outcome.BadCells = stats.BadCells
	if len(stats.UnmappedColumns) > 0 {
		slog.Warn("sheet columns not present in destination table, dropped",
			"sheet", sheetName, "columns", stats.UnmappedColumns)
	}
	if stats.BadCells > 0 {
		slog.Warn("cells could not be coerced and were stored as null",
			"sheet", sheetName, "count", stats.BadCells)
	}

	watermark, err := r.db.CurrentWatermark(target.Table, idColumn)
	if err != nil {
		return fail(err)
	}
	slog.Info("current watermark", "table", target.Table, "watermark", watermark)

	filtered := FilterNew(aligned, idColumn, watermark)
	state = stateFiltered
	outcome.RowsSkipped = filtered.Skipped
	outcome.RowsUnidentified = filtered.Unidentified

	if len(filtered.Kept) == 0 {
		slog.Info("no rows past the watermark, nothing to insert",
			"sheet", sheetName, "watermark", watermark)
		outcome.Status = StatusSuccess
		return outcome
	}

	rows := make([]map[string]interface{}, len(filtered.Kept))
	for i, row := range filtered.Kept {
		rows[i] = row.SQLMap()
	}

	result, err := r.db.InsertRows(schema, rows)
	if err != nil {
		return fail(err)
	}
	outcome.RowsInserted = result.Inserted
	outcome.RowsSkipped += result.Duplicates

	slog.Info("sheet done", "sheet", sheetName,
		"read", outcome.RowsRead, "inserted", outcome.RowsInserted,
		"skipped", outcome.RowsSkipped, "unidentified", outcome.RowsUnidentified)
	outcome.Status = StatusSuccess
	return outcome
}

// findColumn matches the configured id column against the schema the same
// way alignment matches sheet headers: trimmed, case-insensitive.
func findColumn(schema *db.TableSchema, name string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, col := range schema.Columns {
		if strings.ToLower(strings.TrimSpace(col.Name)) == want {
			return col.Name, true
		}
	}
	return "", false
}
