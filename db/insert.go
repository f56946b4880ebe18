package db

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// InsertResult reports what happened to one batch of rows.
type InsertResult struct {
	Inserted   int
	Duplicates int
}

// InsertRows appends a batch of aligned rows to the destination table, one
// statement per row. A duplicate-key violation skips that row and the batch
// continues; any other error stops the batch.
func (c *Connection) InsertRows(schema *TableSchema, rows []map[string]interface{}) (InsertResult, error) {
	var result InsertResult
	if len(rows) == 0 {
		return result, nil
	}

	columns := schema.ColumnNames()
	placeholders := make([]string, len(columns))
	for i := range columns {
		if c.Type == PostgreSQL {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		} else {
			placeholders[i] = "?"
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		escapeTable(schema.Name, c.Type),
		strings.Join(escapeIdentifiers(columns, c.Type), ", "),
		strings.Join(placeholders, ", "),
	)

	if c.cfg != nil && c.cfg.Verbose {
		slog.Debug("executing SQL", "query", query, "rows", len(rows))
	}

	stmt, err := c.db.Prepare(query)
	if err != nil {
		return result, fmt.Errorf("%w: failed to prepare insert for %s: %v", ErrConnection, schema.Name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		values := make([]interface{}, len(columns))
		for i, col := range columns {
			values[i] = row[col]
		}

		if _, err := stmt.Exec(values...); err != nil {
			if isDuplicateKey(err) {
				result.Duplicates++
				slog.Warn("duplicate key on insert, row skipped",
					"table", schema.Name, "error", err)
				continue
			}
			return result, fmt.Errorf("failed to insert into %s: %w", schema.Name, err)
		}
		result.Inserted++
	}

	return result, nil
}

// isDuplicateKey recognizes unique-constraint violations for both supported
// engines: postgres SQLSTATE 23505 and mysql error 1062.
func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
