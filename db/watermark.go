package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// SentinelWatermark is returned for an empty destination table. Transfer ids
// in the source system are positive, so 0 keeps every incoming row.
const SentinelWatermark int64 = 0

// CurrentWatermark returns the highest transfer id already stored in the
// destination table. An empty table yields the sentinel, not an error.
func (c *Connection) CurrentWatermark(tableName, idColumn string) (int64, error) {
	query := fmt.Sprintf("SELECT MAX(%s) FROM %s",
		escapeIdentifier(idColumn, c.Type), escapeTable(tableName, c.Type))

	if c.cfg != nil && c.cfg.Verbose {
		slog.Debug("executing SQL", "query", query)
	}

	var max sql.NullInt64
	if err := c.db.QueryRow(query).Scan(&max); err != nil {
		return 0, fmt.Errorf("%w: failed to read watermark from %s: %v", ErrConnection, tableName, err)
	}

	if !max.Valid {
		slog.Info("destination table is empty, using sentinel watermark", "table", tableName)
		return SentinelWatermark, nil
	}
	return max.Int64, nil
}
