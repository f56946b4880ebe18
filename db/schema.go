package db

import (
	"fmt"
	"log/slog"
	"strings"
)

// ColumnType is the declared type of a destination column, normalized from
// the engine's native type name.
type ColumnType string

const (
	TypeInteger   ColumnType = "integer"
	TypeFloat     ColumnType = "float"
	TypeText      ColumnType = "text"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
	TypeDate      ColumnType = "date"
)

// ColumnSchema represents the structure of a table column
type ColumnSchema struct {
	Name string
	Type ColumnType
}

// TableSchema represents the structure of a database table
type TableSchema struct {
	Name    string
	Columns []ColumnSchema
}

// ColumnNames returns the column names in physical order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		names[i] = col.Name
	}
	return names
}

// FetchSchema retrieves the column schema for one destination table.
// tableName may be schema-qualified ("datamart.cobranza"); when it is not,
// the connection's current schema is assumed. Returns ErrSchemaNotFound
// when the table exposes no columns.
func (c *Connection) FetchSchema(tableName string) (*TableSchema, error) {
	schemaName, bareName := splitTableName(tableName)

	var query string
	args := make([]interface{}, 0, 2)

	switch c.Type {
	case MySQL:
		if schemaName == "" {
			err := c.db.QueryRow("SELECT DATABASE()").Scan(&schemaName)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to get database name: %v", ErrConnection, err)
			}
		}
		query = `
        SELECT COLUMN_NAME, DATA_TYPE
        FROM information_schema.COLUMNS
        WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
        ORDER BY ORDINAL_POSITION`
		args = append(args, schemaName, bareName)

	case PostgreSQL:
		if schemaName == "" {
			schemaName = "public"
		}
		query = `
        SELECT column_name, data_type
        FROM information_schema.columns
        WHERE table_schema = $1 AND table_name = $2
        ORDER BY ordinal_position`
		args = append(args, schemaName, bareName)

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.Type)
	}

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query schema for %s: %v", ErrConnection, tableName, err)
	}
	defer rows.Close()

	schema := &TableSchema{Name: tableName, Columns: make([]ColumnSchema, 0)}
	for rows.Next() {
		var columnName, nativeType string
		if err := rows.Scan(&columnName, &nativeType); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		schema.Columns = append(schema.Columns, ColumnSchema{
			Name: columnName,
			Type: normalizeColumnType(nativeType, tableName, columnName),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schema rows: %w", err)
	}

	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, tableName)
	}

	return schema, nil
}

// normalizeColumnType maps an engine's native type name onto the declared
// column types. Anything unrecognized falls back to text, which loses no
// data on insert.
func normalizeColumnType(nativeType, tableName, columnName string) ColumnType {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	switch {
	case strings.Contains(t, "int") || strings.Contains(t, "serial"):
		return TypeInteger
	case strings.Contains(t, "numeric") || strings.Contains(t, "decimal") ||
		strings.Contains(t, "double") || strings.Contains(t, "real") ||
		strings.Contains(t, "float"):
		return TypeFloat
	case strings.Contains(t, "bool"):
		return TypeBoolean
	case strings.Contains(t, "timestamp") || strings.Contains(t, "datetime"):
		return TypeTimestamp
	case t == "date":
		return TypeDate
	case strings.Contains(t, "char") || strings.Contains(t, "text"):
		return TypeText
	default:
		slog.Warn("unrecognized column type, treating as text",
			"table", tableName, "column", columnName, "native_type", nativeType)
		return TypeText
	}
}

func splitTableName(tableName string) (schema, table string) {
	clean := strings.ReplaceAll(tableName, `"`, "")
	if i := strings.LastIndex(clean, "."); i >= 0 {
		return clean[:i], clean[i+1:]
	}
	return "", clean
}
