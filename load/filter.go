package load

import "github.com/andys/sheetsync/align"

// FilterResult partitions one sheet's aligned rows against the watermark.
type FilterResult struct {
	// Kept holds the rows to insert, in their original order.
	Kept []align.Row
	// Skipped counts rows at or below the watermark, plus later duplicates
	// of a transfer id already kept from this batch (keep-first policy).
	Skipped int
	// Unidentified counts rows whose transfer id is null or not numeric.
	Unidentified int
}

// FilterNew keeps the rows whose transfer id is strictly greater than the
// watermark. It is a pure function of its inputs; order is preserved.
func FilterNew(rows []align.Row, idColumn string, watermark int64) FilterResult {
	result := FilterResult{Kept: make([]align.Row, 0, len(rows))}
	seen := make(map[int64]bool)

	for _, row := range rows {
		id, ok := row[idColumn].AsInt64()
		if !ok {
			result.Unidentified++
			continue
		}
		if id <= watermark || seen[id] {
			result.Skipped++
			continue
		}
		seen[id] = true
		result.Kept = append(result.Kept, row)
	}

	return result
}
