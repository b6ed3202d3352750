package storage

import "context"

func (d *DB) GetStats(ctx context.Context) ([]SourceStats, error) {
	query := `
		SELECT
			source,
			COUNT(DISTINCT section),
			COUNT(package_name)
		FROM
			feed_entries
		GROUP BY
			source
		ORDER BY
			source;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SourceStats
	for rows.Next() {
		var s SourceStats
		if err := rows.Scan(&s.Source, &s.SectionCount, &s.AppCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// SectionCount is the number of stored sections across all sources.
func (d *DB) SectionCount(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM (SELECT DISTINCT source, section FROM feed_entries)").Scan(&n)
	return n, err
}
