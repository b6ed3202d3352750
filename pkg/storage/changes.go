package storage

import (
	"context"
	"strings"
	"time"
)

// LogChanges appends changes to the audit log in one transaction.
func (d *DB) LogChanges(ctx context.Context, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO feed_changes(occurred_at, source, section, package_name, name, version_name, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx, c.Source, c.Section, c.PackageName, nullIfEmpty(c.Name), nullIfEmpty(c.VersionName), c.ChangeType); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListRecentChanges returns the most recent N changes, newest first.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.sql.QueryContext(ctx, "SELECT occurred_at, source, section, package_name, COALESCE(name, ''), COALESCE(version_name, ''), change_type FROM feed_changes ORDER BY occurred_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAt string
		if err := rows.Scan(&occurredAt, &c.Source, &c.Section, &c.PackageName, &c.Name, &c.VersionName, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAt)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// parseTimestamp accepts SQLite's CURRENT_TIMESTAMP format and RFC 3339, which is what
// the driver hands back for DATETIME columns.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// IgnorePackage hides a package from future snapshots.
func (d *DB) IgnorePackage(ctx context.Context, packageName string) error {
	_, err := d.sql.ExecContext(ctx, "INSERT OR IGNORE INTO ignored_packages(package_name) VALUES(?)", packageName)
	return err
}

func (d *DB) UnignorePackage(ctx context.Context, packageName string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM ignored_packages WHERE package_name = ?", packageName)
	return err
}

func (d *DB) IgnoredPackages(ctx context.Context) (map[string]bool, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT package_name FROM ignored_packages")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ignored := make(map[string]bool)
	for rows.Next() {
		var pkg string
		if err := rows.Scan(&pkg); err != nil {
			return nil, err
		}
		ignored[pkg] = true
	}
	return ignored, rows.Err()
}
