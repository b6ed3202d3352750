package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/applounge/lounge/pkg/fused"
	_ "modernc.org/sqlite"
)

// ErrAbortingFeedWipe is returned when an upsert would empty a section that still
// holds apps; an empty answer is far more likely a backend hiccup than a real change.
var ErrAbortingFeedWipe = errors.New("aborting: section came back empty, refusing to wipe it")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS feed_entries (
  id            INTEGER PRIMARY KEY,
  source        TEXT NOT NULL,
  section       TEXT NOT NULL,
  section_pos   INTEGER NOT NULL DEFAULT 0,
  position      INTEGER NOT NULL DEFAULT 0,
  package_name  TEXT NOT NULL,
  app_id        TEXT NOT NULL,
  name          TEXT,
  version_code  INTEGER NOT NULL DEFAULT 0,
  version_name  TEXT,
  filter_level  TEXT NOT NULL,
  payload       TEXT NOT NULL,
  run_id        INTEGER NOT NULL DEFAULT 0,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(source, section, package_name)
);
CREATE INDEX IF NOT EXISTS idx_feed_section ON feed_entries(source, section);
CREATE TABLE IF NOT EXISTS feed_changes (
  id           INTEGER PRIMARY KEY,
  occurred_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  source       TEXT NOT NULL,
  section      TEXT NOT NULL,
  package_name TEXT NOT NULL,
  name         TEXT,
  version_name TEXT,
  change_type  TEXT NOT NULL CHECK (change_type IN ('added','updated','removed'))
);
CREATE INDEX IF NOT EXISTS idx_feed_changes_time ON feed_changes(occurred_at);
CREATE TABLE IF NOT EXISTS ignored_packages (
  package_name TEXT PRIMARY KEY,
  ignored_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
    `); err != nil {
		return nil, err
	}
	// One writer at a time; concurrent section upserts queue on the pool.
	db.SetMaxOpenConns(1)
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// UpsertSection stores one home section at position sectionPos and returns what changed
// in it since the previous sync. Apps no longer listed in the section are removed.
// Changes are returned, not logged; see LogChanges.
func (d *DB) UpsertSection(ctx context.Context, sectionPos int, home fused.Home) (changes []Change, err error) {
	now := time.Now().UTC()
	runID := time.Now().UnixNano()
	source := home.Source.String()

	apps := make([]fused.Application, 0, len(home.Apps))
	for _, app := range home.Apps {
		if !app.IsPlaceholder && app.Key() != "" {
			apps = append(apps, app)
		}
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, "SELECT package_name, payload FROM feed_entries WHERE source = ? AND section = ?", source, home.Title)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]string)
	for rows.Next() {
		var pkg, payload string
		if err = rows.Scan(&pkg, &payload); err != nil {
			rows.Close()
			return nil, err
		}
		existing[pkg] = payload
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	if len(apps) == 0 && len(existing) > 0 {
		err = fmt.Errorf("%s / %s: %w", source, home.Title, ErrAbortingFeedWipe)
		return nil, err
	}

	for pos, app := range apps {
		var raw []byte
		raw, err = json.Marshal(app)
		if err != nil {
			return nil, err
		}
		payload := string(raw)
		change := Change{
			OccurredAt:  now,
			Source:      source,
			Section:     home.Title,
			PackageName: app.PackageName,
			Name:        app.Name,
			VersionName: app.VersionName,
		}

		old, existed := existing[app.PackageName]
		switch {
		case !existed:
			_, err = tx.ExecContext(ctx, `INSERT INTO feed_entries(source, section, section_pos, position, package_name, app_id, name, version_code, version_name, filter_level, payload, run_id) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
				source, home.Title, sectionPos, pos, app.PackageName, app.ID, nullIfEmpty(app.Name), app.VersionCode, nullIfEmpty(app.VersionName), app.FilterLevel.String(), payload, runID)
			change.ChangeType = ChangeAdded
			changes = append(changes, change)
			existing[app.PackageName] = payload
		case old != payload:
			_, err = tx.ExecContext(ctx, `UPDATE feed_entries SET section_pos = ?, position = ?, app_id = ?, name = ?, version_code = ?, version_name = ?, filter_level = ?, payload = ?, run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE source = ? AND section = ? AND package_name = ?`,
				sectionPos, pos, app.ID, nullIfEmpty(app.Name), app.VersionCode, nullIfEmpty(app.VersionName), app.FilterLevel.String(), payload, runID, source, home.Title, app.PackageName)
			change.ChangeType = ChangeUpdated
			changes = append(changes, change)
		default:
			_, err = tx.ExecContext(ctx, `UPDATE feed_entries SET section_pos = ?, position = ?, run_id = ?, last_seen_at = CURRENT_TIMESTAMP WHERE source = ? AND section = ? AND package_name = ?`,
				sectionPos, pos, runID, source, home.Title, app.PackageName)
		}
		if err != nil {
			return nil, err
		}
	}

	// Sweep: whatever this run did not touch left the section.
	staleRows, err := tx.QueryContext(ctx, "SELECT package_name, name, version_name FROM feed_entries WHERE source = ? AND section = ? AND run_id != ?", source, home.Title, runID)
	if err != nil {
		return nil, err
	}
	var removed []Change
	for staleRows.Next() {
		var pkg string
		var name, version sql.NullString
		if err = staleRows.Scan(&pkg, &name, &version); err != nil {
			staleRows.Close()
			return nil, err
		}
		removed = append(removed, Change{OccurredAt: now, Source: source, Section: home.Title, PackageName: pkg, Name: name.String, VersionName: version.String, ChangeType: ChangeRemoved})
	}
	if err = staleRows.Close(); err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		if _, err = tx.ExecContext(ctx, `DELETE FROM feed_entries WHERE source = ? AND section = ? AND run_id != ?`, source, home.Title, runID); err != nil {
			return nil, err
		}
		changes = append(changes, removed...)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// SyncSections deletes every stored section not listed in keep and returns one removal
// per app that went away with it.
func (d *DB) SyncSections(ctx context.Context, keep []SectionKey) (changes []Change, err error) {
	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		wanted[k.String()] = true
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, "SELECT source, section, package_name, name, version_name FROM feed_entries ORDER BY source, section_pos, position")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	gone := make(map[SectionKey]bool)
	for rows.Next() {
		var c Change
		var name, version sql.NullString
		if err = rows.Scan(&c.Source, &c.Section, &c.PackageName, &name, &version); err != nil {
			rows.Close()
			return nil, err
		}
		key := SectionKey{Source: c.Source, Title: c.Section}
		if wanted[key.String()] {
			continue
		}
		c.Name, c.VersionName = name.String, version.String
		c.OccurredAt = now
		c.ChangeType = ChangeRemoved
		changes = append(changes, c)
		gone[key] = true
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	for key := range gone {
		if _, err = tx.ExecContext(ctx, "DELETE FROM feed_entries WHERE source = ? AND section = ?", key.Source, key.Title); err != nil {
			return nil, err
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// LoadHome rebuilds the stored feed, sections in source order then stored position.
func (d *DB) LoadHome(ctx context.Context) ([]fused.Home, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT source, section, payload FROM feed_entries ORDER BY
  CASE source WHEN 'GPlay' THEN 0 WHEN 'Open Source' THEN 1 WHEN 'PWA' THEN 2 ELSE 3 END,
  section_pos, position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	home := []fused.Home{}
	for rows.Next() {
		var label, section, payload string
		if err := rows.Scan(&label, &section, &payload); err != nil {
			return nil, err
		}
		src, err := fused.ParseSource(label)
		if err != nil {
			return nil, err
		}
		var app fused.Application
		if err := json.Unmarshal([]byte(payload), &app); err != nil {
			return nil, fmt.Errorf("corrupt feed entry %s/%s: %w", label, section, err)
		}
		if n := len(home); n == 0 || home[n-1].Source != src || home[n-1].Title != section {
			home = append(home, fused.Home{Title: section, Source: src})
		}
		last := &home[len(home)-1]
		last.Apps = append(last.Apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return home, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
