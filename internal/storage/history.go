package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// HistoryDB records completed conversions in SQLite for observability. Live
// job state stays in the registry; this is the durable trail.
type HistoryDB struct {
	db *sql.DB
}

// NewHistoryDB opens (and if needed initializes) the history database.
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		pipeline_ms INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %v", err)
	}

	return &HistoryDB{db: db}, nil
}

// RecordConversion stores one completed pipeline run. Re-running a
// retriggered id overwrites the previous row.
func (h *HistoryDB) RecordConversion(jobID, title, link string, elapsed time.Duration) error {
	query := `
	INSERT INTO conversions (job_id, title, link, pipeline_ms, created_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(job_id) DO UPDATE SET
		title = excluded.title,
		link = excluded.link,
		pipeline_ms = excluded.pipeline_ms,
		created_at = excluded.created_at
	`

	_, err := h.db.Exec(query, jobID, title, link, elapsed.Milliseconds(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to record conversion: %v", err)
	}
	return nil
}

// GetConversion retrieves one conversion record by job id.
func (h *HistoryDB) GetConversion(jobID string) (map[string]interface{}, error) {
	query := `
	SELECT job_id, title, link, pipeline_ms, created_at
	FROM conversions WHERE job_id = ?
	`

	row := h.db.QueryRow(query, jobID)

	var (
		jid, title, link string
		pipelineMs       int64
		createdAt        time.Time
	)

	if err := row.Scan(&jid, &title, &link, &pipelineMs, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to get conversion: %v", err)
	}

	return map[string]interface{}{
		"job_id":      jid,
		"title":       title,
		"link":        link,
		"pipeline_ms": pipelineMs,
		"created_at":  createdAt,
	}, nil
}

// ListConversions returns the most recent conversions.
func (h *HistoryDB) ListConversions(limit int) ([]map[string]interface{}, error) {
	query := `
	SELECT job_id, title, link, pipeline_ms, created_at
	FROM conversions ORDER BY created_at DESC LIMIT ?
	`

	rows, err := h.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversions: %v", err)
	}
	defer rows.Close()

	var conversions []map[string]interface{}

	for rows.Next() {
		var (
			jid, title, link string
			pipelineMs       int64
			createdAt        time.Time
		)

		if err := rows.Scan(&jid, &title, &link, &pipelineMs, &createdAt); err != nil {
			continue
		}

		conversions = append(conversions, map[string]interface{}{
			"job_id":      jid,
			"title":       title,
			"link":        link,
			"pipeline_ms": pipelineMs,
			"created_at":  createdAt,
		})
	}

	return conversions, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}
