package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/linctl/linctl/pkg/models"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// Store writes issue exports to a SQLite database.
type Store struct {
	db *sql.DB
}

// Export describes one export run.
type Export struct {
	ID         string    `json:"id"`
	Team       string    `json:"team"`
	IssueCount int       `json:"issueCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// New opens or creates the database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS exports (
			id TEXT PRIMARY KEY,
			team TEXT,
			issue_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		// One row per issue; re-exporting replaces the previous row.
		`CREATE TABLE IF NOT EXISTS issues (
			identifier TEXT PRIMARY KEY,
			id TEXT,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT,
			priority INTEGER,
			estimate REAL,
			due_date TEXT,
			assignee TEXT,
			team TEXT,
			project TEXT,
			cycle TEXT,
			labels TEXT,
			created_at TEXT,
			updated_at TEXT,
			export_id TEXT REFERENCES exports(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_issues_team ON issues(team)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// SaveExport records an export run and upserts its issues in one
// transaction.
func (s *Store) SaveExport(team string, issues []models.Issue) (*Export, error) {
	exp := &Export{
		ID:         ulid.Make().String(),
		Team:       team,
		IssueCount: len(issues),
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO exports (id, team, issue_count, created_at) VALUES (?, ?, ?, ?)
	`, exp.ID, exp.Team, exp.IssueCount, exp.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert export: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO issues (
			identifier, id, title, description, status, priority, estimate,
			due_date, assignee, team, project, cycle, labels,
			created_at, updated_at, export_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, i := range issues {
		if _, err := stmt.Exec(
			i.Identifier, i.ID, i.Title, i.Description, i.StateName(""), i.Priority, i.Estimate,
			i.DueDate, i.AssigneeName(), i.TeamKey(), i.ProjectName(), i.CycleName(), i.JoinLabels("; "),
			i.CreatedAt, i.UpdatedAt, exp.ID,
		); err != nil {
			return nil, fmt.Errorf("insert issue %s: %w", i.Identifier, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return exp, nil
}

// CountIssues returns the number of issues stored.
func (s *Store) CountIssues() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM issues").Scan(&n)
	return n, err
}

// LastExport returns the most recent export run, or nil when none exist.
func (s *Store) LastExport() (*Export, error) {
	row := s.db.QueryRow(`
		SELECT id, team, issue_count, created_at
		FROM exports ORDER BY created_at DESC, id DESC LIMIT 1
	`)
	var e Export
	var team sql.NullString
	err := row.Scan(&e.ID, &team, &e.IssueCount, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Team = team.String
	return &e, nil
}
