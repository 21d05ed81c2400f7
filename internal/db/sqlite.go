package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	password     TEXT NOT NULL,
	display_name TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS project_members (
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	PRIMARY KEY (project_id, user_id)
);

CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	version    INTEGER NOT NULL,
	document   BLOB NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE (project_id, version)
);
`

// SQLite is the database/sql Store backed by the ncruces WASM build of
// SQLite. All access goes through one connection.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path and
// applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLite) Close()                         { s.db.Close() }

func sqliteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func parseTime(v string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, v)
	return t
}

func (s *SQLite) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	created := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, display_name, created_at) VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.Email, arg.Password, arg.DisplayName, created)
	if err != nil {
		return User{}, sqliteError(err)
	}
	return User{
		ID:          arg.ID,
		Email:       arg.Email,
		Password:    arg.Password,
		DisplayName: arg.DisplayName,
		CreatedAt:   parseTime(created),
	}, nil
}

func (s *SQLite) getUser(ctx context.Context, where, arg string) (User, error) {
	var u User
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE `+where+` = ?`, arg,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &created)
	if err != nil {
		return User{}, sqliteError(err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

func (s *SQLite) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLite) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLite) CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error) {
	created := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, owner_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.Name, arg.OwnerID, created, created)
	if err != nil {
		return Project{}, sqliteError(err)
	}
	t := parseTime(created)
	return Project{ID: arg.ID, Name: arg.Name, OwnerID: arg.OwnerID, CreatedAt: t, UpdatedAt: t}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (Project, error) {
	var p Project
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &created, &updated); err != nil {
		return Project{}, err
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func (s *SQLite) GetProject(ctx context.Context, id string) (Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM projects WHERE id = ?`, id))
	return p, sqliteError(err)
}

func (s *SQLite) ListProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.owner_id, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) AddProjectMember(ctx context.Context, arg AddProjectMemberParams) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id, role) VALUES (?, ?, ?)`,
		arg.ProjectID, arg.UserID, string(arg.Role))
	return sqliteError(err)
}

const memberColumns = `
	SELECT m.project_id, m.user_id, m.role, u.display_name, u.email
	FROM project_members m
	JOIN users u ON u.id = m.user_id`

func scanMember(row rowScanner) (Member, error) {
	var m Member
	var role string
	if err := row.Scan(&m.ProjectID, &m.UserID, &role, &m.DisplayName, &m.Email); err != nil {
		return Member{}, err
	}
	m.Role = Role(role)
	return m, nil
}

func (s *SQLite) GetProjectMember(ctx context.Context, projectID, userID string) (Member, error) {
	m, err := scanMember(s.db.QueryRowContext(ctx,
		memberColumns+` WHERE m.project_id = ? AND m.user_id = ?`, projectID, userID))
	return m, sqliteError(err)
}

func (s *SQLite) ListProjectMembers(ctx context.Context, projectID string) ([]Member, error) {
	rows, err := s.db.QueryContext(ctx,
		memberColumns+` WHERE m.project_id = ? ORDER BY u.display_name`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *SQLite) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	return err
}

func (s *SQLite) CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM snapshots WHERE project_id = ?`, arg.ProjectID,
	).Scan(&version); err != nil {
		return Snapshot{}, err
	}

	created := now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, project_id, version, document, created_at) VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.ProjectID, version, arg.Document, created); err != nil {
		return Snapshot{}, sqliteError(err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET updated_at = ? WHERE id = ?`, created, arg.ProjectID); err != nil {
		return Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		ID:        arg.ID,
		ProjectID: arg.ProjectID,
		Version:   version,
		Document:  arg.Document,
		CreatedAt: parseTime(created),
	}, nil
}

func (s *SQLite) GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error) {
	var snap Snapshot
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, version, document, created_at
		FROM snapshots
		WHERE project_id = ?
		ORDER BY version DESC
		LIMIT 1`, projectID,
	).Scan(&snap.ID, &snap.ProjectID, &snap.Version, &snap.Document, &created)
	if err != nil {
		return Snapshot{}, sqliteError(err)
	}
	snap.CreatedAt = parseTime(created)
	return snap, nil
}
