// Package db persists users, projects, memberships and sketch snapshots.
// Two backends implement Store: Postgres for deployments and SQLite for
// single-machine use and tests.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Project struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Member struct {
	ProjectID   string
	UserID      string
	Role        Role
	DisplayName string
	Email       string
}

type Snapshot struct {
	ID        string
	ProjectID string
	Version   int
	Document  []byte
	CreatedAt time.Time
}

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

type CreateProjectParams struct {
	ID      string
	Name    string
	OwnerID string
}

type AddProjectMemberParams struct {
	ProjectID string
	UserID    string
	Role      Role
}

type CreateSnapshotParams struct {
	ID        string
	ProjectID string
	Document  []byte
}

// Store is the query surface shared by both backends. Lookups that match
// no row return ErrNotFound; inserts that violate a unique key return
// ErrDuplicate.
type Store interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]Project, error)
	DeleteProject(ctx context.Context, id string) error

	AddProjectMember(ctx context.Context, arg AddProjectMemberParams) error
	GetProjectMember(ctx context.Context, projectID, userID string) (Member, error)
	ListProjectMembers(ctx context.Context, projectID string) ([]Member, error)
	RemoveProjectMember(ctx context.Context, projectID, userID string) error

	// CreateSnapshot stores a new version of a project's sketch. Versions
	// start at 1 and increase by one per project.
	CreateSnapshot(ctx context.Context, arg CreateSnapshotParams) (Snapshot, error)
	GetLatestSnapshot(ctx context.Context, projectID string) (Snapshot, error)

	Ping(ctx context.Context) error
	Close()
}

// Open connects to the backend named by driver: "postgres" uses
// databaseURL, "sqlite" uses sqlitePath. The schema is created if missing.
func Open(ctx context.Context, driver, databaseURL, sqlitePath string) (Store, error) {
	switch driver {
	case "postgres":
		return OpenPostgres(ctx, databaseURL)
	case "sqlite", "":
		return OpenSQLite(ctx, sqlitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
