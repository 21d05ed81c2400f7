package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/draftcore/draftcore/backend-go/internal/db"
	"github.com/draftcore/draftcore/backend-go/internal/document"
	"github.com/draftcore/draftcore/backend-go/internal/typeid"
)

var (
	ErrNotFound      = errors.New("project not found")
	ErrForbidden     = errors.New("forbidden")
	ErrNotMember     = errors.New("not a project member")
	ErrUserNotFound  = errors.New("user not found")
	ErrOwnerRemoval  = errors.New("cannot remove project owner")
	ErrAlreadyMember = errors.New("already a project member")
)

type Service struct {
	store db.Store
}

func NewService(store db.Store) *Service {
	return &Service{store: store}
}

type Project struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// SketchVersion is a decoded snapshot.
type SketchVersion struct {
	Sketch  *document.Sketch
	Version int
}

// Create makes a project owned by ownerID and seeds version 1 with an empty
// sketch, or the sample sketch when withSample is set.
func (s *Service) Create(ctx context.Context, name, ownerID string, withSample bool) (*Project, error) {
	projectID := typeid.NewProjectID()

	dbProj, err := s.store.CreateProject(ctx, db.CreateProjectParams{
		ID:      projectID,
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	err = s.store.AddProjectMember(ctx, db.AddProjectMemberParams{
		ProjectID: projectID,
		UserID:    ownerID,
		Role:      db.RoleOwner,
	})
	if err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	seed := document.NewSketch()
	if withSample {
		seed = document.NewSampleSketch()
	}
	if _, err := s.SaveSketch(ctx, projectID, seed); err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return toProject(dbProj), nil
}

func (s *Service) Get(ctx context.Context, projectID, userID string) (*Project, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	dbProj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return toProject(dbProj), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Project, error) {
	dbProjects, err := s.store.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	projects := make([]Project, len(dbProjects))
	for i, p := range dbProjects {
		projects[i] = *toProject(p)
	}
	return projects, nil
}

func (s *Service) Delete(ctx context.Context, projectID, userID string) error {
	if err := s.requireOwner(ctx, projectID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (s *Service) InviteByEmail(ctx context.Context, projectID, ownerID, inviteeEmail string) error {
	if err := s.requireOwner(ctx, projectID, ownerID); err != nil {
		return err
	}

	invitee, err := s.store.GetUserByEmail(ctx, db.NormalizeEmail(inviteeEmail))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	err = s.store.AddProjectMember(ctx, db.AddProjectMemberParams{
		ProjectID: projectID,
		UserID:    invitee.ID,
		Role:      db.RoleEditor,
	})
	if errors.Is(err, db.ErrDuplicate) {
		return ErrAlreadyMember
	}
	return err
}

func (s *Service) ListMembers(ctx context.Context, projectID, userID string) ([]Member, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	dbMembers, err := s.store.ListProjectMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(dbMembers))
	for i, m := range dbMembers {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, projectID, ownerID, targetUserID string) error {
	if err := s.requireOwner(ctx, projectID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return ErrOwnerRemoval
	}
	return s.store.RemoveProjectMember(ctx, projectID, targetUserID)
}

// LatestSketch returns the newest snapshot of a project the user belongs to.
func (s *Service) LatestSketch(ctx context.Context, projectID, userID string) (*SketchVersion, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.LoadSketch(ctx, projectID)
}

// LoadSketch decodes the newest snapshot without a membership check. It is
// used by the collaboration hub, which checks membership on connect.
func (s *Service) LoadSketch(ctx context.Context, projectID string) (*SketchVersion, error) {
	snap, err := s.store.GetLatestSnapshot(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	sketch, err := document.Decode(snap.Document)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot v%d: %w", snap.Version, err)
	}
	return &SketchVersion{Sketch: sketch, Version: snap.Version}, nil
}

// ImportSketch decodes data and stores it as the project's next version.
// Malformed input leaves the stored snapshots untouched.
func (s *Service) ImportSketch(ctx context.Context, projectID, userID string, data []byte) (*SketchVersion, error) {
	if err := s.CheckMembership(ctx, projectID, userID); err != nil {
		return nil, err
	}

	sketch, err := document.Decode(data)
	if err != nil {
		return nil, err
	}
	version, err := s.SaveSketch(ctx, projectID, sketch)
	if err != nil {
		return nil, err
	}
	return &SketchVersion{Sketch: sketch, Version: version}, nil
}

// SaveSketch stores sketch as a new snapshot version and returns it.
func (s *Service) SaveSketch(ctx context.Context, projectID string, sketch *document.Sketch) (int, error) {
	data, err := document.Encode(sketch)
	if err != nil {
		return 0, err
	}
	snap, err := s.store.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:        typeid.NewSnapshotID(),
		ProjectID: projectID,
		Document:  data,
	})
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	return snap.Version, nil
}

// CheckMembership returns ErrNotMember unless userID belongs to the project.
func (s *Service) CheckMembership(ctx context.Context, projectID, userID string) error {
	_, err := s.store.GetProjectMember(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func (s *Service) requireOwner(ctx context.Context, projectID, userID string) error {
	dbProj, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get project: %w", err)
	}
	if dbProj.OwnerID != userID {
		return ErrForbidden
	}
	return nil
}

func toProject(p db.Project) *Project {
	return &Project{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
