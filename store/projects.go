package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"Bt1QSocial/model"
)

func validProjectStatus(s string) bool {
	switch s {
	case model.ProjectStatusOpen, model.ProjectStatusInProgress,
		model.ProjectStatusCompleted, model.ProjectStatusClosed:
		return true
	}
	return false
}

func validApplicationStatus(s string) bool {
	switch s {
	case model.ApplicationStatusPending, model.ApplicationStatusAccepted, model.ApplicationStatusRejected:
		return true
	}
	return false
}

func (s *Store) GetAllProjects(ctx context.Context) []model.CollaborationProject {
	var out []model.CollaborationProject
	s.read(ctx, func(db *model.Snapshot) {
		out = projectViews(db, db.Projects)
	})
	return out
}

func (s *Store) GetProjectByID(ctx context.Context, id string) *model.CollaborationProject {
	var out *model.CollaborationProject
	s.read(ctx, func(db *model.Snapshot) {
		if i := slices.IndexFunc(db.Projects, func(p model.CollaborationProject) bool { return p.ID == id }); i >= 0 {
			v := projectView(db, db.Projects[i])
			out = &v
		}
	})
	return out
}

// CreateProject 创建合作项目，状态默认 open
func (s *Store) CreateProject(ctx context.Context, in model.ProjectInput) (*model.CollaborationProject, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: project title is required", ErrValidation)
	}
	status := in.Status
	if status == "" {
		status = model.ProjectStatusOpen
	}
	if !validProjectStatus(status) {
		return nil, fmt.Errorf("%w: unknown project status %q", ErrValidation, status)
	}

	var created model.CollaborationProject
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		p := model.CollaborationProject{
			ID:           newID(idPrefixProject, now),
			Title:        title,
			Description:  in.Description,
			UserID:       in.UserID,
			Genre:        in.Genre,
			SkillsNeeded: slices.Clone(in.SkillsNeeded),
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if p.SkillsNeeded == nil {
			p.SkillsNeeded = []string{}
		}
		if in.Deadline != nil {
			d := in.Deadline.UTC()
			p.Deadline = &d
		}
		db.Projects = append(db.Projects, p)
		created = projectView(db, p)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProject merges patch and refreshes updatedAt. nil, nil when id is unknown.
func (s *Store) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (*model.CollaborationProject, error) {
	var updated *model.CollaborationProject
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Projects, func(p model.CollaborationProject) bool { return p.ID == id })
		if i < 0 {
			return false, nil
		}
		next := db.Projects[i].Clone()
		patch.Apply(&next)
		if strings.TrimSpace(next.Title) == "" {
			return false, fmt.Errorf("%w: project title is required", ErrValidation)
		}
		if !validProjectStatus(next.Status) {
			return false, fmt.Errorf("%w: unknown project status %q", ErrValidation, next.Status)
		}
		if next.Deadline != nil {
			d := next.Deadline.UTC()
			next.Deadline = &d
		}
		if next.SkillsNeeded == nil {
			next.SkillsNeeded = []string{}
		}
		next.UpdatedAt = now
		db.Projects[i] = next
		v := projectView(db, next)
		updated = &v
		return true, nil
	})
	return updated, err
}

func (s *Store) GetAllApplications(ctx context.Context) []model.ProjectApplication {
	var out []model.ProjectApplication
	s.read(ctx, func(db *model.Snapshot) {
		out = slices.Clone(db.Applications)
	})
	return out
}

func (s *Store) GetApplications(ctx context.Context, projectID string) []model.ProjectApplication {
	var out []model.ProjectApplication
	s.read(ctx, func(db *model.Snapshot) {
		out = applicationsOf(db, projectID)
	})
	return out
}

// CreateApplication files an application against an existing project and
// refreshes the project's updatedAt in the same write.
func (s *Store) CreateApplication(ctx context.Context, in model.ApplicationInput) (*model.ProjectApplication, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: applicant is required", ErrValidation)
	}
	status := in.Status
	if status == "" {
		status = model.ApplicationStatusPending
	}
	if !validApplicationStatus(status) {
		return nil, fmt.Errorf("%w: unknown application status %q", ErrValidation, status)
	}

	var created model.ProjectApplication
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Projects, func(p model.CollaborationProject) bool { return p.ID == in.ProjectID })
		if i < 0 {
			return false, fmt.Errorf("%w: project %s", ErrNotFound, in.ProjectID)
		}
		created = model.ProjectApplication{
			ID:        newID(idPrefixApplication, now),
			ProjectID: in.ProjectID,
			UserID:    in.UserID,
			Message:   in.Message,
			Status:    status,
			CreatedAt: now,
		}
		db.Applications = append(db.Applications, created)
		db.Projects[i].UpdatedAt = now
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateApplication(ctx context.Context, id string, patch model.ApplicationPatch) (*model.ProjectApplication, error) {
	var updated *model.ProjectApplication
	err := s.mutate(ctx, func(db *model.Snapshot, now time.Time) (bool, error) {
		i := slices.IndexFunc(db.Applications, func(a model.ProjectApplication) bool { return a.ID == id })
		if i < 0 {
			return false, nil
		}
		next := db.Applications[i]
		patch.Apply(&next)
		if !validApplicationStatus(next.Status) {
			return false, fmt.Errorf("%w: unknown application status %q", ErrValidation, next.Status)
		}
		db.Applications[i] = next
		updated = &next
		return true, nil
	})
	return updated, err
}
