package model

import (
	"slices"
	"time"
)

const (
	ProjectStatusOpen       = "open"
	ProjectStatusInProgress = "in_progress"
	ProjectStatusCompleted  = "completed"
	ProjectStatusClosed     = "closed"

	ApplicationStatusPending  = "pending"
	ApplicationStatusAccepted = "accepted"
	ApplicationStatusRejected = "rejected"
)

// CollaborationProject 合作项目。Applicants 由 projectApplications 集合在读取时派生
type CollaborationProject struct {
	ID           string               `json:"id"`
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	UserID       string               `json:"userId"`
	Genre        string               `json:"genre,omitempty"`
	SkillsNeeded []string             `json:"skillsNeeded"`
	Status       string               `json:"status"`
	Deadline     *time.Time           `json:"deadline,omitempty"`
	Applicants   []ProjectApplication `json:"applicants"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

type ProjectInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	UserID       string     `json:"userId"`
	Genre        string     `json:"genre,omitempty"`
	SkillsNeeded []string   `json:"skillsNeeded,omitempty"`
	Status       string     `json:"status,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

type ProjectPatch struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Genre        *string    `json:"genre,omitempty"`
	SkillsNeeded *[]string  `json:"skillsNeeded,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

func (p ProjectPatch) Apply(pr *CollaborationProject) {
	if p.Title != nil {
		pr.Title = *p.Title
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.Genre != nil {
		pr.Genre = *p.Genre
	}
	if p.SkillsNeeded != nil {
		pr.SkillsNeeded = slices.Clone(*p.SkillsNeeded)
	}
	if p.Status != nil {
		pr.Status = *p.Status
	}
	if p.Deadline != nil {
		d := *p.Deadline
		pr.Deadline = &d
	}
}

func (pr CollaborationProject) Clone() CollaborationProject {
	pr.SkillsNeeded = slices.Clone(pr.SkillsNeeded)
	pr.Applicants = slices.Clone(pr.Applicants)
	if pr.Deadline != nil {
		d := *pr.Deadline
		pr.Deadline = &d
	}
	return pr
}

// ProjectApplication belongs to a project and to the applicant User.
type ProjectApplication struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	UserID    string    `json:"userId"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type ApplicationInput struct {
	ProjectID string `json:"projectId"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
	Status    string `json:"status,omitempty"`
}

type ApplicationPatch struct {
	Message *string `json:"message,omitempty"`
	Status  *string `json:"status,omitempty"`
}

func (p ApplicationPatch) Apply(a *ProjectApplication) {
	if p.Message != nil {
		a.Message = *p.Message
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}
