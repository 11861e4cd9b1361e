// Package records owns the task and worker rows. It is the relational
// source of truth the vector collections are derived from.
package records

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
)

var (
	Priorities = []string{"low", "medium", "high", "urgent"}
	Statuses   = []string{"open", "assigned", "in_progress", "blocked", "done", "cancelled"}
)

// Task is a unit of site work.
type Task struct {
	ID                int64     `json:"id" yaml:"id,omitempty"`
	Title             string    `json:"title" yaml:"title"`
	Description       string    `json:"description" yaml:"description,omitempty"`
	TradeCategory     string    `json:"trade_category" yaml:"trade_category,omitempty"`
	SkillRequirements []string  `json:"skill_requirements" yaml:"skill_requirements,omitempty"`
	Priority          string    `json:"priority" yaml:"priority,omitempty"`
	Status            string    `json:"status" yaml:"status,omitempty"`
	Location          string    `json:"location" yaml:"location,omitempty"`
	CreatedAt         time.Time `json:"created_at" yaml:"-"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"-"`
}

// Fields returns the row as handed to the synchronizer.
func (t *Task) Fields() canon.Fields {
	return canon.Fields{
		"id":                 t.ID,
		"title":              t.Title,
		"description":        t.Description,
		"trade_category":     t.TradeCategory,
		"skill_requirements": slices.Clone(t.SkillRequirements),
		"priority":           t.Priority,
		"status":             t.Status,
		"location":           t.Location,
	}
}

// normalize trims text, fills defaults and validates enums.
func (t *Task) normalize() error {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.TradeCategory = strings.TrimSpace(t.TradeCategory)
	t.Location = strings.TrimSpace(t.Location)
	t.SkillRequirements = cleanList(t.SkillRequirements)
	t.Priority = strings.ToLower(strings.TrimSpace(t.Priority))
	t.Status = strings.ToLower(strings.TrimSpace(t.Status))

	if t.Title == "" {
		return apperr.Validation("task", "title", "is required")
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if !slices.Contains(Priorities, t.Priority) {
		return apperr.Validation("task", "priority", fmt.Sprintf("must be one of %s", strings.Join(Priorities, ", ")))
	}
	if t.Status == "" {
		t.Status = "open"
	}
	if !slices.Contains(Statuses, t.Status) {
		return apperr.Validation("task", "status", fmt.Sprintf("must be one of %s", strings.Join(Statuses, ", ")))
	}
	return nil
}

// User is a site worker or supervisor.
type User struct {
	ID              int64     `json:"id" yaml:"id,omitempty"`
	Name            string    `json:"name" yaml:"name"`
	Role            string    `json:"role" yaml:"role,omitempty"`
	PrimarySkills   []string  `json:"primary_skills" yaml:"primary_skills,omitempty"`
	TradeCategories []string  `json:"trade_categories" yaml:"trade_categories,omitempty"`
	ExperienceYears int       `json:"experience_years" yaml:"experience_years,omitempty"`
	Certifications  []string  `json:"certifications" yaml:"certifications,omitempty"`
	Bio             string    `json:"bio" yaml:"bio,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
	UpdatedAt       time.Time `json:"updated_at" yaml:"-"`
}

func (u *User) Fields() canon.Fields {
	return canon.Fields{
		"id":               u.ID,
		"name":             u.Name,
		"role":             u.Role,
		"primary_skills":   slices.Clone(u.PrimarySkills),
		"trade_categories": slices.Clone(u.TradeCategories),
		"experience_years": u.ExperienceYears,
		"certifications":   slices.Clone(u.Certifications),
		"bio":              u.Bio,
	}
}

func (u *User) normalize() error {
	u.Name = strings.TrimSpace(u.Name)
	u.Role = strings.ToLower(strings.TrimSpace(u.Role))
	u.Bio = strings.TrimSpace(u.Bio)
	u.PrimarySkills = cleanList(u.PrimarySkills)
	u.TradeCategories = cleanList(u.TradeCategories)
	u.Certifications = cleanList(u.Certifications)

	if u.Name == "" {
		return apperr.Validation("user", "name", "is required")
	}
	if u.Role == "" {
		u.Role = "worker"
	}
	if u.ExperienceYears < 0 {
		return apperr.Validation("user", "experience_years", "must not be negative")
	}
	return nil
}

// cleanList trims items and drops blanks, keeping order.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Row is a source row in the shape the rebuilder consumes.
type Row struct {
	ID     int64
	Fields canon.Fields
}
