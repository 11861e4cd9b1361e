package vectordb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ziadkadry99/crewmatch/internal/apperr"
	"github.com/ziadkadry99/crewmatch/internal/canon"
)

// Metadata is the typed, denormalized payload stored next to a vector.
// Backends persist it as a flat string map.
type Metadata interface {
	EntityType() canon.EntityType
	SourceID() int64
	Validate() error
	ToMap() map[string]string
}

// TaskMetadata is stored with every TaskVectors entry.
type TaskMetadata struct {
	TaskID            int64    `json:"task_id"`
	Title             string   `json:"title"`
	TradeCategory     string   `json:"trade_category,omitempty"`
	Priority          string   `json:"priority,omitempty"`
	Status            string   `json:"status,omitempty"`
	Location          string   `json:"location,omitempty"`
	SkillRequirements []string `json:"skill_requirements,omitempty"`
}

func (m TaskMetadata) EntityType() canon.EntityType { return canon.Task }
func (m TaskMetadata) SourceID() int64              { return m.TaskID }

func (m TaskMetadata) Validate() error {
	if m.TaskID <= 0 {
		return apperr.Validation("task metadata", "task_id", "must be positive")
	}
	if strings.TrimSpace(m.Title) == "" {
		return apperr.Validation("task metadata", "title", "must not be empty")
	}
	return nil
}

func (m TaskMetadata) ToMap() map[string]string {
	return map[string]string{
		"entity_type":        string(canon.Task),
		"task_id":            strconv.FormatInt(m.TaskID, 10),
		"title":              m.Title,
		"trade_category":     m.TradeCategory,
		"priority":           m.Priority,
		"status":             m.Status,
		"location":           m.Location,
		"skill_requirements": encodeList(m.SkillRequirements),
	}
}

// UserMetadata is stored with every UserVectors entry.
type UserMetadata struct {
	UserID          int64    `json:"user_id"`
	Name            string   `json:"name"`
	Role            string   `json:"role,omitempty"`
	ExperienceYears int      `json:"experience_years"`
	PrimarySkills   []string `json:"primary_skills,omitempty"`
	TradeCategories []string `json:"trade_categories,omitempty"`
	Certifications  []string `json:"certifications,omitempty"`
}

func (m UserMetadata) EntityType() canon.EntityType { return canon.User }
func (m UserMetadata) SourceID() int64              { return m.UserID }

func (m UserMetadata) Validate() error {
	if m.UserID <= 0 {
		return apperr.Validation("user metadata", "user_id", "must be positive")
	}
	if strings.TrimSpace(m.Name) == "" {
		return apperr.Validation("user metadata", "name", "must not be empty")
	}
	if m.ExperienceYears < 0 {
		return apperr.Validation("user metadata", "experience_years", "must not be negative")
	}
	return nil
}

func (m UserMetadata) ToMap() map[string]string {
	return map[string]string{
		"entity_type":      string(canon.User),
		"user_id":          strconv.FormatInt(m.UserID, 10),
		"name":             m.Name,
		"role":             m.Role,
		"experience_years": strconv.Itoa(m.ExperienceYears),
		"primary_skills":   encodeList(m.PrimarySkills),
		"trade_categories": encodeList(m.TradeCategories),
		"certifications":   encodeList(m.Certifications),
	}
}

// DecodeMetadata rebuilds typed metadata from a stored string map.
func DecodeMetadata(c Collection, m map[string]string) (Metadata, error) {
	switch c {
	case TaskVectors:
		id, err := strconv.ParseInt(m["task_id"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode task metadata: task_id %q: %w", m["task_id"], err)
		}
		return TaskMetadata{
			TaskID:            id,
			Title:             m["title"],
			TradeCategory:     m["trade_category"],
			Priority:          m["priority"],
			Status:            m["status"],
			Location:          m["location"],
			SkillRequirements: decodeList(m["skill_requirements"]),
		}, nil
	case UserVectors:
		id, err := strconv.ParseInt(m["user_id"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode user metadata: user_id %q: %w", m["user_id"], err)
		}
		years, _ := strconv.Atoi(m["experience_years"])
		return UserMetadata{
			UserID:          id,
			Name:            m["name"],
			Role:            m["role"],
			ExperienceYears: years,
			PrimarySkills:   decodeList(m["primary_skills"]),
			TradeCategories: decodeList(m["trade_categories"]),
			Certifications:  decodeList(m["certifications"]),
		}, nil
	}
	return nil, fmt.Errorf("decode metadata: unknown collection %q", c)
}

func encodeList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func decodeList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return []string{s}
	}
	return out
}
