package task

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the closed set of task lifecycle states. Anything else is
// rejected at decode time.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether the state machine allows s -> to.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	}
	return "", fmt.Errorf("unknown task priority %q", s)
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePriority(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Task is a unit of field work with a lifecycle and at most one
// assigned worker. Version backs the store's optimistic concurrency.
type Task struct {
	ID             string    `yaml:"id" json:"id"`
	Title          string    `yaml:"title" json:"title"`
	Description    string    `yaml:"description" json:"description,omitempty"`
	Type           string    `yaml:"type" json:"taskType"`
	Subtype        string    `yaml:"subtype" json:"taskSubtype,omitempty"`
	Status         Status    `yaml:"status" json:"status"`
	Priority       Priority  `yaml:"priority" json:"priority"`
	RequiredSkills []string  `yaml:"required_skills" json:"requiredSkills,omitempty"`
	AssignedTo     string    `yaml:"assigned_to" json:"assignedTo,omitempty"`
	StartDate      time.Time `yaml:"start_date" json:"startDate"`
	EndDate        time.Time `yaml:"end_date" json:"endDate"`
	Progress       int       `yaml:"progress" json:"progress"`
	AreaID         string    `yaml:"area_id" json:"areaId,omitempty"`
	AssetID        string    `yaml:"asset_id" json:"assetId,omitempty"`
	CreatedBy      string    `yaml:"created_by" json:"createdBy,omitempty"`
	CreatedAt      time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `yaml:"updated_at" json:"updatedAt"`
	Version        int64     `yaml:"version" json:"version"`
}
