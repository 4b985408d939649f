package worker

import (
	"encoding/json"
	"fmt"
	"time"
)

type AvailabilityStatus string

const (
	// Available means free to take work, optionally narrowed by windows.
	Available AvailabilityStatus = "AVAILABLE"
	// Limited means only free inside the declared windows.
	Limited AvailabilityStatus = "LIMITED"
	// Unavailable means definitively out (leave, sick); never a candidate.
	Unavailable AvailabilityStatus = "UNAVAILABLE"
)

func ParseAvailabilityStatus(s string) (AvailabilityStatus, error) {
	switch AvailabilityStatus(s) {
	case Available, Limited, Unavailable:
		return AvailabilityStatus(s), nil
	}
	return "", fmt.Errorf("unknown availability status %q", s)
}

func (a *AvailabilityStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAvailabilityStatus(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

type TimeWindow struct {
	From time.Time `yaml:"from" json:"from"`
	To   time.Time `yaml:"to" json:"to"`
}

type Availability struct {
	Status  AvailabilityStatus `yaml:"status" json:"status"`
	Windows []TimeWindow       `yaml:"windows,omitempty" json:"windows,omitempty"`
}

// Worker is a field operative. CurrentTasks holds the ids of tasks
// currently in progress under this worker; its size is capped by the
// configured load cap. A suitability score is never stored here, it is
// computed per (worker, task) pair at decision time.
type Worker struct {
	ID              string       `yaml:"id" json:"id"`
	Name            string       `yaml:"name" json:"name"`
	Expertise       []string     `yaml:"expertise" json:"expertise"`
	Availability    Availability `yaml:"availability" json:"availability"`
	ExperienceYears float64      `yaml:"experience_years" json:"experienceYears"`
	CurrentTasks    []string     `yaml:"current_tasks" json:"currentTasks"`
	CreatedAt       time.Time    `yaml:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `yaml:"updated_at" json:"updatedAt"`
	Version         int64        `yaml:"version" json:"version"`
}

// Load is the number of tasks currently assigned.
func (w *Worker) Load() int {
	return len(w.CurrentTasks)
}

func (w *Worker) HasTask(taskID string) bool {
	for _, id := range w.CurrentTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

func (w *Worker) HasSkill(skill string) bool {
	for _, s := range w.Expertise {
		if s == skill {
			return true
		}
	}
	return false
}
