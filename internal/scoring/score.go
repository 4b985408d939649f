package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/fieldops/dispatch/internal/task"
	"github.com/fieldops/dispatch/internal/worker"
)

// Weights blends the four sub-scores. They must be non-negative and sum
// to 1 so the combined score stays in [0,1].
type Weights struct {
	Expertise    float64 `yaml:"expertise"`
	Availability float64 `yaml:"availability"`
	Load         float64 `yaml:"load"`
	Experience   float64 `yaml:"experience"`
}

const weightSumTolerance = 1e-6

func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"expertise":    w.Expertise,
		"availability": w.Availability,
		"load":         w.Load,
		"experience":   w.Experience,
	} {
		if v < 0 {
			return fmt.Errorf("weight %s must not be negative", name)
		}
	}
	sum := w.Expertise + w.Availability + w.Load + w.Experience
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1, got %g", sum)
	}
	return nil
}

type Config struct {
	Weights Weights `yaml:"weights"`
	LoadCap int     `yaml:"load_cap"`
	// ExperienceThreshold is the years-of-experience midpoint: a worker
	// with exactly this many years scores 0.5 on the experience axis.
	ExperienceThreshold float64 `yaml:"experience_threshold"`
}

func (c Config) Validate() error {
	if c.LoadCap <= 0 {
		return fmt.Errorf("load cap must be positive, got %d", c.LoadCap)
	}
	if c.ExperienceThreshold < 0 {
		return fmt.Errorf("experience threshold must not be negative, got %g", c.ExperienceThreshold)
	}
	return c.Weights.Validate()
}

// Score computes the suitability of a worker for a task: a pure
// function of its inputs, safe for concurrent use, never persisted.
func Score(w *worker.Worker, t *task.Task, cfg Config) float64 {
	s := cfg.Weights.Expertise*ExpertiseScore(t.RequiredSkills, w.Expertise) +
		cfg.Weights.Availability*AvailabilityScore(w.Availability, t.StartDate, t.EndDate) +
		cfg.Weights.Load*LoadScore(w.Load(), cfg.LoadCap) +
		cfg.Weights.Experience*ExperienceScore(w.ExperienceYears, cfg.ExperienceThreshold)
	return clamp01(s)
}

// ExpertiseScore is the fraction of required skill tags the worker has,
// 1 when the task requires none.
func ExpertiseScore(required, expertise []string) float64 {
	if len(required) == 0 {
		return 1
	}
	have := make(map[string]bool, len(expertise))
	for _, s := range expertise {
		have[s] = true
	}
	matched := 0
	for _, s := range required {
		if have[s] {
			matched++
		}
	}
	return float64(matched) / float64(len(required))
}

// AvailabilityScore is 0 for a definitively unavailable worker, 1 for
// an available worker with no declared windows, and otherwise the
// fraction of the task's scheduling window the worker's windows cover.
func AvailabilityScore(av worker.Availability, from, to time.Time) float64 {
	if av.Status == worker.Unavailable {
		return 0
	}
	if len(av.Windows) == 0 {
		if av.Status == worker.Limited {
			// Limited with no declared windows: partially usable at best.
			return 0.5
		}
		return 1
	}
	if !to.After(from) {
		for _, w := range av.Windows {
			if !from.Before(w.From) && !from.After(w.To) {
				return 1
			}
		}
		return 0
	}
	window := to.Sub(from)
	var covered time.Duration
	for _, w := range av.Windows {
		covered += overlap(from, to, w.From, w.To)
	}
	return clamp01(float64(covered) / float64(window))
}

func overlap(aFrom, aTo, bFrom, bTo time.Time) time.Duration {
	start := aFrom
	if bFrom.After(start) {
		start = bFrom
	}
	end := aTo
	if bTo.Before(end) {
		end = bTo
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// LoadScore decreases linearly with the worker's current load, reaching
// 0 at the cap.
func LoadScore(load, loadCap int) float64 {
	if loadCap <= 0 {
		return 0
	}
	return clamp01(1 - float64(load)/float64(loadCap))
}

// ExperienceScore normalizes years of experience with diminishing
// returns: years/(years+threshold) approaches 1 asymptotically, so very
// senior workers gain little over merely senior ones.
func ExperienceScore(years, threshold float64) float64 {
	if years <= 0 {
		return 0
	}
	if threshold <= 0 {
		return 1
	}
	return years / (years + threshold)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
