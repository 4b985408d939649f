package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/fieldops/dispatch/internal/task"
	"github.com/fieldops/dispatch/internal/worker"
)

func testConfig() Config {
	return Config{
		Weights: Weights{
			Expertise:    0.4,
			Availability: 0.3,
			Load:         0.15,
			Experience:   0.15,
		},
		LoadCap:             3,
		ExperienceThreshold: 10,
	}
}

func TestExpertiseScore(t *testing.T) {
	tests := []struct {
		name      string
		required  []string
		expertise []string
		want      float64
	}{
		{"no required skills", nil, []string{"electrical"}, 1},
		{"full match", []string{"electrical", "hvac"}, []string{"hvac", "electrical"}, 1},
		{"half match", []string{"electrical", "hvac"}, []string{"electrical"}, 0.5},
		{"no match", []string{"plumbing"}, []string{"electrical"}, 0},
		{"empty expertise", []string{"plumbing"}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpertiseScore(tt.required, tt.expertise)
			if got != tt.want {
				t.Errorf("ExpertiseScore(%v, %v) = %v, want %v", tt.required, tt.expertise, got, tt.want)
			}
		})
	}
}

func TestAvailabilityScore(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
	}
	tests := []struct {
		name string
		av   worker.Availability
		from time.Time
		to   time.Time
		want float64
	}{
		{
			name: "unavailable is always zero",
			av: worker.Availability{
				Status:  worker.Unavailable,
				Windows: []worker.TimeWindow{{From: day(1), To: day(30)}},
			},
			from: day(2), to: day(3),
			want: 0,
		},
		{
			name: "available with no windows",
			av:   worker.Availability{Status: worker.Available},
			from: day(2), to: day(3),
			want: 1,
		},
		{
			name: "limited with no windows",
			av:   worker.Availability{Status: worker.Limited},
			from: day(2), to: day(3),
			want: 0.5,
		},
		{
			name: "window covers task fully",
			av: worker.Availability{
				Status:  worker.Limited,
				Windows: []worker.TimeWindow{{From: day(1), To: day(10)}},
			},
			from: day(2), to: day(4),
			want: 1,
		},
		{
			name: "window covers half the task",
			av: worker.Availability{
				Status:  worker.Limited,
				Windows: []worker.TimeWindow{{From: day(1), To: day(3)}},
			},
			from: day(2), to: day(4),
			want: 0.5,
		},
		{
			name: "disjoint window",
			av: worker.Availability{
				Status:  worker.Limited,
				Windows: []worker.TimeWindow{{From: day(10), To: day(12)}},
			},
			from: day(2), to: day(4),
			want: 0,
		},
		{
			name: "two windows add up",
			av: worker.Availability{
				Status: worker.Limited,
				Windows: []worker.TimeWindow{
					{From: day(2), To: day(3)},
					{From: day(4), To: day(5)},
				},
			},
			from: day(2), to: day(6),
			want: 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AvailabilityScore(tt.av, tt.from, tt.to)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AvailabilityScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadScore(t *testing.T) {
	tests := []struct {
		load, cap int
		want      float64
	}{
		{0, 3, 1},
		{1, 3, 1 - 1.0/3},
		{3, 3, 0},
		{5, 3, 0},
		{1, 0, 0},
	}
	for _, tt := range tests {
		got := LoadScore(tt.load, tt.cap)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("LoadScore(%d, %d) = %v, want %v", tt.load, tt.cap, got, tt.want)
		}
	}
}

func TestExperienceScore(t *testing.T) {
	if got := ExperienceScore(0, 10); got != 0 {
		t.Errorf("ExperienceScore(0, 10) = %v, want 0", got)
	}
	if got := ExperienceScore(10, 10); got != 0.5 {
		t.Errorf("ExperienceScore(10, 10) = %v, want 0.5", got)
	}
	// Diminishing returns: doubling experience gains less than the
	// first half did.
	first := ExperienceScore(10, 10)
	second := ExperienceScore(20, 10) - first
	if second >= first {
		t.Errorf("expected diminishing returns, first half gained %v, second %v", first, second)
	}
	if got := ExperienceScore(5, 0); got != 1 {
		t.Errorf("ExperienceScore(5, 0) = %v, want 1", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	cfg := testConfig()
	w := &worker.Worker{
		ID:              "W1",
		Expertise:       []string{"electrical"},
		Availability:    worker.Availability{Status: worker.Available},
		ExperienceYears: 7,
		CurrentTasks:    []string{"T0"},
	}
	tk := &task.Task{
		RequiredSkills: []string{"electrical", "hvac"},
		StartDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	first := Score(w, tk, cfg)
	for i := 0; i < 100; i++ {
		if got := Score(w, tk, cfg); got != first {
			t.Fatalf("score changed between evaluations: %v vs %v", got, first)
		}
	}
	if first < 0 || first > 1 {
		t.Errorf("score out of range: %v", first)
	}
}

func TestScorePrefersBetterMatch(t *testing.T) {
	cfg := testConfig()
	tk := &task.Task{
		RequiredSkills: []string{"electrical"},
		StartDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	skilled := &worker.Worker{
		ID:              "skilled",
		Expertise:       []string{"electrical"},
		Availability:    worker.Availability{Status: worker.Available},
		ExperienceYears: 5,
	}
	unskilled := &worker.Worker{
		ID:              "unskilled",
		Expertise:       []string{"plumbing"},
		Availability:    worker.Availability{Status: worker.Available},
		ExperienceYears: 5,
	}
	loaded := &worker.Worker{
		ID:              "loaded",
		Expertise:       []string{"electrical"},
		Availability:    worker.Availability{Status: worker.Available},
		ExperienceYears: 5,
		CurrentTasks:    []string{"T1", "T2"},
	}

	if Score(skilled, tk, cfg) <= Score(unskilled, tk, cfg) {
		t.Error("expected the skilled worker to outscore the unskilled one")
	}
	if Score(skilled, tk, cfg) <= Score(loaded, tk, cfg) {
		t.Error("expected the idle worker to outscore the loaded one")
	}
}

func TestWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{"default weights", Weights{0.4, 0.3, 0.15, 0.15}, false},
		{"single axis", Weights{Expertise: 1}, false},
		{"sum below one", Weights{Expertise: 0.5}, true},
		{"sum above one", Weights{0.5, 0.5, 0.5, 0.5}, true},
		{"negative weight", Weights{1.2, -0.2, 0, 0}, true},
		{"within tolerance", Weights{0.4, 0.3, 0.15, 0.15 + 1e-9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
