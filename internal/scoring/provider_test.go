package scoring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewProviderRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Weights.Expertise = 0.9
	if _, err := NewProvider(cfg, ""); err == nil {
		t.Fatal("expected error for weights that do not sum to 1")
	}
}

func TestProviderAppliesWeightsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	content := []byte(`
weights:
  expertise: 0.7
  availability: 0.1
  load: 0.1
  experience: 0.1
load_cap: 5
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write weights file: %v", err)
	}

	p, err := NewProvider(testConfig(), path)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}
	cfg := p.Config()
	if cfg.Weights.Expertise != 0.7 {
		t.Errorf("expected expertise weight 0.7, got %v", cfg.Weights.Expertise)
	}
	if cfg.LoadCap != 5 {
		t.Errorf("expected load cap 5, got %d", cfg.LoadCap)
	}
	// Fields absent from the file keep their defaults.
	if cfg.ExperienceThreshold != 10 {
		t.Errorf("expected experience threshold 10, got %v", cfg.ExperienceThreshold)
	}
}

func TestProviderRejectsInvalidWeightsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	content := []byte(`
weights:
  expertise: 0.9
  availability: 0.9
  load: 0.9
  experience: 0.9
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write weights file: %v", err)
	}
	if _, err := NewProvider(testConfig(), path); err == nil {
		t.Fatal("expected error for weights file that does not validate")
	}
}

func TestProviderReloadKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weights.yaml")
	if err := os.WriteFile(path, []byte("weights: {expertise: 1, availability: 0, load: 0, experience: 0}\n"), 0644); err != nil {
		t.Fatalf("failed to write weights file: %v", err)
	}

	p, err := NewProvider(testConfig(), path)
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	// A broken rewrite must not disturb the active config.
	if err := os.WriteFile(path, []byte("weights: {expertise: 9}\n"), 0644); err != nil {
		t.Fatalf("failed to rewrite weights file: %v", err)
	}
	if err := p.reload(); err == nil {
		t.Fatal("expected reload to fail for invalid weights")
	}
	if got := p.Config().Weights.Expertise; got != 1 {
		t.Errorf("expected last good expertise weight 1, got %v", got)
	}
}
