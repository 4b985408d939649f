package area

import (
	"context"
	"time"
)

// Area is a lightweight location reference attached to tasks. It has no
// lifecycle of its own.
type Area struct {
	ID          string    `yaml:"id" json:"id"`
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description" json:"description,omitempty"`
	Location    string    `yaml:"location" json:"location,omitempty"`
	CreatedAt   time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updatedAt"`
	Version     int64     `yaml:"version" json:"version"`
}

type Repository interface {
	Create(ctx context.Context, a *Area) error
	Get(ctx context.Context, id string) (*Area, error)
	List(ctx context.Context, limit, offset int) ([]*Area, int, error)
	Update(ctx context.Context, a *Area) error
	Delete(ctx context.Context, id string) error
}
