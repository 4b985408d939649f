package asset

import (
	"context"
	"time"
)

// Asset is a lightweight equipment reference attached to tasks. It has
// no lifecycle of its own.
type Asset struct {
	ID           string    `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	Description  string    `yaml:"description" json:"description,omitempty"`
	Type         string    `yaml:"type" json:"assetType,omitempty"`
	SerialNumber string    `yaml:"serial_number" json:"serialNumber,omitempty"`
	CreatedAt    time.Time `yaml:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `yaml:"updated_at" json:"updatedAt"`
	Version      int64     `yaml:"version" json:"version"`
}

type Repository interface {
	Create(ctx context.Context, a *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
	List(ctx context.Context, limit, offset int) ([]*Asset, int, error)
	Update(ctx context.Context, a *Asset) error
	Delete(ctx context.Context, id string) error
}
