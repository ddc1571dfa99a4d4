package site

import (
	"time"

	"github.com/0x6flab/namegenerator"
	"github.com/google/uuid"
)

var namegen = namegenerator.NewGenerator()

// Site is one federated data holder performing local model fits.
type Site struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewSite(name string) Site {
	if name == "" {
		name = namegen.Generate()
	}

	return Site{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
	}
}
