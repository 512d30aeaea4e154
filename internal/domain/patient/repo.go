package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns one page ordered by last update, newest first, plus the
	// unpaginated total.
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	// Search matches the query case-insensitively against first name, last
	// name, email, and medical record number.
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
}
