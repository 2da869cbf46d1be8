package repo

import (
	"context"

	"github.com/danielfabbri/logzone-api/internal/model"
)

type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *string
	Avatar      *string
}

type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) (*model.Project, error)
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Project, error)
	List(ctx context.Context, limit, skip int) ([]model.Project, error)
	Count(ctx context.Context) (int64, error)
	UpdateByID(ctx context.Context, id int64, p ProjectPatch) (*model.Project, error)
	DeleteByID(ctx context.Context, id int64) error
}
