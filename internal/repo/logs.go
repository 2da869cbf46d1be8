package repo

import (
	"context"
	"time"

	"github.com/danielfabbri/logzone-api/internal/model"
)

type LogFilter struct {
	ProjectID *int64
	Level     model.LogLevel
	Source    string
	StartDate *time.Time
	EndDate   *time.Time
}

type LogRepository interface {
	Create(ctx context.Context, l *model.Log) (*model.Log, error)
	GetByID(ctx context.Context, id int64) (*model.Log, error)
	Find(ctx context.Context, f LogFilter, limit, skip int) ([]model.Log, error)
	Count(ctx context.Context, f LogFilter) (int64, error)
	DeleteByID(ctx context.Context, id int64) error
}
