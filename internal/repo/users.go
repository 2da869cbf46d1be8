package repo

import (
	"context"
	"time"

	"github.com/danielfabbri/logzone-api/internal/model"
)

type UserPatch struct {
	Email       *string
	Name        *string
	PhoneNumber *string
	Password    *string
	Role        *string
	Company     *string
	BirthDay    *time.Time
	Avatar      *string
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, limit, skip int) ([]model.User, error)
	Count(ctx context.Context) (int64, error)
	UpdateByID(ctx context.Context, id int64, p UserPatch) (*model.User, error)
	DeleteByID(ctx context.Context, id int64) error
}
