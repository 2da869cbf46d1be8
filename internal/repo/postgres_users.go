package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
)

const userColumns = `id, email, name, phone_number, password, role, company, birth_day, avatar, created_at, updated_at`

type PostgresUserRepo struct {
	db *sql.DB
}

func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (r *PostgresUserRepo) Create(ctx context.Context, u *model.User) (*model.User, error) {
	out := *u

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, name, phone_number, password, role, company, birth_day, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING id, created_at, updated_at
	`, out.Email, out.Name, out.PhoneNumber, out.Password, out.Role, out.Company, out.BirthDay, out.Avatar).
		Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &out, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errs.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresUserRepo) List(ctx context.Context, limit, skip int) ([]model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *PostgresUserRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&total)
	return total, err
}

func (r *PostgresUserRepo) UpdateByID(ctx context.Context, id int64, p UserPatch) (*model.User, error) {
	var (
		set  []string
		args []any
	)
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.PhoneNumber != nil {
		add("phone_number", *p.PhoneNumber)
	}
	if p.Password != nil {
		add("password", *p.Password)
	}
	if p.Role != nil {
		add("role", *p.Role)
	}
	if p.Company != nil {
		add("company", *p.Company)
	}
	if p.BirthDay != nil {
		add("birth_day", *p.BirthDay)
	}
	if p.Avatar != nil {
		add("avatar", *p.Avatar)
	}

	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	set = append(set, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d
		RETURNING `+userColumns, strings.Join(set, ", "), len(args))

	out, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errs.NotFoundError{Entity: "user", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &errs.NotFoundError{Entity: "user", ID: id}
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u           model.User
		name        sql.NullString
		phoneNumber sql.NullString
		role        sql.NullString
		company     sql.NullString
		avatar      sql.NullString
		birthDay    sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &phoneNumber, &u.Password, &role, &company, &birthDay, &avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Name = name.String
	u.PhoneNumber = phoneNumber.String
	u.Role = role.String
	u.Company = company.String
	u.Avatar = avatar.String
	if birthDay.Valid {
		t := birthDay.Time
		u.BirthDay = &t
	}
	return &u, nil
}
