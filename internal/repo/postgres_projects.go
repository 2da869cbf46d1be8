package repo

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
)

const projectColumns = `id, name, description, status, avatar, api_key, created_at, updated_at`

type PostgresProjectRepo struct {
	db *sql.DB
}

func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

func (r *PostgresProjectRepo) Create(ctx context.Context, p *model.Project) (*model.Project, error) {
	out := *p
	if out.APIKey == "" {
		key, err := newAPIKey()
		if err != nil {
			return nil, err
		}
		out.APIKey = key
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO projects (name, description, status, avatar, api_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id, created_at, updated_at
	`, out.Name, out.Description, out.Status, out.Avatar, out.APIKey).
		Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return &out, nil
}

func (r *PostgresProjectRepo) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errs.NotFoundError{Entity: "project", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresProjectRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE api_key = $1`, apiKey)

	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errs.NotFoundError{Entity: "project"}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresProjectRepo) List(ctx context.Context, limit, skip int) ([]model.Project, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PostgresProjectRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM projects`).Scan(&total)
	return total, err
}

func (r *PostgresProjectRepo) UpdateByID(ctx context.Context, id int64, p ProjectPatch) (*model.Project, error) {
	var (
		set  []string
		args []any
	)
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Status != nil {
		add("status", *p.Status)
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
		UPDATE projects
		SET %s
		WHERE id = $%d
		RETURNING `+projectColumns, strings.Join(set, ", "), len(args))

	out, err := scanProject(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errs.NotFoundError{Entity: "project", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresProjectRepo) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &errs.NotFoundError{Entity: "project", ID: id}
	}
	return nil
}

func scanProject(row rowScanner) (*model.Project, error) {
	var (
		p           model.Project
		description sql.NullString
		status      sql.NullString
		avatar      sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &status, &avatar, &p.APIKey, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.Status = status.String
	p.Avatar = avatar.String
	return &p, nil
}

func newAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return "lz_" + hex.EncodeToString(buf), nil
}
