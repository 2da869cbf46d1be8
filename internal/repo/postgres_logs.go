package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
)

const logColumns = `id, project_id, source, environment, level, message, context,
	metadata, tags, occurred_at, created_at, updated_at`

type PostgresLogRepo struct {
	db *sql.DB
}

func NewPostgresLogRepo(db *sql.DB) *PostgresLogRepo {
	return &PostgresLogRepo{db: db}
}

func (r *PostgresLogRepo) Create(ctx context.Context, l *model.Log) (*model.Log, error) {
	out := *l
	if out.Environment == "" {
		out.Environment = "prod"
	}
	if out.Level == "" {
		out.Level = model.LevelInfo
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now().UTC()
	}

	metadata, err := marshalJSONB(out.Metadata)
	if err != nil {
		return nil, err
	}
	tags, err := marshalJSONB(out.Tags)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO logs (project_id, source, environment, level, message, context,
			metadata, tags, occurred_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING id, created_at, updated_at
	`, out.ProjectID, out.Source, out.Environment, string(out.Level), out.Message, out.Context,
		metadata, tags, out.OccurredAt).
		Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert log: %w", err)
	}
	return &out, nil
}

func (r *PostgresLogRepo) GetByID(ctx context.Context, id int64) (*model.Log, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM logs WHERE id = $1`, id)

	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errs.NotFoundError{Entity: "log", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *PostgresLogRepo) Find(ctx context.Context, f LogFilter, limit, skip int) ([]model.Log, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	where, args := buildLogFilter(f)
	query := fmt.Sprintf(`
		SELECT `+logColumns+`
		FROM logs
		%s
		ORDER BY occurred_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *PostgresLogRepo) Count(ctx context.Context, f LogFilter) (int64, error) {
	where, args := buildLogFilter(f)

	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM logs "+where, args...).Scan(&total)
	return total, err
}

func (r *PostgresLogRepo) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &errs.NotFoundError{Entity: "log", ID: id}
	}
	return nil
}

func buildLogFilter(f LogFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, val any) {
		args = append(args, val)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.ProjectID != nil {
		add("project_id = $%d", *f.ProjectID)
	}
	if f.Level != "" {
		add("level = $%d", string(f.Level))
	}
	if f.Source != "" {
		add("source = $%d", f.Source)
	}
	if f.StartDate != nil {
		add("occurred_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("occurred_at <= $%d", *f.EndDate)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanLog(row rowScanner) (*model.Log, error) {
	var (
		l        model.Log
		source   sql.NullString
		logCtx   sql.NullString
		level    string
		metadata []byte
		tags     []byte
	)
	if err := row.Scan(&l.ID, &l.ProjectID, &source, &l.Environment, &level, &l.Message, &logCtx,
		&metadata, &tags, &l.OccurredAt, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}

	l.Source = source.String
	l.Context = logCtx.String
	l.Level = model.LogLevel(level)

	if err := unmarshalJSONB(metadata, &l.Metadata); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(tags, &l.Tags); err != nil {
		return nil, err
	}
	return &l, nil
}
