package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielfabbri/logzone-api/internal/errs"
	"github.com/danielfabbri/logzone-api/internal/model"
)

const messageColumns = `id, project_id, content, from_phone, to_phone, type, status,
	external_id, provider, cost, currency, attempts,
	last_attempt_at, scheduled_at, delivered_at, read_at,
	metadata, tags, priority, template, template_variables,
	created_at, updated_at`

type PostgresMessageRepo struct {
	db *sql.DB
}

func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

func (r *PostgresMessageRepo) Create(ctx context.Context, m *model.Message) (*model.Message, error) {
	out := *m
	applyMessageDefaults(&out)

	metadata, err := marshalJSONB(out.Metadata)
	if err != nil {
		return nil, err
	}
	tags, err := marshalJSONB(out.Tags)
	if err != nil {
		return nil, err
	}
	tmplVars, err := marshalJSONB(out.TemplateVariables)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO messages (
			project_id, content, from_phone, to_phone, type, status,
			external_id, provider, cost, currency, attempts,
			last_attempt_at, scheduled_at, delivered_at, read_at,
			metadata, tags, priority, template, template_variables,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			now(), now()
		)
		RETURNING id, created_at, updated_at
	`,
		out.ProjectID, out.Content, out.FromPhone, out.ToPhone, string(out.Type), string(out.Status),
		out.ExternalID, out.Provider, out.Cost, out.Currency, out.Attempts,
		out.LastAttemptAt, out.ScheduledAt, out.DeliveredAt, out.ReadAt,
		metadata, tags, string(out.Priority), out.Template, tmplVars,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &out, nil
}

func (r *PostgresMessageRepo) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE id = $1
	`, id)

	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errs.NotFoundError{Entity: "message", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresMessageRepo) Find(ctx context.Context, f MessageFilter, ascending bool, limit, skip int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	where, args := buildMessageFilter(f)
	order := "DESC"
	if ascending {
		order = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT `+messageColumns+`
		FROM messages
		%s
		ORDER BY created_at %s, id %s
		LIMIT $%d OFFSET $%d
	`, where, order, order, len(args)+1, len(args)+2)
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *PostgresMessageRepo) Count(ctx context.Context, f MessageFilter) (int64, error) {
	where, args := buildMessageFilter(f)

	var total int64
	err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM messages "+where, args...).Scan(&total)
	return total, err
}

func (r *PostgresMessageRepo) UpdateByID(ctx context.Context, id int64, p MessagePatch) (*model.Message, error) {
	set, args, err := buildMessagePatch(p)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	set = append(set, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE messages
		SET %s
		WHERE id = $%d
		RETURNING `+messageColumns, strings.Join(set, ", "), len(args))

	m, err := scanMessage(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &errs.NotFoundError{Entity: "message", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresMessageRepo) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &errs.NotFoundError{Entity: "message", ID: id}
	}
	return nil
}

func (r *PostgresMessageRepo) Stats(ctx context.Context, f MessageFilter) (*model.MessageStats, error) {
	where, args := buildMessageFilter(f)

	var s model.MessageStats
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'pending'),
		       count(*) FILTER (WHERE status = 'sent'),
		       count(*) FILTER (WHERE status = 'delivered'),
		       count(*) FILTER (WHERE status = 'read'),
		       count(*) FILTER (WHERE status = 'failed'),
		       count(*) FILTER (WHERE status = 'cancelled'),
		       coalesce(sum(cost), 0)
		FROM messages
	`+where, args...).Scan(
		&s.Total, &s.Pending, &s.Sent, &s.Delivered,
		&s.Read, &s.Failed, &s.Cancelled, &s.TotalCost,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresMessageRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE status = 'pending'
		  AND scheduled_at IS NOT NULL
		  AND scheduled_at <= $1
		  AND last_attempt_at IS NULL
		ORDER BY scheduled_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}

	var msgs []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(msgs) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	for i := range msgs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE messages
			SET attempts = attempts + 1, last_attempt_at = $2, updated_at = $2
			WHERE id = $1
		`, msgs[i].ID, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for i := range msgs {
		msgs[i].Attempts++
		t := now
		msgs[i].LastAttemptAt = &t
		msgs[i].UpdatedAt = now
	}
	return msgs, nil
}

func applyMessageDefaults(m *model.Message) {
	if m.Type == "" {
		m.Type = model.TypeSMS
	}
	if m.Status == "" {
		m.Status = model.StatusPending
	}
	if m.Priority == "" {
		m.Priority = model.PriorityNormal
	}
	if m.Provider == "" {
		m.Provider = "other"
	}
	if m.Currency == "" {
		m.Currency = "BRL"
	}
}

// buildMessageFilter turns a MessageFilter into a WHERE clause with
// positional args. Returns "" when nothing is constrained.
func buildMessageFilter(f MessageFilter) (string, []any) {
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
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Type != "" {
		add("type = $%d", string(f.Type))
	}
	if f.Priority != "" {
		add("priority = $%d", string(f.Priority))
	}
	if f.FromPhone != "" {
		add("from_phone = $%d", f.FromPhone)
	}
	if f.ToPhone != "" {
		add("to_phone = $%d", f.ToPhone)
	}
	if f.Phone != "" {
		args = append(args, f.Phone)
		clauses = append(clauses, fmt.Sprintf("(from_phone = $%d OR to_phone = $%d)", len(args), len(args)))
	}
	if f.StartDate != nil {
		add("created_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("created_at <= $%d", *f.EndDate)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func buildMessagePatch(p MessagePatch) ([]string, []any, error) {
	var (
		set  []string
		args []any
	)
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Content != nil {
		add("content", *p.Content)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Type != nil {
		add("type", string(*p.Type))
	}
	if p.Priority != nil {
		add("priority", string(*p.Priority))
	}
	if p.ExternalID != nil {
		add("external_id", *p.ExternalID)
	}
	if p.Provider != nil {
		add("provider", *p.Provider)
	}
	if p.Cost != nil {
		add("cost", *p.Cost)
	}
	if p.Currency != nil {
		add("currency", *p.Currency)
	}
	if p.ScheduledAt != nil {
		add("scheduled_at", *p.ScheduledAt)
	}
	if p.DeliveredAt != nil {
		add("delivered_at", *p.DeliveredAt)
	}
	if p.ReadAt != nil {
		add("read_at", *p.ReadAt)
	}
	if p.Metadata != nil {
		b, err := marshalJSONB(p.Metadata)
		if err != nil {
			return nil, nil, err
		}
		add("metadata", b)
	}
	if p.Tags != nil {
		b, err := marshalJSONB(p.Tags)
		if err != nil {
			return nil, nil, err
		}
		add("tags", b)
	}
	if p.Template != nil {
		add("template", *p.Template)
	}
	if p.TemplateVariables != nil {
		b, err := marshalJSONB(p.TemplateVariables)
		if err != nil {
			return nil, nil, err
		}
		add("template_variables", b)
	}

	return set, args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*model.Message, error) {
	var (
		m             model.Message
		typ, status   string
		priority      string
		externalID    sql.NullString
		template      sql.NullString
		lastAttemptAt sql.NullTime
		scheduledAt   sql.NullTime
		deliveredAt   sql.NullTime
		readAt        sql.NullTime
		metadata      []byte
		tags          []byte
		tmplVars      []byte
	)

	if err := row.Scan(
		&m.ID, &m.ProjectID, &m.Content, &m.FromPhone, &m.ToPhone, &typ, &status,
		&externalID, &m.Provider, &m.Cost, &m.Currency, &m.Attempts,
		&lastAttemptAt, &scheduledAt, &deliveredAt, &readAt,
		&metadata, &tags, &priority, &template, &tmplVars,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}

	m.Type = model.MessageType(typ)
	m.Status = model.Status(status)
	m.Priority = model.Priority(priority)

	if externalID.Valid {
		s := externalID.String
		m.ExternalID = &s
	}
	if template.Valid {
		s := template.String
		m.Template = &s
	}
	if lastAttemptAt.Valid {
		t := lastAttemptAt.Time
		m.LastAttemptAt = &t
	}
	if scheduledAt.Valid {
		t := scheduledAt.Time
		m.ScheduledAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		m.DeliveredAt = &t
	}
	if readAt.Valid {
		t := readAt.Time
		m.ReadAt = &t
	}

	if err := unmarshalJSONB(metadata, &m.Metadata); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(tags, &m.Tags); err != nil {
		return nil, err
	}
	if err := unmarshalJSONB(tmplVars, &m.TemplateVariables); err != nil {
		return nil, err
	}

	return &m, nil
}

func marshalJSONB(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	// Nil maps/slices marshal to "null"; store SQL NULL instead.
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

func unmarshalJSONB(b []byte, dst any) error {
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("unmarshal jsonb: %w", err)
	}
	return nil
}
