package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chess-moves/api/internal/moves/types"
)

var ErrNotFound = types.ErrNotFound

const (
	defaultRecent = 20
	maxRecent     = 200
)

// AnalysisRepo keeps successful inferences in postgres (pgx stdlib driver).
type AnalysisRepo struct{ DB *sql.DB }

func NewAnalysisRepo(db *sql.DB) *AnalysisRepo { return &AnalysisRepo{DB: db} }

const schema = `
create table if not exists move_analyses (
  id          bigserial primary key,
  created_at  timestamptz not null default now(),
  image_hash  text not null,
  mime_type   text not null,
  engine      text not null,
  model       text not null,
  result_json jsonb not null
);
create index if not exists move_analyses_created_at_idx on move_analyses (created_at);
create index if not exists move_analyses_image_hash_idx on move_analyses (image_hash)`

func (r *AnalysisRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

// Insert сохраняет результат и возвращает id новой строки.
func (r *AnalysisRepo) Insert(ctx context.Context, a types.Analysis) (int64, error) {
	js, err := json.Marshal(a.Result)
	if err != nil {
		return 0, err
	}
	const q = `
insert into move_analyses (image_hash, mime_type, engine, model, result_json)
values ($1,$2,$3,$4,$5)
returning id`
	var id int64
	if err := r.DB.QueryRowContext(ctx, q, a.ImageHash, a.MIMEType, a.Engine, a.Model, js).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

// Recent returns the newest analyses first. limit is clamped to [1, 200]; 0 means 20.
func (r *AnalysisRepo) Recent(ctx context.Context, limit int) ([]types.Analysis, error) {
	switch {
	case limit <= 0:
		limit = defaultRecent
	case limit > maxRecent:
		limit = maxRecent
	}
	const q = `
select id, created_at, image_hash, mime_type, engine, model, result_json
from move_analyses
order by created_at desc, id desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]types.Analysis, 0, limit)
	for rows.Next() {
		var (
			a  types.Analysis
			js []byte
		)
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.ImageHash, &a.MIMEType, &a.Engine, &a.Model, &js); err != nil {
			return nil, err
		}
		if a.Result, err = types.ParseMoveResult(string(js)); err != nil {
			// поломанный JSON пропускаем
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// FindByHash достаёт самую свежую запись по ключу (image_hash + engine + model).
// Если maxAge > 0, проверяет "свежесть", иначе игнорирует возраст.
func (r *AnalysisRepo) FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*types.Analysis, error) {
	const q = `
select id, created_at, image_hash, mime_type, engine, model, result_json
from move_analyses
where image_hash = $1 and engine = $2 and model = $3
order by created_at desc
limit 1`
	var (
		a  types.Analysis
		js []byte
	)
	err := r.DB.QueryRowContext(ctx, q, imageHash, engine, model).
		Scan(&a.ID, &a.CreatedAt, &a.ImageHash, &a.MIMEType, &a.Engine, &a.Model, &js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(a.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	if a.Result, err = types.ParseMoveResult(string(js)); err != nil {
		return nil, ErrNotFound
	}
	return &a, nil
}

// PurgeOlderThan удаляет старые записи, чтобы не раздувать БД.
func (r *AnalysisRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from move_analyses where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
