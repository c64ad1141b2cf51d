package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"deadlift-coach/api/internal/analysis"
)

var ErrNotFound = sql.ErrNoRows

// Open connects to Postgres through the pgx stdlib driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

const schema = `
create table if not exists video_analyses (
  id          uuid primary key,
  created_at  timestamptz not null default now(),
  video_hash  text not null,
  model       text not null,
  prompt_hash text not null,
  raw_text    text not null,
  result_json jsonb not null
);
create index if not exists video_analyses_lookup
  on video_analyses (video_hash, model, prompt_hash, created_at desc);`

type AnalysisRepo struct{ DB *sql.DB }

func NewAnalysisRepo(db *sql.DB) *AnalysisRepo { return &AnalysisRepo{DB: db} }

// Record is one stored analysis: the model's raw answer and its normalized form.
type Record struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"createdAt"`
	VideoHash  string          `json:"videoHash"`
	Model      string          `json:"model"`
	PromptHash string          `json:"promptHash"`
	RawText    string          `json:"rawAnalysis"`
	Result     analysis.Result `json:"structuredAnalysis"`
}

func (r *AnalysisRepo) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

func (r *AnalysisRepo) Ping(ctx context.Context) error { return r.DB.PingContext(ctx) }

// Save inserts rec, assigning an ID and timestamp when they are empty.
func (r *AnalysisRepo) Save(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	js, err := json.Marshal(rec.Result)
	if err != nil {
		return Record{}, err
	}
	const q = `
insert into video_analyses (id, created_at, video_hash, model, prompt_hash, raw_text, result_json)
values ($1,$2,$3,$4,$5,$6,$7)`
	if _, err := r.DB.ExecContext(ctx, q,
		rec.ID, rec.CreatedAt, rec.VideoHash, rec.Model, rec.PromptHash, rec.RawText, js,
	); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// FindByHash returns the newest record for (video_hash, model, prompt_hash).
// With maxAge > 0 older records count as missing.
func (r *AnalysisRepo) FindByHash(ctx context.Context, videoHash, model, promptHash string, maxAge time.Duration) (*Record, error) {
	const q = `
select id, created_at, video_hash, model, prompt_hash, raw_text, result_json
from video_analyses
where video_hash = $1 and model = $2 and prompt_hash = $3
order by created_at desc
limit 1`
	rec, err := scanRecord(r.DB.QueryRowContext(ctx, q, videoHash, model, promptHash))
	if err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(rec.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *AnalysisRepo) Get(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	const q = `
select id, created_at, video_hash, model, prompt_hash, raw_text, result_json
from video_analyses
where id = $1`
	return scanRecord(r.DB.QueryRowContext(ctx, q, id))
}

// PurgeOlderThan deletes cached analyses older than the given age.
func (r *AnalysisRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	res, err := r.DB.ExecContext(ctx, `delete from video_analyses where created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		rec Record
		js  []byte
	)
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.VideoHash, &rec.Model, &rec.PromptHash, &rec.RawText, &js); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(js, &rec.Result); err != nil {
		// a broken row is treated as absent
		return nil, ErrNotFound
	}
	return &rec, nil
}
