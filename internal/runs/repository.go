package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/intake/internal/workflow"
	"github.com/JaimeStill/intake/pkg/events"
	"github.com/JaimeStill/intake/pkg/pagination"
	"github.com/JaimeStill/intake/pkg/repository"
)

const recordTimeout = 10 * time.Second

type repo struct {
	db         *sql.DB
	runtime    *workflow.Runtime
	publisher  events.Publisher
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a run repository implementing the System interface.
func New(
	db *sql.DB,
	runtime *workflow.Runtime,
	publisher events.Publisher,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		runtime:    runtime,
		publisher:  publisher,
		logger:     logger.With("system", "runs"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

// Execute records and publishes the run even when ctx was cancelled mid-run.
// Recording and publishing failures are logged and never change the outcome.
func (r *repo) Execute(ctx context.Context, raw []byte) (*Record, error) {
	id := uuid.New()

	run, err := workflow.Execute(ctx, r.runtime, id.String(), raw)
	if err != nil {
		return nil, fmt.Errorf("execute run: %w", err)
	}

	rec, err := NewRecord(id, run)
	if err != nil {
		return nil, fmt.Errorf("build run record: %w", err)
	}

	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := r.insert(bg, rec); err != nil {
		r.logger.ErrorContext(ctx, "run not recorded", "run_id", id, "error", err)
	}

	env := events.NewEnvelope(events.RunCompletedType, id.String(), rec.Event())
	if err := r.publisher.Publish(bg, env); err != nil {
		r.logger.WarnContext(ctx, "run event not published", "run_id", id, "error", err)
	}

	return &rec, nil
}

func (r *repo) insert(ctx context.Context, rec Record) error {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	q := `
		INSERT INTO runs(id, state, label, order_id, summary, facts, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		_, err := tx.ExecContext(ctx, q,
			rec.ID, rec.State, nullable(rec.Label), nullable(rec.OrderID),
			summary, []byte(rec.Facts), rec.StartedAt, rec.CompletedAt,
		)
		return struct{}{}, err
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(ctx, "run recorded", "run_id", rec.ID, "state", rec.State)
	return nil
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Record], error) {
	page.Normalize(r.pagination)
	b := filters.apply(newBuilder())

	countSQL, countArgs := b.BuildCount()
	total, err := repository.Count(ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	q, args := b.BuildPage(page.PageSize, page.Offset())
	records, err := repository.QueryMany(ctx, r.db, q, args, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	result := pagination.NewPageResult(records, total, page)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Record, error) {
	q := "SELECT " + projection.Columns() + " FROM runs WHERE id = $1"

	rec, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanRecord)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rec, nil
}

func scanRecord(s repository.Scanner) (Record, error) {
	var (
		rec     Record
		label   sql.NullString
		orderID sql.NullString
		summary []byte
		facts   []byte
	)
	err := s.Scan(
		&rec.ID, &rec.State, &label, &orderID,
		&summary, &facts, &rec.StartedAt, &rec.CompletedAt,
	)
	if err != nil {
		return Record{}, err
	}

	if err := json.Unmarshal(summary, &rec.Summary); err != nil {
		return Record{}, fmt.Errorf("decode run summary: %w", err)
	}
	rec.Label = label.String
	rec.OrderID = orderID.String
	rec.Facts = json.RawMessage(facts)
	return rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
