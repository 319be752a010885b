package orders

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JaimeStill/intake/internal/workflow"
	"github.com/JaimeStill/intake/pkg/pagination"
	"github.com/JaimeStill/intake/pkg/repository"
	"github.com/JaimeStill/intake/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an order repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "orders"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Order], error) {
	page.Normalize(r.pagination)
	b := filters.apply(newBuilder())

	countSQL, countArgs := b.BuildCount()
	total, err := repository.Count(ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	q, args := b.BuildPage(page.PageSize, page.Offset())
	orders, err := repository.QueryMany(ctx, r.db, q, args, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	result := pagination.NewPageResult(orders, total, page)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id string) (*Order, error) {
	q := "SELECT " + projection.Columns() + " FROM orders WHERE id = $1"

	o, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanOrder)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &o, nil
}

// Store validates fields, then records the order row and writes its document
// inside one transaction. The row is inserted before the upload, so a blob is
// only written under an id this run holds. Nothing is written when validation
// fails. An id collision draws a new id. A concurrent store for the same run
// loses to the existing row and adopts it.
func (r *repo) Store(ctx context.Context, runID string, fields map[string]any) (workflow.StoredOrder, error) {
	f, err := FromFields(fields)
	if err != nil {
		return workflow.StoredOrder{}, err
	}

	for range idAttempts {
		o, err := r.insert(ctx, NewID(), runID, f)
		switch {
		case err == nil:
			r.logger.InfoContext(ctx, "order stored", "id", o.ID, "run_id", runID, "key", o.StorageKey)
			return workflow.StoredOrder{OrderID: o.ID, Path: o.Path}, nil
		case errors.Is(err, ErrIDTaken):
			r.logger.WarnContext(ctx, "order id collision", "run_id", runID)
			continue
		case errors.Is(err, ErrDuplicate):
			existing, found, lerr := r.Lookup(ctx, runID)
			if lerr == nil && found {
				r.logger.InfoContext(ctx, "order already stored for run", "run_id", runID, "order_id", existing.OrderID)
				return existing, nil
			}
			return workflow.StoredOrder{}, fmt.Errorf("insert order: %w", err)
		default:
			return workflow.StoredOrder{}, err
		}
	}

	return workflow.StoredOrder{}, fmt.Errorf("insert order: %w", ErrIDTaken)
}

const idAttempts = 3

func (r *repo) insert(ctx context.Context, id, runID string, f Fields) (Order, error) {
	key := Key(id)
	doc := Document{
		OrderID:   id,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
		Order:     f,
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order document: %w", err)
	}

	fieldsJSON, err := json.Marshal(f)
	if err != nil {
		return Order{}, fmt.Errorf("marshal order fields: %w", err)
	}

	q := `
		INSERT INTO orders(id, run_id, storage_key, digest, fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + projection.Columns()

	args := []any{id, runID, key, Digest(f), fieldsJSON, doc.CreatedAt}

	uploaded := false
	o, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Order, error) {
		o, err := repository.QueryOne(ctx, tx, q, args, scanOrder)
		if err != nil {
			return Order{}, mapInsertError(err)
		}

		if err := r.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
			return Order{}, fmt.Errorf("upload order document: %w", err)
		}
		uploaded = true

		return o, nil
	})
	if err != nil {
		if uploaded {
			r.cleanup(key)
		}
		return Order{}, err
	}

	return o, nil
}

func (r *repo) Lookup(ctx context.Context, runID string) (workflow.StoredOrder, bool, error) {
	q := "SELECT " + projection.Columns() + " FROM orders WHERE run_id = $1"

	o, err := repository.QueryOne(ctx, r.db, q, []any{runID}, scanOrder)
	if err != nil {
		err = repository.MapError(err, ErrNotFound, ErrDuplicate)
		if errors.Is(err, ErrNotFound) {
			return workflow.StoredOrder{}, false, nil
		}
		return workflow.StoredOrder{}, false, fmt.Errorf("lookup order: %w", err)
	}

	return workflow.StoredOrder{OrderID: o.ID, Path: o.Path}, true, nil
}

// Verify is read-only; discrepancies are reported on the result, errors only
// when the record or blob cannot be read at all.
func (r *repo) Verify(ctx context.Context, orderID, path string) (workflow.Verification, error) {
	o, err := r.Find(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Check(nil, orderID, path, nil), nil
		}
		return workflow.Verification{}, fmt.Errorf("find order: %w", err)
	}

	var data []byte
	key := o.StorageKey
	if Path(key) == path {
		data, err = storage.ReadAll(ctx, r.storage, key)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return workflow.Verification{}, fmt.Errorf("read order document: %w", err)
		}
	}

	v := Check(o, orderID, path, data)
	r.logger.InfoContext(ctx, "order verified", "id", orderID, "matches", v.Matches, "details", v.Details)
	return v, nil
}

func (r *repo) cleanup(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("orphaned order document", "key", key, "error", err)
	}
}

func scanOrder(s repository.Scanner) (Order, error) {
	var (
		o      Order
		fields []byte
	)
	if err := s.Scan(&o.ID, &o.RunID, &o.StorageKey, &o.Digest, &fields, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(fields, &o.Fields); err != nil {
		return Order{}, fmt.Errorf("decode order fields: %w", err)
	}
	o.Path = Path(o.StorageKey)
	return o, nil
}
