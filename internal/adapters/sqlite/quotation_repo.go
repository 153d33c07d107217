// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// QuotationRepository implements secondary.QuotationRepository with SQLite.
// A quotation is spread over three tables; every write touches them in one transaction.
type QuotationRepository struct {
	db *sql.DB
}

// NewQuotationRepository creates a new SQLite quotation repository.
func NewQuotationRepository(db *sql.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

const quotationColumns = `id, supplier_id, supplier_name, supplier_email, category, source, status,
	sent_at, replied_at, analyzed_at, confirmed_at, delivered_at, cancelled_at,
	quoted_total, reply_body, cancel_reason, created_at, updated_at`

// Create persists a new quotation, including its items and history.
func (r *QuotationRepository) Create(ctx context.Context, q *quotation.Quotation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO quotations (`+quotationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.SupplierID, nullString(q.SupplierName), nullString(q.SupplierEmail), nullString(q.Category),
		string(q.Source), string(q.Status),
		nullTime(q.SentAt), nullTime(q.RepliedAt), nullTime(q.AnalyzedAt),
		nullTime(q.ConfirmedAt), nullTime(q.DeliveredAt), nullTime(q.CancelledAt),
		nullDecimal(q.QuotedTotal), nullString(q.ReplyBody), nullString(q.CancelReason),
		q.CreatedAt.UTC(), q.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create quotation: %w", err)
	}

	if err := insertItems(ctx, tx, q.ID, q.Items); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, q.ID, 0, q.History); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quotation: %w", err)
	}
	return nil
}

// GetByID retrieves a quotation by its ID.
func (r *QuotationRepository) GetByID(ctx context.Context, id string) (*quotation.Quotation, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+quotationColumns+" FROM quotations WHERE id = ?", id)
	q, err := scanQuotation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("quotation %s %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}

	if err := r.loadChildren(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// List retrieves quotations matching the given filters, oldest first.
func (r *QuotationRepository) List(ctx context.Context, filters secondary.QuotationFilters) ([]*quotation.Quotation, error) {
	query := "SELECT " + quotationColumns + " FROM quotations WHERE 1=1"
	var args []any

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.SupplierID != "" {
		query += " AND supplier_id = ?"
		args = append(args, filters.SupplierID)
	}
	if filters.OpenOnly {
		var open []string
		for _, s := range quotation.AllStates {
			if quotation.IsOpen(s) {
				open = append(open, "?")
				args = append(args, string(s))
			}
		}
		query += " AND status IN (" + strings.Join(open, ", ") + ")"
	}

	query += " ORDER BY created_at ASC, id ASC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}

	var quotations []*quotation.Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		quotations = append(quotations, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, q := range quotations {
		if err := r.loadChildren(ctx, q); err != nil {
			return nil, err
		}
	}
	return quotations, nil
}

// Update replaces the stored quotation. Items are rewritten; history is append-only,
// so only entries beyond those already stored are inserted.
//
// q must extend the stored history: at least one new entry, the first of which
// starts from the stored status. The status row is updated conditionally on the
// status and history length read here, so a concurrent writer that lands first
// turns this write into a conflict rather than a silent overwrite.
func (r *QuotationRepository) Update(ctx context.Context, q *quotation.Quotation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var storedStatus string
	err = tx.QueryRowContext(ctx, "SELECT status FROM quotations WHERE id = ?", q.ID).Scan(&storedStatus)
	if err == sql.ErrNoRows {
		return fmt.Errorf("quotation %s %w", q.ID, secondary.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read quotation status: %w", err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM quotation_history WHERE quotation_id = ?", q.ID,
	).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count history: %w", err)
	}
	if len(q.History) <= stored {
		return fmt.Errorf("quotation %s %w: %d stored history entries, update carries %d",
			q.ID, secondary.ErrConflict, stored, len(q.History))
	}
	if from := q.History[stored].PreviousState; string(from) != storedStatus {
		return fmt.Errorf("quotation %s %w: stored status is %s, update starts from %s",
			q.ID, secondary.ErrConflict, storedStatus, from)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE quotations SET
			supplier_id = ?, supplier_name = ?, supplier_email = ?, category = ?, source = ?, status = ?,
			sent_at = ?, replied_at = ?, analyzed_at = ?, confirmed_at = ?, delivered_at = ?, cancelled_at = ?,
			quoted_total = ?, reply_body = ?, cancel_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?
		   AND (SELECT COUNT(*) FROM quotation_history WHERE quotation_id = ?) = ?`,
		q.SupplierID, nullString(q.SupplierName), nullString(q.SupplierEmail), nullString(q.Category),
		string(q.Source), string(q.Status),
		nullTime(q.SentAt), nullTime(q.RepliedAt), nullTime(q.AnalyzedAt),
		nullTime(q.ConfirmedAt), nullTime(q.DeliveredAt), nullTime(q.CancelledAt),
		nullDecimal(q.QuotedTotal), nullString(q.ReplyBody), nullString(q.CancelReason),
		q.UpdatedAt.UTC(), q.ID, storedStatus, q.ID, stored,
	)
	if err != nil {
		return fmt.Errorf("failed to update quotation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("quotation %s %w", q.ID, secondary.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM quotation_items WHERE quotation_id = ?", q.ID); err != nil {
		return fmt.Errorf("failed to clear quotation items: %w", err)
	}
	if err := insertItems(ctx, tx, q.ID, q.Items); err != nil {
		return err
	}
	if err := insertHistory(ctx, tx, q.ID, stored, q.History[stored:]); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quotation: %w", err)
	}
	return nil
}

// Delete removes a quotation and its children.
func (r *QuotationRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Children are removed explicitly; foreign_keys may be off on test connections.
	if _, err := tx.ExecContext(ctx, "DELETE FROM quotation_items WHERE quotation_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete quotation items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM quotation_history WHERE quotation_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete quotation history: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM quotations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete quotation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("quotation %s %w", id, secondary.ErrNotFound)
	}

	return tx.Commit()
}

// GetNextID returns the next available quotation ID.
func (r *QuotationRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM quotations",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next quotation ID: %w", err)
	}

	return quotation.GenerateID(maxID), nil
}

// loadChildren fills items then history. Each cursor is closed before the next
// query so a single-connection pool cannot deadlock.
func (r *QuotationRepository) loadChildren(ctx context.Context, q *quotation.Quotation) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, name, category, quantity, unit, price FROM quotation_items WHERE quotation_id = ? ORDER BY position",
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load quotation items: %w", err)
	}
	defer rows.Close()

	q.Items = []quotation.Item{}
	for rows.Next() {
		var (
			it             quotation.Item
			name, category sql.NullString
			unit           sql.NullString
			price          string
		)
		if err := rows.Scan(&it.ProductID, &name, &category, &it.Quantity, &unit, &price); err != nil {
			return fmt.Errorf("failed to scan quotation item: %w", err)
		}
		it.Name = name.String
		it.Category = category.String
		it.Unit = unit.String
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("invalid price %q on quotation %s: %w", price, q.ID, err)
		}
		q.Items = append(q.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	return r.loadHistory(ctx, q)
}

func (r *QuotationRepository) loadHistory(ctx context.Context, q *quotation.Quotation) error {
	hrows, err := r.db.QueryContext(ctx,
		"SELECT previous_state, state, event, timestamp, payload FROM quotation_history WHERE quotation_id = ? ORDER BY seq",
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load quotation history: %w", err)
	}
	defer hrows.Close()

	q.History = []quotation.HistoryEntry{}
	for hrows.Next() {
		var (
			h        quotation.HistoryEntry
			previous sql.NullString
			state    string
			event    string
			payload  sql.NullString
		)
		if err := hrows.Scan(&previous, &state, &event, &h.Timestamp, &payload); err != nil {
			return fmt.Errorf("failed to scan history entry: %w", err)
		}
		h.PreviousState = quotation.State(previous.String)
		h.State = quotation.State(state)
		h.Event = quotation.EventType(event)
		if payload.Valid && payload.String != "" {
			if err := json.Unmarshal([]byte(payload.String), &h.Payload); err != nil {
				return fmt.Errorf("invalid history payload on quotation %s: %w", q.ID, err)
			}
		}
		q.History = append(q.History, h)
	}
	return hrows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner) (*quotation.Quotation, error) {
	var (
		q                                     quotation.Quotation
		supplierName, supplierEmail, category sql.NullString
		source, status                        string
		sentAt, repliedAt, analyzedAt         sql.NullTime
		confirmedAt, deliveredAt, cancelledAt sql.NullTime
		quotedTotal, replyBody, cancelReason  sql.NullString
	)

	err := row.Scan(
		&q.ID, &q.SupplierID, &supplierName, &supplierEmail, &category, &source, &status,
		&sentAt, &repliedAt, &analyzedAt, &confirmedAt, &deliveredAt, &cancelledAt,
		&quotedTotal, &replyBody, &cancelReason, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.SupplierName = supplierName.String
	q.SupplierEmail = supplierEmail.String
	q.Category = category.String
	q.Source = quotation.Source(source)
	q.Status = quotation.State(status)
	q.SentAt = timePtr(sentAt)
	q.RepliedAt = timePtr(repliedAt)
	q.AnalyzedAt = timePtr(analyzedAt)
	q.ConfirmedAt = timePtr(confirmedAt)
	q.DeliveredAt = timePtr(deliveredAt)
	q.CancelledAt = timePtr(cancelledAt)
	q.ReplyBody = replyBody.String
	q.CancelReason = cancelReason.String
	if quotedTotal.Valid {
		total, err := decimal.NewFromString(quotedTotal.String)
		if err != nil {
			return nil, fmt.Errorf("invalid quoted total %q: %w", quotedTotal.String, err)
		}
		q.QuotedTotal = &total
	}
	return &q, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, quotationID string, items []quotation.Item) error {
	for i, it := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO quotation_items (quotation_id, position, product_id, name, category, quantity, unit, price)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			quotationID, i, it.ProductID, nullString(it.Name), nullString(it.Category),
			it.Quantity, nullString(it.Unit), it.Price.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert quotation item: %w", err)
		}
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, quotationID string, offset int, entries []quotation.HistoryEntry) error {
	for i, h := range entries {
		var payload sql.NullString
		if len(h.Payload) > 0 {
			b, err := json.Marshal(h.Payload)
			if err != nil {
				return fmt.Errorf("failed to encode history payload: %w", err)
			}
			payload = sql.NullString{String: string(b), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO quotation_history (quotation_id, seq, previous_state, state, event, timestamp, payload)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			quotationID, offset+i, nullString(string(h.PreviousState)), string(h.State), string(h.Event),
			h.Timestamp.UTC(), payload,
		)
		if err != nil {
			return fmt.Errorf("failed to insert history entry: %w", err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

var _ secondary.QuotationRepository = (*QuotationRepository)(nil)
