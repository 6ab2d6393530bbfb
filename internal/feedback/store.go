package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/feedback-coach/internal/db"
)

// ErrNotFound is returned when a review does not exist.
var ErrNotFound = errors.New("review not found")

// Review is a recorded feedback request for one chunk.
type Review struct {
	ID          string     `json:"id"`
	DocumentID  string     `json:"document_id"`
	ChunkIndex  int        `json:"chunk_index"`
	Original    string     `json:"original"`
	Corrected   string     `json:"corrected"`
	Feedback    string     `json:"feedback"`
	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store persists reviews.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store over d.
func NewStore(d *db.DB) *Store {
	return &Store{db: d, now: time.Now}
}

// Record saves r, assigning an ID and creation time when unset.
func (s *Store) Record(ctx context.Context, r Review) (Review, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, document_id, chunk_index, original, corrected, feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DocumentID, r.ChunkIndex, r.Original, r.Corrected, r.Feedback,
		r.CreatedAt.Format(timeLayout))
	if err != nil {
		return Review{}, fmt.Errorf("recording review: %w", err)
	}
	return r, nil
}

// Get returns the review with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Review, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, chunk_index, original, corrected, feedback, created_at, submitted_at
		FROM reviews WHERE id = ?`, id)
	r, err := scanReview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Review{}, ErrNotFound
	}
	if err != nil {
		return Review{}, fmt.Errorf("loading review %s: %w", id, err)
	}
	return r, nil
}

// List returns the newest reviews first. An empty documentID lists reviews
// for every document; limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, documentID string, limit int) ([]Review, error) {
	query := `SELECT id, document_id, chunk_index, original, corrected, feedback, created_at, submitted_at
		FROM reviews`
	var args []any
	if documentID != "" {
		query += ` WHERE document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkSubmitted records that the review's correction was sent for training.
func (s *Store) MarkSubmitted(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reviews SET submitted_at = ? WHERE id = ?`,
		s.now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("marking review %s submitted: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(sc scanner) (Review, error) {
	var (
		r         Review
		created   string
		submitted sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.DocumentID, &r.ChunkIndex, &r.Original, &r.Corrected, &r.Feedback, &created, &submitted); err != nil {
		return Review{}, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Review{}, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = t
	if submitted.Valid {
		st, err := time.Parse(timeLayout, submitted.String)
		if err != nil {
			return Review{}, fmt.Errorf("parsing submitted_at: %w", err)
		}
		r.SubmittedAt = &st
	}
	return r, nil
}
