package history

import (
	"context"
	"fmt"
	"sync"

	"telecare-session-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Recorder persists a finished session's result. The session core composes
// the record and hands it off; it never writes storage itself.
type Recorder interface {
	Record(ctx context.Context, rec domain.HistoryRecord) error
}

// MemoryRecorder keeps records in memory (tests/demos).
type MemoryRecorder struct {
	mu      sync.Mutex
	records []domain.HistoryRecord
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, rec domain.HistoryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// Records returns a copy of everything recorded so far.
func (r *MemoryRecorder) Records() []domain.HistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.HistoryRecord, len(r.records))
	copy(out, r.records)
	return out
}

// PostgresRecorder writes history rows to Postgres.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

func (r *PostgresRecorder) Record(ctx context.Context, rec domain.HistoryRecord) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO histories (patient_name, doctor_name, test_name, difficult, date, score, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.PatientName, rec.DoctorName, rec.TestName, rec.Difficult, rec.Date, rec.Score, rec.Note)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}
