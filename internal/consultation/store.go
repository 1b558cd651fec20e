package consultation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound indicates the requested consultation does not exist.
var ErrNotFound = errors.New("consultation: not found")

// DB is the subset of pgxpool.Pool the stores use; pgxmock satisfies it
// in tests.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store reads and updates consultation records.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	if db == nil {
		panic("consultation: db cannot be nil")
	}
	return &Store{db: db}
}

// Get loads one consultation by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	const q = `
		SELECT id, patient_id, provider_id, reason_for_visit, specialty,
		       patient_age, patient_gender, status, assessment,
		       message_count, created_at, updated_at
		FROM consultations
		WHERE id = $1`

	var c Consultation
	err := s.db.QueryRow(ctx, q, id).Scan(
		&c.ID, &c.PatientID, &c.ProviderID, &c.ReasonForVisit, &c.Specialty,
		&c.PatientAge, &c.PatientGender, &c.Status, &c.Assessment,
		&c.MessageCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consultation: get %s: %w", id, err)
	}
	return &c, nil
}

// UpdateStatusAndAssessment writes back the consultation's status and
// stored assessment after a report is generated.
func (s *Store) UpdateStatusAndAssessment(ctx context.Context, id uuid.UUID, status, assessment string) error {
	const q = `
		UPDATE consultations
		SET status = $2, assessment = $3, updated_at = $4
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, q, id, status, assessment, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("consultation: update %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReportStore persists generated diagnostic reports.
type ReportStore struct {
	db DB
}

func NewReportStore(db DB) *ReportStore {
	if db == nil {
		panic("consultation: db cannot be nil")
	}
	return &ReportStore{db: db}
}

// Save inserts a report record and returns its id. Conditions and
// recommendations are stored as JSON.
func (s *ReportStore) Save(ctx context.Context, r *Report) (uuid.UUID, error) {
	if r == nil {
		return uuid.Nil, errors.New("consultation: report cannot be nil")
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	conditions, err := json.Marshal(r.Conditions)
	if err != nil {
		return uuid.Nil, fmt.Errorf("consultation: marshal conditions: %w", err)
	}
	recommendations, err := json.Marshal(r.Recommendations)
	if err != nil {
		return uuid.Nil, fmt.Errorf("consultation: marshal recommendations: %w", err)
	}
	redFlags, err := json.Marshal(r.RedFlags)
	if err != nil {
		return uuid.Nil, fmt.Errorf("consultation: marshal red flags: %w", err)
	}

	const q = `
		INSERT INTO diagnostic_reports
			(id, consultation_id, patient_id, provider_id, analysis,
			 conditions, recommendations, urgency, confidence, red_flags,
			 generation_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = s.db.Exec(ctx, q,
		r.ID, r.ConsultationID, r.PatientID, r.ProviderID, r.Analysis,
		conditions, recommendations, r.Urgency, r.Confidence, redFlags,
		r.GenerationMethod, r.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("consultation: save report for %s: %w", r.ConsultationID, err)
	}
	return r.ID, nil
}
