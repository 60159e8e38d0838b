// Package postgres implements the storage interfaces on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/egov-platform/citizen-services/internal/app/domain/appointment"
	"github.com/egov-platform/citizen-services/internal/app/domain/catalog"
	"github.com/egov-platform/citizen-services/internal/app/domain/document"
	"github.com/egov-platform/citizen-services/internal/app/domain/fine"
	"github.com/egov-platform/citizen-services/internal/app/domain/identity"
	"github.com/egov-platform/citizen-services/internal/app/domain/instrument"
	"github.com/egov-platform/citizen-services/internal/app/domain/request"
	"github.com/egov-platform/citizen-services/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL. Row-level
// cascades (user -> requests/appointments/fines/documents/instrument, agency
// -> services -> requests/appointments) are enforced by foreign keys with
// ON DELETE CASCADE; see the migrations.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)
var _ storage.RequestStore = (*Store)(nil)
var _ storage.AppointmentStore = (*Store)(nil)
var _ storage.InstrumentStore = (*Store)(nil)
var _ storage.FineStore = (*Store)(nil)
var _ storage.DocumentStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const pqUniqueViolation = "23505"

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return storage.ErrDuplicate
	}
	return err
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u identity.User) (identity.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return identity.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (identity.User, error) {
	var u identity.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1
	`, id)
	if err != nil {
		return identity.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (identity.User, error) {
	var u identity.User
	err := s.db.GetContext(ctx, &u, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE username = $1
	`, username)
	if err != nil {
		return identity.User{}, translate(err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u identity.User) (identity.User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = $2, password_hash = $3 WHERE id = $1
	`, u.ID, u.Email, u.PasswordHash)
	if err != nil {
		return identity.User{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return identity.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) CreateAgency(ctx context.Context, a catalog.Agency) (catalog.Agency, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agencies (id, name, description) VALUES ($1, $2, $3)
	`, a.ID, a.Name, a.Description)
	if err != nil {
		return catalog.Agency{}, translate(err)
	}
	return a, nil
}

func (s *Store) ListAgencies(ctx context.Context) ([]catalog.Agency, error) {
	agencies := []catalog.Agency{}
	err := s.db.SelectContext(ctx, &agencies, `
		SELECT id, name, description FROM agencies ORDER BY name
	`)
	if err != nil {
		return nil, translate(err)
	}
	return agencies, nil
}

func (s *Store) GetAgency(ctx context.Context, id string) (catalog.Agency, error) {
	var a catalog.Agency
	err := s.db.GetContext(ctx, &a, `
		SELECT id, name, description FROM agencies WHERE id = $1
	`, id)
	if err != nil {
		return catalog.Agency{}, translate(err)
	}
	return a, nil
}

func (s *Store) DeleteAgency(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM agencies WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) CreateService(ctx context.Context, svc catalog.Service) (catalog.Service, error) {
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO services (id, agency_id, name, description, fee, category)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, svc.ID, svc.AgencyID, svc.Name, svc.Description, svc.Fee, svc.Category)
	if err != nil {
		return catalog.Service{}, translate(err)
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context) ([]catalog.Service, error) {
	services := []catalog.Service{}
	err := s.db.SelectContext(ctx, &services, `
		SELECT id, agency_id, name, description, fee, category
		FROM services ORDER BY name
	`)
	if err != nil {
		return nil, translate(err)
	}
	return services, nil
}

func (s *Store) GetService(ctx context.Context, id string) (catalog.Service, error) {
	var svc catalog.Service
	err := s.db.GetContext(ctx, &svc, `
		SELECT id, agency_id, name, description, fee, category
		FROM services WHERE id = $1
	`, id)
	if err != nil {
		return catalog.Service{}, translate(err)
	}
	return svc, nil
}

func (s *Store) DeleteService(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- RequestStore -----------------------------------------------------------

type requestRow struct {
	ID        string         `db:"id"`
	UserID    sql.NullString `db:"user_id"`
	ServiceID sql.NullString `db:"service_id"`
	Status    string         `db:"status"`
	IsPaid    bool           `db:"is_paid"`
	Payload   []byte         `db:"payload"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r requestRow) toDomain() request.ServiceRequest {
	req := request.ServiceRequest{
		ID:        r.ID,
		UserID:    r.UserID.String,
		ServiceID: r.ServiceID.String,
		Status:    request.Status(r.Status),
		IsPaid:    r.IsPaid,
		Payload:   map[string]interface{}{},
		CreatedAt: r.CreatedAt,
	}
	if len(r.Payload) > 0 {
		_ = json.Unmarshal(r.Payload, &req.Payload)
	}
	return req
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *Store) CreateRequest(ctx context.Context, req request.ServiceRequest) (request.ServiceRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Payload == nil {
		req.Payload = map[string]interface{}{}
	}
	payloadJSON, err := json.Marshal(req.Payload)
	if err != nil {
		return request.ServiceRequest{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO service_requests (id, user_id, service_id, status, is_paid, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, req.ID, nullable(req.UserID), nullable(req.ServiceID), req.Status, req.IsPaid, payloadJSON, req.CreatedAt)
	if err != nil {
		return request.ServiceRequest{}, translate(err)
	}
	return req, nil
}

func (s *Store) ListRequests(ctx context.Context, userID string) ([]request.ServiceRequest, error) {
	var rows []requestRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, service_id, status, is_paid, payload, created_at
		FROM service_requests WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, translate(err)
	}
	result := make([]request.ServiceRequest, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.toDomain())
	}
	return result, nil
}

func (s *Store) GetRequest(ctx context.Context, userID, id string) (request.ServiceRequest, error) {
	var row requestRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, service_id, status, is_paid, payload, created_at
		FROM service_requests WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return request.ServiceRequest{}, translate(err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateRequest(ctx context.Context, req request.ServiceRequest) (request.ServiceRequest, error) {
	payloadJSON, err := json.Marshal(req.Payload)
	if err != nil {
		return request.ServiceRequest{}, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE service_requests SET status = $3, is_paid = $4, payload = $5
		WHERE id = $1 AND user_id = $2
	`, req.ID, req.UserID, req.Status, req.IsPaid, payloadJSON)
	if err != nil {
		return request.ServiceRequest{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return request.ServiceRequest{}, storage.ErrNotFound
	}
	return req, nil
}

func (s *Store) DeleteRequest(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM service_requests WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- AppointmentStore -------------------------------------------------------

func (s *Store) CreateAppointment(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO appointments (id, service_id, user_id, visit_date, visit_time, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.ServiceID, a.UserID, a.Date, a.Time, a.Location, a.CreatedAt)
	if err != nil {
		return appointment.Appointment{}, translate(err)
	}
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context, userID string) ([]appointment.Appointment, error) {
	appointments := []appointment.Appointment{}
	err := s.db.SelectContext(ctx, &appointments, `
		SELECT id, service_id, user_id, visit_date, visit_time, location, created_at
		FROM appointments WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, translate(err)
	}
	return appointments, nil
}

func (s *Store) GetAppointment(ctx context.Context, userID, id string) (appointment.Appointment, error) {
	var a appointment.Appointment
	err := s.db.GetContext(ctx, &a, `
		SELECT id, service_id, user_id, visit_date, visit_time, location, created_at
		FROM appointments WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return appointment.Appointment{}, translate(err)
	}
	return a, nil
}

func (s *Store) DeleteAppointment(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM appointments WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- InstrumentStore --------------------------------------------------------

func (s *Store) CreateInstrument(ctx context.Context, inst instrument.Instrument) (instrument.Instrument, error) {
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	inst.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_instruments
			(id, user_id, kind, iban, display_name, infinite_balance, card_number, holder_name, expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, inst.ID, inst.UserID, inst.Kind, inst.IBAN, inst.DisplayName, inst.InfiniteBalance,
		inst.CardNumber, inst.HolderName, inst.Expiry, inst.CreatedAt)
	if err != nil {
		return instrument.Instrument{}, translate(err)
	}
	return inst, nil
}

func (s *Store) GetInstrument(ctx context.Context, userID string) (instrument.Instrument, error) {
	var inst instrument.Instrument
	err := s.db.GetContext(ctx, &inst, `
		SELECT id, user_id, kind, iban, display_name, infinite_balance,
		       card_number, holder_name, expiry, created_at
		FROM payment_instruments WHERE user_id = $1
	`, userID)
	if err != nil {
		return instrument.Instrument{}, translate(err)
	}
	return inst, nil
}

func (s *Store) UpdateInstrument(ctx context.Context, inst instrument.Instrument) (instrument.Instrument, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE payment_instruments
		SET iban = $2, display_name = $3, infinite_balance = $4,
		    card_number = $5, holder_name = $6, expiry = $7
		WHERE user_id = $1
	`, inst.UserID, inst.IBAN, inst.DisplayName, inst.InfiniteBalance,
		inst.CardNumber, inst.HolderName, inst.Expiry)
	if err != nil {
		return instrument.Instrument{}, translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return instrument.Instrument{}, storage.ErrNotFound
	}
	return inst, nil
}

func (s *Store) DeleteInstrument(ctx context.Context, userID string) error {
	// Idempotent: zero rows affected is still a success.
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM payment_instruments WHERE user_id = $1
	`, userID)
	return translate(err)
}

// --- FineStore --------------------------------------------------------------

const fineColumns = `id, fine_number, user_id, amount, violation_type, issued_at, due_date, status, notes, created_at, updated_at`

func (s *Store) CreateFine(ctx context.Context, f fine.TrafficFine) (fine.TrafficFine, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	if f.Status == "" {
		f.Status = fine.StatusPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO traffic_fines (`+fineColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, f.ID, f.FineNumber, f.UserID, f.Amount, f.ViolationType, f.IssuedAt, f.DueDate,
		f.Status, f.Notes, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fine.TrafficFine{}, translate(err)
	}
	return f, nil
}

func (s *Store) ListUnpaidFines(ctx context.Context, userID string) ([]fine.TrafficFine, error) {
	fines := []fine.TrafficFine{}
	err := s.db.SelectContext(ctx, &fines, `
		SELECT `+fineColumns+` FROM traffic_fines
		WHERE user_id = $1 AND status = $2
		ORDER BY issued_at DESC NULLS LAST, created_at DESC
	`, userID, fine.StatusPending)
	if err != nil {
		return nil, translate(err)
	}
	return fines, nil
}

func (s *Store) ListOverdueFines(ctx context.Context, asOf time.Time) ([]fine.TrafficFine, error) {
	fines := []fine.TrafficFine{}
	err := s.db.SelectContext(ctx, &fines, `
		SELECT `+fineColumns+` FROM traffic_fines
		WHERE status = $1 AND due_date IS NOT NULL AND due_date < $2
		ORDER BY issued_at DESC NULLS LAST, created_at DESC
	`, fine.StatusPending, asOf)
	if err != nil {
		return nil, translate(err)
	}
	return fines, nil
}

// PayFines runs the batch inside one transaction. The unpaid subset is locked
// with SELECT ... FOR UPDATE so a concurrent batch over an overlapping set
// blocks and then sees the fines already PAID, excluding them instead of
// double-logging.
func (s *Store) PayFines(ctx context.Context, userID string, fineIDs []string, all bool) ([]fine.TrafficFine, []request.ServiceRequest, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = tx.Rollback() }()

	targets := []fine.TrafficFine{}
	if all {
		err = tx.SelectContext(ctx, &targets, `
			SELECT `+fineColumns+` FROM traffic_fines
			WHERE user_id = $1 AND status = $2
			ORDER BY issued_at DESC NULLS LAST, created_at DESC
			FOR UPDATE
		`, userID, fine.StatusPending)
	} else {
		err = tx.SelectContext(ctx, &targets, `
			SELECT `+fineColumns+` FROM traffic_fines
			WHERE user_id = $1 AND status = $2 AND id = ANY($3)
			ORDER BY issued_at DESC NULLS LAST, created_at DESC
			FOR UPDATE
		`, userID, fine.StatusPending, pq.Array(fineIDs))
	}
	if err != nil {
		return nil, nil, translate(err)
	}
	if len(targets) == 0 {
		return nil, nil, nil
	}

	now := time.Now().UTC()
	paid := make([]fine.TrafficFine, 0, len(targets))
	entries := make([]request.ServiceRequest, 0, len(targets))
	for _, f := range targets {
		result, err := tx.ExecContext(ctx, `
			UPDATE traffic_fines SET status = $2, updated_at = $3
			WHERE id = $1 AND status = $4
		`, f.ID, fine.StatusPaid, now, fine.StatusPending)
		if err != nil {
			return nil, nil, translate(err)
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			// Paid by a concurrent batch after our snapshot; skip.
			continue
		}
		f.Status = fine.StatusPaid
		f.UpdatedAt = now
		paid = append(paid, f)

		entry := request.ServiceRequest{
			ID:     uuid.NewString(),
			UserID: userID,
			Status: request.StatusApproved,
			IsPaid: true,
			Payload: map[string]interface{}{
				"fine_number":    f.FineNumber,
				"amount":         f.Amount,
				"violation_type": f.ViolationType,
			},
			CreatedAt: now,
		}
		payloadJSON, err := json.Marshal(entry.Payload)
		if err != nil {
			return nil, nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO service_requests (id, user_id, service_id, status, is_paid, payload, created_at)
			VALUES ($1, $2, NULL, $3, $4, $5, $6)
		`, entry.ID, entry.UserID, entry.Status, entry.IsPaid, payloadJSON, entry.CreatedAt); err != nil {
			return nil, nil, translate(err)
		}
		entries = append(entries, entry)
	}

	if len(paid) == 0 {
		return nil, nil, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return paid, entries, nil
}

// --- DocumentStore ----------------------------------------------------------

func (s *Store) CreateDocument(ctx context.Context, d document.Document) (document.Document, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, user_id, title, url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, d.ID, d.UserID, d.Title, d.URL, d.CreatedAt)
	if err != nil {
		return document.Document{}, translate(err)
	}
	return d, nil
}

func (s *Store) ListDocuments(ctx context.Context, userID string) ([]document.Document, error) {
	documents := []document.Document{}
	err := s.db.SelectContext(ctx, &documents, `
		SELECT id, user_id, title, url, created_at
		FROM documents WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, translate(err)
	}
	return documents, nil
}

func (s *Store) DeleteDocument(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return translate(err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
