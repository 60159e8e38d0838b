package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/egov-platform/citizen-services/internal/app/domain/appointment"
	"github.com/egov-platform/citizen-services/internal/app/domain/catalog"
	"github.com/egov-platform/citizen-services/internal/app/domain/document"
	"github.com/egov-platform/citizen-services/internal/app/domain/fine"
	"github.com/egov-platform/citizen-services/internal/app/domain/identity"
	"github.com/egov-platform/citizen-services/internal/app/domain/instrument"
	"github.com/egov-platform/citizen-services/internal/app/domain/request"
	"github.com/egov-platform/citizen-services/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
// Cascade rules mirror the relational schema: deleting a user removes their
// requests, appointments, fines, documents and instrument; deleting an agency
// removes its services and, transitively, their requests and appointments.
type Store struct {
	mu           sync.RWMutex
	users        map[string]identity.User
	agencies     map[string]catalog.Agency
	services     map[string]catalog.Service
	requests     map[string]request.ServiceRequest
	appointments map[string]appointment.Appointment
	instruments  map[string]instrument.Instrument // keyed by user ID
	fines        map[string]fine.TrafficFine
	documents    map[string]document.Document
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.CatalogStore = (*Store)(nil)
var _ storage.RequestStore = (*Store)(nil)
var _ storage.AppointmentStore = (*Store)(nil)
var _ storage.InstrumentStore = (*Store)(nil)
var _ storage.FineStore = (*Store)(nil)
var _ storage.DocumentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		users:        make(map[string]identity.User),
		agencies:     make(map[string]catalog.Agency),
		services:     make(map[string]catalog.Service),
		requests:     make(map[string]request.ServiceRequest),
		appointments: make(map[string]appointment.Appointment),
		instruments:  make(map[string]instrument.Instrument),
		fines:        make(map[string]fine.TrafficFine),
		documents:    make(map[string]document.Document),
	}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return identity.User{}, storage.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return identity.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return identity.User{}, storage.ErrNotFound
}

func (s *Store) UpdateUser(ctx context.Context, u identity.User) (identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[u.ID]
	if !ok {
		return identity.User{}, storage.ErrNotFound
	}
	u.CreatedAt = existing.CreatedAt
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.users, id)
	for rid, req := range s.requests {
		if req.UserID == id {
			delete(s.requests, rid)
		}
	}
	for aid, appt := range s.appointments {
		if appt.UserID == id {
			delete(s.appointments, aid)
		}
	}
	for fid, f := range s.fines {
		if f.UserID == id {
			delete(s.fines, fid)
		}
	}
	for did, doc := range s.documents {
		if doc.UserID == id {
			delete(s.documents, did)
		}
	}
	delete(s.instruments, id)
	return nil
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) CreateAgency(ctx context.Context, a catalog.Agency) (catalog.Agency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.agencies {
		if existing.Name == a.Name {
			return catalog.Agency{}, storage.ErrDuplicate
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.agencies[a.ID] = a
	return a, nil
}

func (s *Store) ListAgencies(ctx context.Context) ([]catalog.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.Agency, 0, len(s.agencies))
	for _, a := range s.agencies {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetAgency(ctx context.Context, id string) (catalog.Agency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agencies[id]
	if !ok {
		return catalog.Agency{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) DeleteAgency(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agencies[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.agencies, id)
	for sid, svc := range s.services {
		if svc.AgencyID == id {
			delete(s.services, sid)
			s.deleteServiceDependentsLocked(sid)
		}
	}
	return nil
}

func (s *Store) CreateService(ctx context.Context, svc catalog.Service) (catalog.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agencies[svc.AgencyID]; !ok {
		return catalog.Service{}, storage.ErrNotFound
	}
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	s.services[svc.ID] = svc
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context) ([]catalog.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.Service, 0, len(s.services))
	for _, svc := range s.services {
		result = append(result, svc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) GetService(ctx context.Context, id string) (catalog.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[id]
	if !ok {
		return catalog.Service{}, storage.ErrNotFound
	}
	return svc, nil
}

func (s *Store) DeleteService(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.services, id)
	s.deleteServiceDependentsLocked(id)
	return nil
}

func (s *Store) deleteServiceDependentsLocked(serviceID string) {
	for rid, req := range s.requests {
		if req.ServiceID == serviceID {
			delete(s.requests, rid)
		}
	}
	for aid, appt := range s.appointments {
		if appt.ServiceID == serviceID {
			delete(s.appointments, aid)
		}
	}
}

// --- RequestStore -----------------------------------------------------------

func (s *Store) CreateRequest(ctx context.Context, req request.ServiceRequest) (request.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := s.createRequestLocked(req)
	return created, nil
}

func (s *Store) createRequestLocked(req request.ServiceRequest) request.ServiceRequest {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Payload == nil {
		req.Payload = map[string]interface{}{}
	}
	s.requests[req.ID] = req
	return req
}

func (s *Store) ListRequests(ctx context.Context, userID string) ([]request.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]request.ServiceRequest, 0)
	for _, req := range s.requests {
		if req.UserID == userID {
			result = append(result, req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) GetRequest(ctx context.Context, userID, id string) (request.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok || req.UserID != userID {
		return request.ServiceRequest{}, storage.ErrNotFound
	}
	return req, nil
}

func (s *Store) UpdateRequest(ctx context.Context, req request.ServiceRequest) (request.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.requests[req.ID]
	if !ok || existing.UserID != req.UserID {
		return request.ServiceRequest{}, storage.ErrNotFound
	}
	req.CreatedAt = existing.CreatedAt
	s.requests[req.ID] = req
	return req, nil
}

func (s *Store) DeleteRequest(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.requests, id)
	return nil
}

// --- AppointmentStore -------------------------------------------------------

func (s *Store) CreateAppointment(ctx context.Context, a appointment.Appointment) (appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[a.ServiceID]; !ok {
		return appointment.Appointment{}, storage.ErrNotFound
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.appointments[a.ID] = a
	return a, nil
}

func (s *Store) ListAppointments(ctx context.Context, userID string) ([]appointment.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]appointment.Appointment, 0)
	for _, a := range s.appointments {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) GetAppointment(ctx context.Context, userID, id string) (appointment.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.appointments[id]
	if !ok || a.UserID != userID {
		return appointment.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) DeleteAppointment(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok || a.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.appointments, id)
	return nil
}

// --- InstrumentStore --------------------------------------------------------

func (s *Store) CreateInstrument(ctx context.Context, inst instrument.Instrument) (instrument.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instruments[inst.UserID]; ok {
		return instrument.Instrument{}, storage.ErrDuplicate
	}
	if inst.Kind == instrument.KindBankAccount {
		for _, existing := range s.instruments {
			if existing.IBAN != "" && existing.IBAN == inst.IBAN {
				return instrument.Instrument{}, storage.ErrDuplicate
			}
		}
	}
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now().UTC()
	}
	s.instruments[inst.UserID] = inst
	return inst, nil
}

func (s *Store) GetInstrument(ctx context.Context, userID string) (instrument.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instruments[userID]
	if !ok {
		return instrument.Instrument{}, storage.ErrNotFound
	}
	return inst, nil
}

func (s *Store) UpdateInstrument(ctx context.Context, inst instrument.Instrument) (instrument.Instrument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.instruments[inst.UserID]
	if !ok {
		return instrument.Instrument{}, storage.ErrNotFound
	}
	inst.ID = existing.ID
	inst.CreatedAt = existing.CreatedAt
	s.instruments[inst.UserID] = inst
	return inst, nil
}

func (s *Store) DeleteInstrument(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotent: deleting an absent instrument is a success.
	delete(s.instruments, userID)
	return nil
}

// --- FineStore --------------------------------------------------------------

func (s *Store) CreateFine(ctx context.Context, f fine.TrafficFine) (fine.TrafficFine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.fines {
		if existing.FineNumber == f.FineNumber {
			return fine.TrafficFine{}, storage.ErrDuplicate
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	if f.Status == "" {
		f.Status = fine.StatusPending
	}
	s.fines[f.ID] = f
	return f, nil
}

func (s *Store) ListUnpaidFines(ctx context.Context, userID string) ([]fine.TrafficFine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listUnpaidLocked(userID), nil
}

func (s *Store) listUnpaidLocked(userID string) []fine.TrafficFine {
	result := make([]fine.TrafficFine, 0)
	for _, f := range s.fines {
		if f.UserID == userID && f.Status == fine.StatusPending {
			result = append(result, f)
		}
	}
	sortFines(result)
	return result
}

func (s *Store) ListOverdueFines(ctx context.Context, asOf time.Time) ([]fine.TrafficFine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]fine.TrafficFine, 0)
	for _, f := range s.fines {
		if f.Status == fine.StatusPending && f.DueDate != nil && f.DueDate.Before(asOf) {
			result = append(result, f)
		}
	}
	sortFines(result)
	return result, nil
}

// PayFines marks the resolved unpaid set PAID and appends one ledger entry per
// fine, all under the store lock so concurrent batches cannot pay the same
// fine twice.
func (s *Store) PayFines(ctx context.Context, userID string, fineIDs []string, all bool) ([]fine.TrafficFine, []request.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[string]bool, len(fineIDs))
	for _, id := range fineIDs {
		wanted[id] = true
	}

	var targets []fine.TrafficFine
	for _, f := range s.fines {
		if f.UserID != userID || f.Status != fine.StatusPending {
			continue
		}
		if all || wanted[f.ID] {
			targets = append(targets, f)
		}
	}
	if len(targets) == 0 {
		return nil, nil, nil
	}
	sortFines(targets)

	now := time.Now().UTC()
	paid := make([]fine.TrafficFine, 0, len(targets))
	entries := make([]request.ServiceRequest, 0, len(targets))
	for _, f := range targets {
		f.Status = fine.StatusPaid
		f.UpdatedAt = now
		s.fines[f.ID] = f
		paid = append(paid, f)

		entry := s.createRequestLocked(request.ServiceRequest{
			UserID: userID,
			Status: request.StatusApproved,
			IsPaid: true,
			Payload: map[string]interface{}{
				"fine_number":    f.FineNumber,
				"amount":         f.Amount,
				"violation_type": f.ViolationType,
			},
			CreatedAt: now,
		})
		entries = append(entries, entry)
	}
	return paid, entries, nil
}

func sortFines(fines []fine.TrafficFine) {
	sort.Slice(fines, func(i, j int) bool {
		ti, tj := fineIssuedAt(fines[i]), fineIssuedAt(fines[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return fines[i].CreatedAt.After(fines[j].CreatedAt)
	})
}

func fineIssuedAt(f fine.TrafficFine) time.Time {
	if f.IssuedAt == nil {
		return time.Time{}
	}
	return *f.IssuedAt
}

// --- DocumentStore ----------------------------------------------------------

func (s *Store) CreateDocument(ctx context.Context, d document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	s.documents[d.ID] = d
	return d, nil
}

func (s *Store) ListDocuments(ctx context.Context, userID string) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]document.Document, 0)
	for _, d := range s.documents {
		if d.UserID == userID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteDocument(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.documents[id]
	if !ok || d.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.documents, id)
	return nil
}
