package subscriptions

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/nutriflow-backend/pkg/db/models"
	"github.com/angelmondragon/nutriflow-backend/pkg/types"
)

// memStore backs every repository the service needs with plain maps.
type memStore struct {
	patients   map[uuid.UUID]*models.Patient
	history    map[uuid.UUID]*models.SubscriptionHistoryEntry
	pauses     map[uuid.UUID]*models.SubscriptionPause
	extensions map[uuid.UUID]*models.SubscriptionExtension
	types      map[uuid.UUID]*models.SubscriptionType
	rates      map[uuid.UUID]*models.PaymentRate
	payments   map[uuid.UUID]*models.Payment

	failSnapshot error
	failDays     map[uuid.UUID]error
	seq          int
}

func newMemStore() *memStore {
	return &memStore{
		patients:   map[uuid.UUID]*models.Patient{},
		history:    map[uuid.UUID]*models.SubscriptionHistoryEntry{},
		pauses:     map[uuid.UUID]*models.SubscriptionPause{},
		extensions: map[uuid.UUID]*models.SubscriptionExtension{},
		types:      map[uuid.UUID]*models.SubscriptionType{},
		rates:      map[uuid.UUID]*models.PaymentRate{},
		payments:   map[uuid.UUID]*models.Payment{},
		failDays:   map[uuid.UUID]error{},
	}
}

func (m *memStore) stamp() time.Time {
	m.seq++
	return time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
}

func (m *memStore) addPatient(p models.Patient) *models.Patient {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = &p
	return &p
}

// subscriptions.Repository

func (m *memStore) WithTx(*gorm.DB) Repository { return m }

func (m *memStore) ListHistory(_ context.Context, patientID uuid.UUID) ([]models.SubscriptionHistoryEntry, error) {
	var out []models.SubscriptionHistoryEntry
	for _, e := range m.history {
		if e.PatientID == patientID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (m *memStore) FindHistoryEntry(_ context.Context, id uuid.UUID) (*models.SubscriptionHistoryEntry, error) {
	e, ok := m.history[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) CreateHistoryEntry(_ context.Context, entry *models.SubscriptionHistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = m.stamp()
	cp := *entry
	m.history[entry.ID] = &cp
	return nil
}

func (m *memStore) UpdateHistoryEntry(_ context.Context, entry *models.SubscriptionHistoryEntry) error {
	cp := *entry
	m.history[entry.ID] = &cp
	return nil
}

func (m *memStore) UpdateHistoryEndDate(_ context.Context, id uuid.UUID, end types.Date) error {
	e, ok := m.history[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.EndDate = end
	return nil
}

func (m *memStore) DeleteHistoryEntry(_ context.Context, id uuid.UUID) error {
	if _, ok := m.history[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.history, id)
	return nil
}

func (m *memStore) ListPauses(_ context.Context, patientID uuid.UUID) ([]models.SubscriptionPause, error) {
	var out []models.SubscriptionPause
	for _, p := range m.pauses {
		if p.PatientID == patientID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memStore) FindPause(_ context.Context, id uuid.UUID) (*models.SubscriptionPause, error) {
	p, ok := m.pauses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) FindOpenPause(_ context.Context, patientID uuid.UUID) (*models.SubscriptionPause, error) {
	for _, p := range m.pauses {
		if p.PatientID == patientID && p.IsOpen() {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreatePause(_ context.Context, pause *models.SubscriptionPause) error {
	if pause.ID == uuid.Nil {
		pause.ID = uuid.New()
	}
	cp := *pause
	m.pauses[pause.ID] = &cp
	return nil
}

func (m *memStore) UpdatePause(_ context.Context, pause *models.SubscriptionPause) error {
	cp := *pause
	m.pauses[pause.ID] = &cp
	return nil
}

func (m *memStore) DeletePause(_ context.Context, id uuid.UUID) error {
	if _, ok := m.pauses[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.pauses, id)
	return nil
}

func (m *memStore) ListExtensions(_ context.Context, patientID uuid.UUID) ([]models.SubscriptionExtension, error) {
	var out []models.SubscriptionExtension
	for _, e := range m.extensions {
		if e.PatientID == patientID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memStore) FindExtension(_ context.Context, id uuid.UUID) (*models.SubscriptionExtension, error) {
	e, ok := m.extensions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) CreateExtension(_ context.Context, ext *models.SubscriptionExtension) error {
	if ext.ID == uuid.Nil {
		ext.ID = uuid.New()
	}
	cp := *ext
	m.extensions[ext.ID] = &cp
	return nil
}

func (m *memStore) UpdateExtension(_ context.Context, ext *models.SubscriptionExtension) error {
	cp := *ext
	m.extensions[ext.ID] = &cp
	return nil
}

func (m *memStore) DeleteExtension(_ context.Context, id uuid.UUID) error {
	if _, ok := m.extensions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.extensions, id)
	return nil
}

func (m *memStore) DeleteExtensionsByPatient(_ context.Context, patientID uuid.UUID) (int64, error) {
	var n int64
	for id, e := range m.extensions {
		if e.PatientID == patientID {
			delete(m.extensions, id)
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteAllForPatient(context.Context, uuid.UUID) error {
	return errors.New("not used")
}

// patientRepository

type memPatients struct{ *memStore }

func (m memPatients) FindByIDWithTx(_ *gorm.DB, id uuid.UUID) (*models.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m memPatients) UpdateSnapshotWithTx(_ *gorm.DB, patient *models.Patient) error {
	if m.failSnapshot != nil {
		return m.failSnapshot
	}
	cp := *patient
	m.patients[patient.ID] = &cp
	return nil
}

func (m memPatients) ListBySubscriptionEnd(_ context.Context, from, to types.Date, afterID uuid.UUID, limit int) ([]models.Patient, error) {
	var out []models.Patient
	for _, p := range m.patients {
		if p.SubscriptionEnd.IsZero() {
			continue
		}
		if !from.IsZero() && p.SubscriptionEnd.Before(from) {
			continue
		}
		if !to.IsZero() && p.SubscriptionEnd.After(to) {
			continue
		}
		if afterID != uuid.Nil && p.ID.String() <= afterID.String() {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m memPatients) UpdateDaysRemaining(_ context.Context, id uuid.UUID, days *int) error {
	if err := m.failDays[id]; err != nil {
		return err
	}
	p, ok := m.patients[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.DaysRemaining = days
	return nil
}

// catalogRepository + paymentRepository

type memBilling struct{ *memStore }

func (m memBilling) FindSubscriptionType(_ context.Context, id uuid.UUID) (*models.SubscriptionType, error) {
	t, ok := m.types[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (m memBilling) FindPaymentRate(_ context.Context, id uuid.UUID) (*models.PaymentRate, error) {
	r, ok := m.rates[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (m memBilling) DetachSubscriptionWithTx(_ *gorm.DB, subscriptionID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range m.payments {
		if p.SubscriptionID != nil && *p.SubscriptionID == subscriptionID {
			p.SubscriptionID = nil
			n++
		}
	}
	return n, nil
}

type stubTxRunner struct {
	calls int
}

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	return fn(nil)
}
