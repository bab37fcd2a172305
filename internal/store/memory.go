package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/loanguard/loanguard/internal/models"
)

// MemoryStore is an in-memory implementation of Store. It backs the CLI's
// single-document flows and tests; profiles do not survive process exit.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*models.LoanProfile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*models.LoanProfile),
	}
}

// Put inserts or replaces a profile.
func (m *MemoryStore) Put(_ context.Context, profile *models.LoanProfile) error {
	if profile == nil || profile.LoanID == "" {
		return fmt.Errorf("store: profile must have a loan ID")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.LoanID] = cloneProfile(profile)
	return nil
}

// Get retrieves a profile by loan ID.
func (m *MemoryStore) Get(_ context.Context, loanID string) (*models.LoanProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[loanID]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
	}
	return cloneProfile(p), nil
}

// List returns all profiles ordered by loan ID.
func (m *MemoryStore) List(_ context.Context) ([]*models.LoanProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.LoanProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, cloneProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoanID < out[j].LoanID })
	return out, nil
}

// Delete removes a profile by loan ID.
func (m *MemoryStore) Delete(_ context.Context, loanID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[loanID]; !ok {
		return fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
	}
	delete(m.profiles, loanID)
	return nil
}

// UpdateStatus sets one requirement's compliance status.
func (m *MemoryStore) UpdateStatus(_ context.Context, loanID, reqID string, status models.Status, notes string) (*models.Requirement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[loanID]
	if !ok {
		return nil, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
	}
	for i := range p.Requirements {
		if p.Requirements[i].ID != reqID {
			continue
		}
		if err := p.Requirements[i].SetStatus(status, notes, time.Now().UTC()); err != nil {
			return nil, err
		}
		updated := cloneRequirement(p.Requirements[i])
		return &updated, nil
	}
	return nil, fmt.Errorf("%w: requirement %s in loan %s", ErrNotFound, reqID, loanID)
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close(_ context.Context) error { return nil }

// cloneProfile deep-copies a profile so callers cannot mutate stored data.
func cloneProfile(p *models.LoanProfile) *models.LoanProfile {
	cp := *p
	cp.Requirements = make([]models.Requirement, len(p.Requirements))
	for i := range p.Requirements {
		cp.Requirements[i] = cloneRequirement(p.Requirements[i])
	}
	return &cp
}

func cloneRequirement(r models.Requirement) models.Requirement {
	cr := r
	if r.Deadline != nil {
		d := *r.Deadline
		if r.Deadline.Rule.SpecificDate != nil {
			t := *r.Deadline.Rule.SpecificDate
			d.Rule.SpecificDate = &t
		}
		cr.Deadline = &d
	}
	if r.Threshold != nil {
		t := *r.Threshold
		cr.Threshold = &t
	}
	if r.LastChecked != nil {
		t := *r.LastChecked
		cr.LastChecked = &t
	}
	return cr
}
