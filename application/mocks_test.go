package application

import (
	"context"
	"sync"

	"referral-intake/domain"
)

// mockRepo is an in-memory domain.ReferralRepository. Set the *Func fields to
// override individual calls.
type mockRepo struct {
	mu       sync.Mutex
	rows     []domain.Referral
	nextID   uint
	Inserted int
	Updates  int

	InsertFunc       func(ctx context.Context, ref *domain.Referral) error
	UpdateStatusFunc func(ctx context.Context, id uint, from, to domain.Status) error
}

func (m *mockRepo) Insert(ctx context.Context, ref *domain.Referral) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertFunc != nil {
		if err := m.InsertFunc(ctx, ref); err != nil {
			return err
		}
	}
	m.nextID++
	ref.ID = m.nextID
	m.rows = append(m.rows, *ref)
	m.Inserted++
	return nil
}

func (m *mockRepo) ListAll(context.Context) ([]domain.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Referral(nil), m.rows...), nil
}

func (m *mockRepo) Get(_ context.Context, id uint) (*domain.Referral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			r := r
			return &r, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepo) UpdateStatus(ctx context.Context, id uint, from, to domain.Status) error {
	if m.UpdateStatusFunc != nil {
		if err := m.UpdateStatusFunc(ctx, id, from, to); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID != id {
			continue
		}
		if m.rows[i].Status != from {
			return domain.ErrStatusConflict
		}
		m.rows[i].Status = to
		m.Updates++
		return nil
	}
	return domain.ErrNotFound
}

type mockStore struct {
	SaveFunc func(ctx context.Context, file domain.ResumeFile) (string, error)
	Saved    []string
}

func (m *mockStore) Save(ctx context.Context, file domain.ResumeFile) (string, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, file)
	}
	m.Saved = append(m.Saved, file.Filename)
	return "uploads/" + file.Filename, nil
}

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, file domain.ResumeFile) (string, error)
	Calls       int
}

func (m *mockExtractor) Extract(ctx context.Context, file domain.ResumeFile) (string, error) {
	m.Calls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, file)
	}
	return string(file.Data), nil
}

type mockScorer struct {
	Assessment domain.Assessment
	Calls      int
	LastInput  domain.ScoringInput
}

func (m *mockScorer) Score(_ context.Context, in domain.ScoringInput) domain.Assessment {
	m.Calls++
	m.LastInput = in
	return m.Assessment
}

type mockPublisher struct {
	Err    error
	Events []domain.ReferralEvent
}

func (m *mockPublisher) Publish(_ context.Context, ev domain.ReferralEvent) error {
	m.Events = append(m.Events, ev)
	return m.Err
}

type mockRecorder struct {
	Submissions   map[string]int
	StatusChanges map[domain.Status]int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{Submissions: map[string]int{}, StatusChanges: map[domain.Status]int{}}
}

func (m *mockRecorder) ObserveSubmission(outcome string) { m.Submissions[outcome]++ }

func (m *mockRecorder) ObserveStatusChange(to domain.Status) { m.StatusChanges[to]++ }
