// Package memory is an in-process implementation of the persistence ports.
// Safe for concurrent access. Used for local development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"crm_pipeline/internal/domain/entities"
	"crm_pipeline/internal/usecase/interfaces"
)

var ErrAlreadyExists = errors.New("memory: item already exists")

// Store holds every collection behind one lock, like a single document database.
type Store struct {
	mu sync.RWMutex

	jobs       map[string]entities.Job
	activities map[string]entities.Activity
	customers  map[string]entities.Customer
	users      map[string]entities.User
	payments   map[string]entities.Payment
}

func New() *Store {
	return &Store{
		jobs:       make(map[string]entities.Job),
		activities: make(map[string]entities.Activity),
		customers:  make(map[string]entities.Customer),
		users:      make(map[string]entities.User),
		payments:   make(map[string]entities.Payment),
	}
}

func (s *Store) Jobs() *JobRepository             { return &JobRepository{s: s} }
func (s *Store) Activities() *ActivityRepository { return &ActivityRepository{s: s} }
func (s *Store) Customers() *CustomerRepository  { return &CustomerRepository{s: s} }
func (s *Store) Users() *UserDirectory           { return &UserDirectory{s: s} }
func (s *Store) Payments() *PaymentRepository    { return &PaymentRepository{s: s} }

// PutUser seeds the user directory.
func (s *Store) PutUser(u entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// ──────────────────────────────────────────────────
// Jobs
// ──────────────────────────────────────────────────

type JobRepository struct{ s *Store }

var _ interfaces.IJobRepository = (*JobRepository)(nil)

func (r *JobRepository) Create(_ context.Context, j entities.Job) (entities.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.jobs[j.ID]; exists {
		return entities.Job{}, fmt.Errorf("job %s: %w", j.ID, ErrAlreadyExists)
	}
	r.s.jobs[j.ID] = j.Clone()
	return j.Clone(), nil
}

func (r *JobRepository) GetByID(_ context.Context, id string) (entities.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return entities.Job{}, nil
	}
	return j.Clone(), nil
}

// Find returns matches ordered by creation time so results are stable.
func (r *JobRepository) Find(_ context.Context, filter interfaces.JobFilter) ([]entities.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entities.Job, 0, len(r.s.jobs))
	for _, j := range r.s.jobs {
		if filter.Matches(j) {
			out = append(out, j.Clone())
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out, nil
}

func (r *JobRepository) Save(_ context.Context, j entities.Job) (entities.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.jobs[j.ID] = j.Clone()
	return j.Clone(), nil
}

func (r *JobRepository) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.jobs, id)
	return nil
}

// ──────────────────────────────────────────────────
// Activities
// ──────────────────────────────────────────────────

type ActivityRepository struct{ s *Store }

var _ interfaces.IActivityRepository = (*ActivityRepository)(nil)

func (r *ActivityRepository) Create(_ context.Context, a entities.Activity) (entities.Activity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.activities[a.ID]; exists {
		return entities.Activity{}, fmt.Errorf("activity %s: %w", a.ID, ErrAlreadyExists)
	}
	r.s.activities[a.ID] = cloneActivity(a)
	return cloneActivity(a), nil
}

func (r *ActivityRepository) List(_ context.Context, filter interfaces.ActivityFilter) ([]entities.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entities.Activity, 0)
	for _, a := range r.s.activities {
		switch {
		case filter.JobID != "":
			if a.JobID != filter.JobID {
				continue
			}
		case filter.CustomerID != "":
			if a.CustomerID != filter.CustomerID {
				continue
			}
		default:
			continue
		}
		out = append(out, cloneActivity(a))
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID < out[k].ID
		}
		return out[i].CreatedAt.Before(out[k].CreatedAt)
	})
	return out, nil
}

func cloneActivity(a entities.Activity) entities.Activity {
	if a.Changes != nil {
		ch := make(map[string]entities.FieldChange, len(a.Changes))
		for k, v := range a.Changes {
			ch[k] = v
		}
		a.Changes = ch
	}
	return a
}

// ──────────────────────────────────────────────────
// Customers and users
// ──────────────────────────────────────────────────

type CustomerRepository struct{ s *Store }

var _ interfaces.ICustomerRepository = (*CustomerRepository)(nil)

func (r *CustomerRepository) Create(_ context.Context, c entities.Customer) (entities.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.customers[c.ID]; exists {
		return entities.Customer{}, fmt.Errorf("customer %s: %w", c.ID, ErrAlreadyExists)
	}
	r.s.customers[c.ID] = c
	return c, nil
}

func (r *CustomerRepository) GetByID(_ context.Context, id string) (entities.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.customers[id], nil
}

type UserDirectory struct{ s *Store }

var _ interfaces.IUserDirectory = (*UserDirectory)(nil)

func (d *UserDirectory) GetByID(_ context.Context, id string) (entities.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	return d.s.users[id], nil
}

// FindAnyActive returns the active user with the smallest id.
func (d *UserDirectory) FindAnyActive(_ context.Context) (entities.User, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	var found entities.User
	for _, u := range d.s.users {
		if !u.IsActive {
			continue
		}
		if found.ID == "" || u.ID < found.ID {
			found = u
		}
	}
	return found, nil
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

type PaymentRepository struct{ s *Store }

var _ interfaces.IPaymentRepository = (*PaymentRepository)(nil)

func (r *PaymentRepository) Create(_ context.Context, p entities.Payment) (entities.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.payments[p.ID]; exists {
		return entities.Payment{}, fmt.Errorf("payment %s: %w", p.ID, ErrAlreadyExists)
	}
	r.s.payments[p.ID] = p
	return p, nil
}

func (r *PaymentRepository) ListByJobID(_ context.Context, jobID string) ([]entities.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entities.Payment, 0)
	for _, p := range r.s.payments {
		if p.JobID == jobID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Date.Before(out[k].Date) })
	return out, nil
}
