package core

// store.go owns the live employee collection and its write-through
// persistence.
//
// Every successful mutation rewrites the whole collection into one slot.
// Remote calls run without holding the lock; the local update that follows
// is applied under it, so overlapping mutations resolve last-write-wins.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/JonMunkholm/staffdir/internal/logging"
	"github.com/JonMunkholm/staffdir/internal/slot"
)

// DefaultSlotKey is the slot holding the serialized collection.
const DefaultSlotKey = "employees"

var (
	// ErrLoadFailed means neither the slot nor the remote produced data.
	ErrLoadFailed = errors.New("load failed")

	// ErrCorruptSlot means the slot holds bytes that are not an employee list.
	ErrCorruptSlot = errors.New("stored employee data is corrupt")

	// ErrSaveFailed means the slot rejected a write.
	ErrSaveFailed = errors.New("save failed")

	// ErrEmployeeNotFound is returned by Get for an unknown id.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrCodeTaken means another record already holds the code.
	ErrCodeTaken = errors.New("employee code already exists")
)

// RemoteAPI is the backend the store defers to before mutating.
type RemoteAPI interface {
	// Fetch returns the default dataset from locator.
	Fetch(ctx context.Context, locator string) ([]Employee, error)
	Create(ctx context.Context, e Employee) (Employee, error)
	Update(ctx context.Context, e Employee) (Employee, error)
	Delete(ctx context.Context, id ID) error
}

// Result is the outcome of a mutation. Failures never escape as errors;
// Err only explains why Success is false.
type Result struct {
	Success bool  `json:"success"`
	ID      ID    `json:"id,omitempty"`
	Err     error `json:"-"`
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// SlotKey defaults to DefaultSlotKey.
	SlotKey string

	// SeedLocator is passed to RemoteAPI.Fetch when the slot is empty.
	SeedLocator string
}

// Store is the single owner of the employee collection.
type Store struct {
	slot slot.Slot
	api  RemoteAPI
	key  string
	seed string

	mu        sync.RWMutex
	employees []Employee
}

// NewStore returns an empty store. Call Load before serving reads.
func NewStore(s slot.Slot, api RemoteAPI, opts StoreOptions) *Store {
	key := opts.SlotKey
	if key == "" {
		key = DefaultSlotKey
	}
	return &Store{
		slot:      s,
		api:       api,
		key:       key,
		seed:      opts.SeedLocator,
		employees: []Employee{},
	}
}

// Employees returns a copy of the collection in stored order.
func (s *Store) Employees() []Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.employees)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.employees)
}

// Get returns the record with id.
func (s *Store) Get(id ID) (Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.employees, id); i >= 0 {
		return s.employees[i], nil
	}
	return Employee{}, fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
}

// Load fills the collection from the slot, or from the remote seed when the
// slot has never been written. On failure the collection is left empty and
// a wrapped ErrLoadFailed or ErrCorruptSlot is returned. A corrupt slot is
// not overwritten.
func (s *Store) Load(ctx context.Context) error {
	logger := logging.WithFields(ctx, "slot", s.key)

	data, err := s.slot.Get(ctx, s.key)
	switch {
	case err == nil:
		var list []Employee
		if err := json.Unmarshal(data, &list); err != nil {
			s.replace(nil)
			logger.Error("stored employees are corrupt", "error", err)
			return fmt.Errorf("%w: %v", ErrCorruptSlot, err)
		}
		s.replace(list)
		logger.Info("employees loaded from slot", "count", len(list))
		return nil

	case errors.Is(err, slot.ErrNotFound):
		// First run: fall through to the remote seed.

	default:
		s.replace(nil)
		logger.Error("slot read failed", "error", err)
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	list, err := s.api.Fetch(ctx, s.seed)
	if err != nil {
		s.replace(nil)
		logger.Error("seed fetch failed", "locator", s.seed, "error", err)
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees = nonNil(list)
	if err := s.persistLocked(ctx); err != nil {
		s.employees = []Employee{}
		logger.Error("persisting seed failed", "error", err)
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	logger.Info("employees seeded from remote", "count", len(list), "locator", s.seed)
	return nil
}

// Save writes the current collection to the slot.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

// CreateOrUpdate replaces the record with e.ID, or inserts e at the front
// when the id is new. An empty id is assigned before the remote call.
//
// Code uniqueness is checked again under the write lock, since another save
// may have taken the code while the remote call was in flight.
func (s *Store) CreateOrUpdate(ctx context.Context, e Employee) Result {
	if e.ID == "" {
		e.ID = newID()
	}
	logger := logging.WithFields(ctx, "employee_id", e.ID, "code", e.Code)

	s.mu.RLock()
	exists := indexOf(s.employees, e.ID) >= 0
	taken := CodeTaken(s.employees, e.Code, e.ID)
	s.mu.RUnlock()
	if taken {
		logger.Warn("save rejected, code taken")
		return Result{Err: ErrCodeTaken}
	}

	var err error
	if exists {
		_, err = s.api.Update(ctx, e)
	} else {
		_, err = s.api.Create(ctx, e)
	}
	if err != nil {
		logger.Warn("remote rejected save", "update", exists, "error", err)
		return Result{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if CodeTaken(s.employees, e.Code, e.ID) {
		logger.Warn("save rejected, code taken during remote call")
		return Result{Err: ErrCodeTaken}
	}

	prev := slices.Clone(s.employees)
	if i := indexOf(s.employees, e.ID); i >= 0 {
		s.employees[i] = e
	} else {
		s.employees = slices.Insert(s.employees, 0, e)
	}
	if err := s.persistLocked(ctx); err != nil {
		s.employees = prev
		logger.Error("persisting save failed", "error", err)
		return Result{Err: err}
	}

	logger.Info("employee saved", "update", exists)
	return Result{Success: true, ID: e.ID}
}

// Delete removes the record with id. Deleting an unknown id succeeds
// without calling the remote or touching the slot.
func (s *Store) Delete(ctx context.Context, id ID) Result {
	logger := logging.WithFields(ctx, "employee_id", id)

	s.mu.RLock()
	known := indexOf(s.employees, id) >= 0
	s.mu.RUnlock()
	if !known {
		logger.Debug("delete of unknown id, nothing to do")
		return Result{Success: true, ID: id}
	}

	if err := s.api.Delete(ctx, id); err != nil {
		logger.Warn("remote rejected delete", "error", err)
		return Result{Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.employees
	s.employees = slices.DeleteFunc(slices.Clone(s.employees), func(e Employee) bool {
		return e.ID == id
	})
	if err := s.persistLocked(ctx); err != nil {
		s.employees = prev
		logger.Error("persisting delete failed", "error", err)
		return Result{Err: err}
	}

	logger.Info("employee deleted", "removed", len(prev)-len(s.employees))
	return Result{Success: true, ID: id}
}

// Append adds imported candidates at the end of the collection and
// persists once. Candidates whose code is already taken, by the live
// collection or an earlier candidate, are skipped and their codes returned.
func (s *Store) Append(ctx context.Context, candidates []Employee) (added int, skipped []string, err error) {
	if len(candidates) == 0 {
		return 0, nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.employees
	next := slices.Clone(s.employees)
	for _, c := range candidates {
		if CodeTaken(next, c.Code, "") {
			skipped = append(skipped, c.Code)
			continue
		}
		if c.ID == "" || indexOf(next, c.ID) >= 0 {
			c.ID = newID()
		}
		next = append(next, c)
		added++
	}
	if added == 0 {
		return 0, skipped, nil
	}

	s.employees = next
	if err := s.persistLocked(ctx); err != nil {
		s.employees = prev
		return 0, nil, err
	}

	logging.FromContext(ctx).Info("employees imported", "added", added, "skipped", len(skipped))
	return added, skipped, nil
}

// Reset empties the collection and persists the empty list.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.employees
	s.employees = []Employee{}
	if err := s.persistLocked(ctx); err != nil {
		s.employees = prev
		return err
	}
	logging.FromContext(ctx).Warn("employee collection reset", "removed", len(prev))
	return nil
}

func (s *Store) replace(list []Employee) {
	s.mu.Lock()
	s.employees = nonNil(list)
	s.mu.Unlock()
}

// persistLocked serializes the collection. Callers hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.employees)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrSaveFailed, err)
	}
	if err := s.slot.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

func nonNil(list []Employee) []Employee {
	if list == nil {
		return []Employee{}
	}
	return list
}
