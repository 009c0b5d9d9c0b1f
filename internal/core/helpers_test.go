package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fixedDates formats relative to 2024-06-15 10:00 UTC.
var fixedDates = DateFormatter{Clock: ClockFunc(func() time.Time {
	return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
})}

func emp(id, code, name, dept, occ string) Employee {
	return Employee{ID: ID(id), Code: code, FullName: name, Department: dept, Occupation: occ}
}

// staticSource serves a fixed collection to a Table.
type staticSource []Employee

func (s staticSource) Employees() []Employee { return s }

// fakeAPI is a deterministic RemoteAPI.
type fakeAPI struct {
	mu sync.Mutex

	seed     []Employee
	fetchErr error
	fail     bool

	// createDelay holds Create open, without the lock, so saves overlap.
	createDelay time.Duration

	fetches, creates, updates, deletes int
}

var errRemote = errors.New("remote: simulated failure")

func (f *fakeAPI) Fetch(context.Context, string) ([]Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]Employee(nil), f.seed...), nil
}

func (f *fakeAPI) Create(_ context.Context, e Employee) (Employee, error) {
	f.mu.Lock()
	delay := f.createDelay
	f.mu.Unlock()
	time.Sleep(delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.fail {
		return Employee{}, errRemote
	}
	return e, nil
}

func (f *fakeAPI) Update(_ context.Context, e Employee) (Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.fail {
		return Employee{}, errRemote
	}
	return e, nil
}

func (f *fakeAPI) Delete(context.Context, ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	if f.fail {
		return errRemote
	}
	return nil
}
