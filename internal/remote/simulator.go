// Package remote simulates the backend the employee store talks to.
//
// Fetch really reads data, from an HTTP endpoint, a local file or the
// dataset compiled into the binary. Create, Update and Delete accept any
// input, wait a short delay and then fail at a small fixed rate, which
// keeps the callers' failure paths exercised.
package remote

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/staffdir/internal/core"
	"github.com/JonMunkholm/staffdir/internal/logging"
)

//go:embed seed/employees.json
var seedData []byte

// SeedJSON returns the built-in dataset.
func SeedJSON() []byte {
	return bytes.Clone(seedData)
}

// EmbeddedPrefix marks a locator that resolves to the built-in dataset.
const EmbeddedPrefix = "embedded:"

// DefaultFailureRate is the chance that a mutation call fails.
const DefaultFailureRate = 0.005

var (
	ErrCreateFailed = errors.New("remote: failed to create data on server")
	ErrUpdateFailed = errors.New("remote: failed to update data on server")
	ErrDeleteFailed = errors.New("remote: failed to delete data on server")
)

// HTTPStatusError is returned by Fetch for a non-2xx response.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("remote: http status %d fetching %s", e.StatusCode, e.URL)
}

// Options configures a Simulator.
type Options struct {
	FailureRate float64
	Delay       time.Duration

	// Seed fixes the failure sequence. Zero picks a random seed.
	Seed uint64

	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
}

// Simulator implements core.RemoteAPI.
type Simulator struct {
	client      *http.Client
	failureRate float64
	delay       time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

var _ core.RemoteAPI = (*Simulator)(nil)

func NewSimulator(opts Options) *Simulator {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Simulator{
		client:      client,
		failureRate: opts.FailureRate,
		delay:       opts.Delay,
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Fetch loads the dataset at locator: an http(s) URL, "embedded:" (or
// empty) for the built-in data, or a file path.
func (s *Simulator) Fetch(ctx context.Context, locator string) ([]core.Employee, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case locator == "" || strings.HasPrefix(locator, EmbeddedPrefix):
		data = seedData
	case strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://"):
		data, err = s.get(ctx, locator)
	default:
		data, err = os.ReadFile(locator)
		if err != nil {
			err = fmt.Errorf("remote: read %s: %w", locator, err)
		}
	}
	if err != nil {
		return nil, err
	}

	var list []core.Employee
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("remote: decode %s: %w", locator, err)
	}
	if list == nil {
		list = []core.Employee{}
	}
	logging.FromContext(ctx).Debug("remote fetch", "locator", locator, "count", len(list))
	return list, nil
}

func (s *Simulator) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote: read %s: %w", url, err)
	}
	return data, nil
}

func (s *Simulator) Create(ctx context.Context, e core.Employee) (core.Employee, error) {
	if err := s.roundTrip(ctx, ErrCreateFailed); err != nil {
		return core.Employee{}, err
	}
	return e, nil
}

func (s *Simulator) Update(ctx context.Context, e core.Employee) (core.Employee, error) {
	if err := s.roundTrip(ctx, ErrUpdateFailed); err != nil {
		return core.Employee{}, err
	}
	return e, nil
}

func (s *Simulator) Delete(ctx context.Context, _ core.ID) error {
	return s.roundTrip(ctx, ErrDeleteFailed)
}

// roundTrip waits out the delay, then fails with probability failureRate.
func (s *Simulator) roundTrip(ctx context.Context, failure error) error {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	if roll < s.failureRate {
		return failure
	}
	return nil
}
