// Copyright 2026 The listing-harvester Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a qID has no matching row.
var ErrNotFound = errors.New("queue: listing not found")

// MemStore is an in-memory Store used by tests and the dry-run collaborator.
// It is safe for concurrent use.
type MemStore struct {
	mtx    sync.Mutex
	nextID int64
	rows   map[int64]*Listing
	urls   map[string]int64
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		rows: make(map[int64]*Listing),
		urls: make(map[string]int64),
	}
}

func (s *MemStore) Insert(_ context.Context, canonicalURL string, priority, maxRetries int) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if id, ok := s.urls[canonicalURL]; ok {
		return id, nil
	}
	s.nextID++
	id := s.nextID
	s.rows[id] = &Listing{
		QID:        id,
		URL:        canonicalURL,
		Status:     StatusPending,
		Priority:   priority,
		MaxRetries: maxRetries,
	}
	s.urls[canonicalURL] = id
	return id, nil
}

func (s *MemStore) ClaimPending(_ context.Context, n int) ([]int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var eligible []*Listing
	for _, l := range s.rows {
		if l.Eligible() {
			eligible = append(eligible, l)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority > eligible[j].Priority
		}
		return eligible[i].QID < eligible[j].QID
	})

	if n < len(eligible) {
		eligible = eligible[:n]
	}
	ids := make([]int64, 0, len(eligible))
	for _, l := range eligible {
		l.Status = StatusProcessing
		ids = append(ids, l.QID)
	}
	return ids, nil
}

func (s *MemStore) Get(_ context.Context, qID int64) (Listing, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	l, ok := s.rows[qID]
	if !ok {
		return Listing{}, ErrNotFound
	}
	return *l, nil
}

func (s *MemStore) SetTerminal(_ context.Context, qID int64, status Status, lastErr string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	l, ok := s.rows[qID]
	if !ok {
		return ErrNotFound
	}
	l.Status = status
	if lastErr != "" {
		l.LastError = &lastErr
	}
	return nil
}

func (s *MemStore) SetRetryableFailure(_ context.Context, qID int64, lastErr string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	l, ok := s.rows[qID]
	if !ok {
		return ErrNotFound
	}
	l.RetryCount++
	if lastErr != "" {
		l.LastError = &lastErr
	}
	if l.RetryCount < l.MaxRetries {
		l.Status = StatusPending
	} else {
		l.Status = StatusFailed
	}
	return nil
}

func (s *MemStore) ResetFailed(_ context.Context, qID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	l, ok := s.rows[qID]
	if !ok {
		return ErrNotFound
	}
	if l.Status != StatusFailed {
		return nil
	}
	l.Status = StatusPending
	l.RetryCount = 0
	l.LastError = nil
	return nil
}
