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

package records

import (
	"context"
	"strings"
	"sync"
	"time"
)

type key struct {
	qid    int64
	locale string
}

// MemStore is an in-memory Store used by tests.
type MemStore struct {
	mtx    sync.Mutex
	nextID int64
	byKey  map[key]*Record
}

func NewMemStore() *MemStore {
	return &MemStore{byKey: make(map[key]*Record)}
}

func (s *MemStore) Upsert(_ context.Context, r Record) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	k := key{r.QID, r.Locale}
	now := time.Now()
	if existing, ok := s.byKey[k]; ok {
		r.RID = existing.RID
		r.CreatedAt = existing.CreatedAt
		r.UpdatedAt = now
		s.byKey[k] = &r
		return r.RID, nil
	}
	s.nextID++
	r.RID = s.nextID
	r.CreatedAt = now
	r.UpdatedAt = now
	s.byKey[k] = &r
	return r.RID, nil
}

func (s *MemStore) UpdateImagesCount(_ context.Context, qID int64, locale string, n int) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	r, ok := s.byKey[key{qID, locale}]
	if !ok {
		return nil
	}
	r.ImageCount = n
	r.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) Get(_ context.Context, qID int64, locale string) (Record, bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	r, ok := s.byKey[key{qID, locale}]
	if !ok {
		return Record{}, false, nil
	}
	return *r, true, nil
}

func (s *MemStore) CountForListing(_ context.Context, qID int64) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	n := 0
	for k := range s.byKey {
		if k.qid == qID {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) Search(_ context.Context, nameQuery string, limit int) ([]Record, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	q := strings.ToLower(nameQuery)
	var out []Record
	for _, r := range s.byKey {
		if r.Name != nil && strings.Contains(strings.ToLower(*r.Name), q) {
			out = append(out, *r)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
