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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimPendingSelectsAtMostNAndFlipsStatus(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	for i := 0; i < 5; i++ {
		_, err := s.Insert(ctx, "https://catalog/hotel/"+string(rune('a'+i))+".html", 0, 3)
		require.NoError(t, err)
	}

	ids, err := s.ClaimPending(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	for _, id := range ids {
		l, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusProcessing, l.Status)
	}
}

func TestClaimPendingOrdersByPriorityThenAge(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	low, _ := s.Insert(ctx, "https://catalog/a.html", 0, 3)
	high, _ := s.Insert(ctx, "https://catalog/b.html", 10, 3)

	ids, err := s.ClaimPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, high, ids[0])
	assert.Equal(t, low, ids[1])
}

func TestInsertIsIdempotentOnURL(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	id1, err := s.Insert(ctx, "https://catalog/hotel/x.html", 0, 3)
	require.NoError(t, err)
	id2, err := s.Insert(ctx, "https://catalog/hotel/x.html", 5, 3)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestSetRetryableFailureReopensUnderCap(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	id, _ := s.Insert(ctx, "https://catalog/hotel/x.html", 0, 2)
	_, err := s.ClaimPending(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, s.SetRetryableFailure(ctx, id, "404"))
	l, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, l.Status)
	assert.Equal(t, 1, l.RetryCount)

	require.NoError(t, s.SetRetryableFailure(ctx, id, "404"))
	l, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, l.Status)
	assert.Equal(t, 2, l.RetryCount)
}

func TestSetTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	id, _ := s.Insert(ctx, "https://catalog/hotel/x.html", 0, 2)

	require.NoError(t, s.SetTerminal(ctx, id, StatusCompleted, ""))
	l, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, l.Status)
	assert.Nil(t, l.LastError)
}

func TestResetFailedReopensAndClearsRetryCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	id, _ := s.Insert(ctx, "https://catalog/hotel/x.html", 0, 1)

	require.NoError(t, s.SetRetryableFailure(ctx, id, "403"))
	l, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, l.Status)

	require.NoError(t, s.ResetFailed(ctx, id))
	l, err = s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, l.Status)
	assert.Equal(t, 0, l.RetryCount)
	assert.Nil(t, l.LastError)
}

func TestResetFailedIsNoopWhenNotFailed(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	id, _ := s.Insert(ctx, "https://catalog/hotel/x.html", 0, 2)

	require.NoError(t, s.ResetFailed(ctx, id))
	l, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, l.Status)
}
