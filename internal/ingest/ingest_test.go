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

package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralejo/listing-harvester/internal/queue"
)

func TestCanonicalizeStripsLocaleSuffix(t *testing.T) {
	assert.Equal(t, "https://www.booking.com/hotel/seaside.html",
		Canonicalize("https://www.booking.com/hotel/seaside.es.html"))
	assert.Equal(t, "https://www.booking.com/hotel/seaside.html",
		Canonicalize("https://www.booking.com/hotel/seaside.en-gb.html"))
}

func TestCanonicalizeLeavesBareURLAlone(t *testing.T) {
	assert.Equal(t, "https://www.booking.com/hotel/seaside.html",
		Canonicalize("https://www.booking.com/hotel/seaside.html"))
}

func TestIngestLinesSkipsBlankAndComment(t *testing.T) {
	q := queue.NewMemStore()
	in := &Ingester{Queue: q}
	ctx := context.Background()

	body := "https://www.booking.com/hotel/a.html\n\n# a comment\nhttps://www.booking.com/hotel/b.es.html\n"
	res, err := in.IngestLines(ctx, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
}

func TestIngestCSVUsesURLAndPriorityColumns(t *testing.T) {
	q := queue.NewMemStore()
	in := &Ingester{Queue: q}
	ctx := context.Background()

	body := "url,language,priority\n" +
		"https://www.booking.com/hotel/a.html,en,5\n" +
		"https://www.booking.com/hotel/b.es.html,es,\n"
	res, err := in.IngestCSV(ctx, strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	qID, err := q.Insert(ctx, "https://www.booking.com/hotel/a.html", 0, 3)
	require.NoError(t, err)
	listing, err := q.Get(ctx, qID)
	require.NoError(t, err)
	assert.Equal(t, 5, listing.Priority)
}

func TestIngestCSVRequiresURLColumn(t *testing.T) {
	q := queue.NewMemStore()
	in := &Ingester{Queue: q}
	ctx := context.Background()

	_, err := in.IngestCSV(ctx, strings.NewReader("language,priority\nen,1\n"))
	assert.Error(t, err)
}
