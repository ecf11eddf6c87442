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

package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corralejo/listing-harvester/internal/records"
)

func strp(s string) *string { return &s }

func TestWriteCSVIncludesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	recs := []records.Record{
		{QID: 1, Locale: "en", URL: "https://x/a.html", Name: strp("Seaside Grand Hotel")},
	}
	require.NoError(t, WriteCSV(&buf, recs))
	out := buf.String()
	assert.Contains(t, out, "q_id,locale,url,name")
	assert.Contains(t, out, "Seaside Grand Hotel")
}

func TestWriteJSONEncodesFieldNames(t *testing.T) {
	var buf bytes.Buffer
	recs := []records.Record{{QID: 42, Locale: "es"}}
	require.NoError(t, WriteJSON(&buf, recs))
	assert.Contains(t, buf.String(), `"QID": 42`)
}

func TestParseFormatDefaultsToCSV(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
}

func TestParseFormatRejectsUnknown(t *testing.T) {
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteDispatchesByFormat(t *testing.T) {
	r := records.NewMemStore()
	ctx := context.Background()
	_, err := r.Upsert(ctx, records.Record{QID: 1, Locale: "en", Name: strp("Seaside Grand Hotel")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(ctx, &buf, r, "Seaside", 10, FormatCSV))
	assert.Contains(t, buf.String(), "Seaside Grand Hotel")
}
