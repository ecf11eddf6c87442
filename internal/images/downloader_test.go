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

package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodeTestPNGWithAlpha(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newImageServer(t *testing.T, byPath map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := byPath[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
}

func TestDownloadSkipsBelowMinimumDimensions(t *testing.T) {
	dir := t.TempDir()
	tiny := encodeTestJPEG(t, 10, 10)
	srv := newImageServer(t, map[string][]byte{"/tiny.jpg": tiny})
	defer srv.Close()

	d := New(dir, srv.Client(), nil)
	results, stats, err := d.Download(context.Background(), 1, []string{srv.URL + "/tiny.jpg"}, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Success)
}

func TestDownloadSavesJPEGAndResizes(t *testing.T) {
	dir := t.TempDir()
	big := encodeTestJPEG(t, 3000, 2000)
	srv := newImageServer(t, map[string][]byte{"/big.jpg": big})
	defer srv.Close()

	d := New(dir, srv.Client(), nil)
	results, stats, err := d.Download(context.Background(), 42, []string{srv.URL + "/big.jpg"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Success)
	require.Len(t, results, 1)

	res := results[0]
	assert.LessOrEqual(t, res.Width, DefaultMaxWidth)
	assert.LessOrEqual(t, res.Height, DefaultMaxHeight)
	assert.Equal(t, "jpg", res.Format)
	assert.True(t, strings.Contains(res.Filename, "img_0000_"))

	expectedDir := filepath.Join(dir, "hotel_42", "en")
	_, statErr := os.Stat(filepath.Join(expectedDir, res.Filename))
	assert.NoError(t, statErr)
}

func TestDownloadPreservesPNGTransparency(t *testing.T) {
	dir := t.TempDir()
	pngBody := encodeTestPNGWithAlpha(t, 400, 300)
	srv := newImageServer(t, map[string][]byte{"/alpha.png": pngBody})
	defer srv.Close()

	d := New(dir, srv.Client(), nil)
	results, _, err := d.Download(context.Background(), 7, []string{srv.URL + "/alpha.png"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "png", results[0].Format)
}

func TestDownloadDedupesSameURLAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	body := encodeTestJPEG(t, 400, 300)
	srv := newImageServer(t, map[string][]byte{"/x.jpg": body})
	defer srv.Close()

	d := New(dir, srv.Client(), nil)
	url := srv.URL + "/x.jpg"

	first, stats1, err := d.Download(context.Background(), 9, []string{url}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, stats1.Success)
	require.Len(t, first, 1)

	_, stats2, err := d.Download(context.Background(), 9, []string{url}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats2.Success)
	assert.Equal(t, 1, stats2.Failed)
}

func TestDownloadRoomSubdirectory(t *testing.T) {
	dir := t.TempDir()
	body := encodeTestJPEG(t, 400, 300)
	srv := newImageServer(t, map[string][]byte{"/r.jpg": body})
	defer srv.Close()

	roomID := int64(5)
	d := New(dir, srv.Client(), nil)
	results, _, err := d.Download(context.Background(), 1, []string{srv.URL + "/r.jpg"}, &roomID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].LocalPath, filepath.Join("hotel_1", "en", "room_5"))
}

func TestDownloadEmptyURLListReturnsNoOp(t *testing.T) {
	d := New(t.TempDir(), http.DefaultClient, nil)
	results, stats, err := d.Download(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, stats.Total)
}
