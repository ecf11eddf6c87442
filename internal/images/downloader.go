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

// Package images downloads and locally persists a listing's photo
// set. Every hotel's photos are locale-independent — only the text
// fields vary by locale — so the whole gallery is downloaded once and
// stored under a fixed "en" subdirectory regardless of which locale
// triggered the download (DESIGN.md, "Open Questions resolved").
package images

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// imagesLocale is the fixed subdirectory every listing's photos are
// stored under, independent of the record locale that triggered the
// download.
const imagesLocale = "en"

// Default tunables, overridable per Downloader instance.
const (
	DefaultMinWidth    = 200
	DefaultMinHeight   = 150
	DefaultMaxWidth    = 1920
	DefaultMaxHeight   = 1080
	DefaultQuality     = 85
	DefaultMaxWorkers  = 5
	downloadTimeoutSec = 30
)

// downloadUserAgent mirrors the reference downloader's hardcoded
// browser user agent, distinct from whatever user agent the fetcher
// used to load the listing page itself.
const downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Result describes one successfully downloaded and stored image.
type Result struct {
	URL       string
	LocalPath string
	Filename  string
	FileSize  int64
	Width     int
	Height    int
	Format    string
	HotelID   int64
	RoomID    *int64
}

// Stats tallies one Download call's outcome.
type Stats struct {
	Total   int
	Success int
	Failed  int
	Skipped int
}

// Downloader fetches, filters, resizes and stores a listing's photos.
type Downloader struct {
	BasePath   string
	Quality    int
	MaxWidth   int
	MaxHeight  int
	MinWidth   int
	MinHeight  int
	MaxWorkers int
	Client     *http.Client
	Logger     log.Logger
}

// New constructs a Downloader with the package defaults, using client
// as given for every HTTP GET. The Downloader adds no cookies of its
// own; cmd/scraper passes a plain pooled client with no cookie jar, so
// image requests do not carry the fetcher's session cookies.
func New(basePath string, client *http.Client, logger log.Logger) *Downloader {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Downloader{
		BasePath:   basePath,
		Quality:    DefaultQuality,
		MaxWidth:   DefaultMaxWidth,
		MaxHeight:  DefaultMaxHeight,
		MinWidth:   DefaultMinWidth,
		MinHeight:  DefaultMinHeight,
		MaxWorkers: DefaultMaxWorkers,
		Client:     client,
		Logger:     logger,
	}
}

// Download fetches every URL in imageURLs for hotelID concurrently
// (bounded by MaxWorkers), skipping URLs whose identifier (the first
// 12 hex digits of the MD5 of the URL) already has a file on disk,
// discarding anything smaller than
// MinWidth×MinHeight, resizing anything larger than
// MaxWidth×MaxHeight, and saving the rest under
// {BasePath}/hotel_{hotelID}/en/[room_{roomID}/]. Individual failures
// are logged and counted, never returned as an error — only a
// directory-creation failure aborts the whole call.
func (d *Downloader) Download(ctx context.Context, hotelID int64, imageURLs []string, roomID *int64) ([]Result, Stats, error) {
	stats := Stats{Total: len(imageURLs)}
	if len(imageURLs) == 0 {
		return nil, stats, nil
	}

	targetDir := filepath.Join(d.BasePath, fmt.Sprintf("hotel_%d", hotelID), imagesLocale)
	if roomID != nil {
		targetDir = filepath.Join(targetDir, fmt.Sprintf("room_%d", *roomID))
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, stats, errors.Wrapf(err, "creating image directory %s", targetDir)
	}

	workers := d.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}

	type outcome struct {
		res Result
		ok  bool
	}

	jobs := make(chan struct {
		idx int
		url string
	})
	results := make(chan outcome, len(imageURLs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := d.downloadSingle(ctx, job.url, targetDir, job.idx, hotelID, roomID)
				if err != nil {
					level.Debug(d.Logger).Log("msg", "image download skipped", "url", job.url, "err", err)
					results <- outcome{ok: false}
					continue
				}
				results <- outcome{res: res, ok: true}
			}
		}()
	}

	go func() {
		for idx, url := range imageURLs {
			jobs <- struct {
				idx int
				url string
			}{idx, url}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []Result
	for o := range results {
		if o.ok {
			out = append(out, o.res)
			stats.Success++
		} else {
			stats.Failed++
		}
	}

	level.Info(d.Logger).Log("msg", "image download complete", "hotel_id", hotelID,
		"success", stats.Success, "failed", stats.Failed, "total", stats.Total)
	return out, stats, nil
}

// downloadSingle fetches, decodes, filters, resizes and saves one
// image. A zero Result with a non-nil error means the image was
// skipped or failed — callers treat both the same way (count and move
// on), matching the reference downloader's return-None-on-any-failure
// shape.
func (d *Downloader) downloadSingle(ctx context.Context, url, saveDir string, index int, hotelID int64, roomID *int64) (Result, error) {
	hash := contentHash(url)
	if existing, _ := filepath.Glob(filepath.Join(saveDir, "*"+hash+"*")); len(existing) > 0 {
		return Result{}, errors.New("already downloaded")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, errors.Wrap(err, "building request")
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, errors.Wrap(err, "fetching image")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return Result{}, errors.Wrap(err, "reading image body")
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return Result{}, errors.Wrap(err, "decoding image")
	}

	bounds := img.Bounds()
	w0, h0 := bounds.Dx(), bounds.Dy()
	if w0 < d.MinWidth || h0 < d.MinHeight {
		return Result{}, errors.Errorf("below minimum dimensions %dx%d", w0, h0)
	}

	img = d.resize(img)
	ext := outputExtension(format)

	filename := fmt.Sprintf("img_%04d_%s.%s", index, hash, ext)
	filepathOut := filepath.Join(saveDir, filename)

	f, err := os.Create(filepathOut)
	if err != nil {
		return Result{}, errors.Wrap(err, "creating image file")
	}
	defer f.Close()

	if err := encodeImage(f, img, ext, d.quality()); err != nil {
		return Result{}, errors.Wrap(err, "encoding image")
	}

	info, err := f.Stat()
	if err != nil {
		return Result{}, errors.Wrap(err, "stat image file")
	}

	b := img.Bounds()
	return Result{
		URL:       url,
		LocalPath: filepathOut,
		Filename:  filename,
		FileSize:  info.Size(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Format:    ext,
		HotelID:   hotelID,
		RoomID:    roomID,
	}, nil
}

func (d *Downloader) quality() int {
	if d.Quality <= 0 {
		return DefaultQuality
	}
	return d.Quality
}

// resize shrinks img to fit within MaxWidth×MaxHeight using
// high-quality Catmull-Rom resampling, preserving aspect ratio. Images
// already within bounds are returned unchanged.
func (d *Downloader) resize(img image.Image) image.Image {
	maxW, maxH := d.MaxWidth, d.MaxHeight
	if maxW <= 0 {
		maxW = DefaultMaxWidth
	}
	if maxH <= 0 {
		maxH = DefaultMaxHeight
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}
	ratio := minFloat(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW, newH := int(float64(w)*ratio), int(float64(h)*ratio)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// outputExtension decides the on-disk extension: PNG sources keep
// their transparency and are re-encoded as PNG, everything else
// (JPEG, GIF, BMP, TIFF, WEBP) is flattened onto a white background
// and re-encoded as JPEG — Go's standard library and the x/image
// decoders used here only support encoding PNG and JPEG, unlike the
// reference downloader's Pillow backend which can write every format
// it can read.
func outputExtension(decodedFormat string) string {
	if decodedFormat == "png" {
		return "png"
	}
	return "jpg"
}

// encodeImage flattens any alpha/palette image onto a white
// background before JPEG encoding (JPEG has no alpha channel), then
// writes with the given quality; PNG output is written as-is.
func encodeImage(w io.Writer, img image.Image, ext string, quality int) error {
	if ext == "png" {
		return png.Encode(w, img)
	}
	flat := flattenToWhite(img)
	return jpeg.Encode(w, flat, &jpeg.Options{Quality: quality})
}

// flattenToWhite composites img onto an opaque white background,
// mirroring the reference downloader's Pillow RGBA→RGB conversion
// ahead of JPEG encoding (JPEG cannot represent transparency).
func flattenToWhite(img image.Image) image.Image {
	b := img.Bounds()
	bg := image.NewRGBA(b)
	draw.Draw(bg, b, image.White, image.Point{}, draw.Src)
	draw.Draw(bg, b, img, b.Min, draw.Over)
	return bg
}

func contentHash(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:12]
}
