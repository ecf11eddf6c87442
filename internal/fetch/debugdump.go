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

package fetch

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// debugHTMLMaxBytes caps how much of a failing response body gets
// written to disk, matching the reference scraper's truncation — full
// pages can run past a megabyte and are never needed in full to
// diagnose a block or missing-signal page.
const debugHTMLMaxBytes = 120000

// DumpDebugHTML best-effort writes html (truncated) to
// {root}/{label}_{slug}_{unixSeconds}.html for later inspection. A
// write failure is swallowed: debug dumps are a diagnostic aid, never
// a reason to fail a scrape.
func DumpDebugHTML(root, url, label string, html string, now time.Time) {
	if root == "" {
		return
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return
	}

	slug := urlSlug(url)
	name := slug + "_" + strconv.FormatInt(now.Unix(), 10) + ".html"
	if label != "" {
		name = label + "_" + name
	}

	body := html
	if len(body) > debugHTMLMaxBytes {
		body = body[:debugHTMLMaxBytes]
	}
	_ = os.WriteFile(filepath.Join(root, name), []byte(body), 0o644)
}

// urlSlug mirrors the reference dumper's filename derivation: the last
// path segment, capped at 40 bytes, with dots swapped for underscores
// so the slug reads cleanly as part of a ".html" filename.
func urlSlug(url string) string {
	parts := strings.Split(url, "/")
	last := parts[len(parts)-1]
	if len(last) > 40 {
		last = last[:40]
	}
	return strings.ReplaceAll(last, ".", "_")
}
