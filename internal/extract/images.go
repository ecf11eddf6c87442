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

package extract

import (
	"regexp"
	"strings"
)

// hotelPhotoCDNPath is the one allowed substring of a real hotel or
// room photo URL; everything else (UI logos, reviewer avatars,
// destination stock photos, tracking pixels) lives under a different
// path on the same CDN host and is rejected.
const hotelPhotoCDNPath = "bstatic.com/xdata/images/hotel/"

var (
	imgMaxResTriple = regexp.MustCompile(`/max\d+x\d+x?\d*/`)
	imgMaxResSingle = regexp.MustCompile(`/max\d+/`)
	imgSquareRes    = regexp.MustCompile(`/square\d+/`)
)

// IsHotelPhoto reports whether url is a real hotel/room photo served
// from the CDN's canonical image path, as opposed to a UI asset,
// reviewer avatar, or destination stock photo served from a sibling
// path on the same host.
func IsHotelPhoto(url string) bool {
	return strings.HasPrefix(url, "http") && strings.Contains(url, hotelPhotoCDNPath)
}

// NormalizeImageURL rewrites any of the CDN's resolution-bucket path
// segments (/max500/, /max500x334/, /square60/, ...) to the maximum
// resolution bucket, so every downstream dedup and download works off
// the largest image the CDN will actually serve.
func NormalizeImageURL(url string) string {
	url = imgMaxResTriple.ReplaceAllString(url, "/max1280x900/")
	url = imgMaxResSingle.ReplaceAllString(url, "/max1280x900/")
	url = imgSquareRes.ReplaceAllString(url, "/max1280x900/")
	return url
}

// imageURLCollector normalizes and deduplicates candidate image URLs
// by their query-stripped base path, preserving first-seen order.
type imageURLCollector struct {
	seen   map[string]struct{}
	images []string
}

func newImageURLCollector() *imageURLCollector {
	return &imageURLCollector{seen: make(map[string]struct{})}
}

func (c *imageURLCollector) add(url string) {
	if !IsHotelPhoto(url) {
		return
	}
	url = NormalizeImageURL(url)
	base := url
	if i := strings.IndexByte(base, '?'); i >= 0 {
		base = base[:i]
	}
	if _, dup := c.seen[base]; dup {
		return
	}
	c.seen[base] = struct{}{}
	c.images = append(c.images, url)
}
