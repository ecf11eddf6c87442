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

import "strings"

// hotelPageSignals are substrings that a genuine listing page always
// carries somewhere in its markup, regardless of locale.
var hotelPageSignals = []string{
	"property-description",
	"hp_facilities_box",
	"maxotelroomarea",
	"reviewscore",
	"review-score",
	"b2hotelpage",
	"hoteldetails",
}

// blockSignals are substrings that show up on consent walls, CAPTCHA
// challenges and bot-detection interstitials, never on a real listing
// page.
var blockSignals = []string{
	"just a moment",
	"access denied",
	"403 forbidden",
	"privacymanager",
	"cookie-consent",
	"please verify you are a human",
	"enable javascript",
	"checking your browser",
}

// minHotelPageBytes is the byte-length floor below which a response is
// treated as too short to be a real listing page, short-circuiting the
// signal scan.
const minHotelPageBytes = 5000

// IsHotelPage reports whether html carries at least one of the fixed
// listing-page signals.
func IsHotelPage(html string) bool {
	low := strings.ToLower(html)
	for _, s := range hotelPageSignals {
		if strings.Contains(low, s) {
			return true
		}
	}
	return false
}

// IsBlocked reports whether html carries at least one of the fixed
// block-page signals.
func IsBlocked(html string) bool {
	low := strings.ToLower(html)
	for _, s := range blockSignals {
		if strings.Contains(low, s) {
			return true
		}
	}
	return false
}

// Classify derives an Outcome from a raw response body, applying the
// short-body check before the signal scans.
func Classify(html string) Outcome {
	if len(html) < minHotelPageBytes {
		return OutcomeNotHotelPage
	}
	if IsBlocked(html) {
		return OutcomeBlocked
	}
	if !IsHotelPage(html) {
		return OutcomeNotHotelPage
	}
	return OutcomeOK
}
