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

import "strings"

// ValidateLang reports whether text is plausibly written in locale.
// Text under 30 characters carries no reliable signal and is always
// accepted. Otherwise the text is rejected only when negative-locale
// signal hits are both at least 3 and strictly greater than the
// positive-locale hit count — a deliberately conservative bar, since a
// false rejection throws away a real field and a false acceptance only
// risks storing one wrong-language field.
func ValidateLang(text, locale string) bool {
	if len(strings.TrimSpace(text)) < 30 {
		return true
	}
	signals, ok := langSignals[strings.ToLower(locale)]
	if !ok {
		return true
	}
	lower := strings.ToLower(text)
	pos := countHits(lower, signals.pos)
	neg := countHits(lower, signals.neg)
	return !(neg >= 3 && neg > pos)
}

func countHits(lower string, needles []string) int {
	n := 0
	for _, s := range needles {
		if strings.Contains(lower, s) {
			n++
		}
	}
	return n
}

// FilterByLanguage validates a list of short strings as a single
// sample (the first 10 items joined) and returns the list unchanged if
// the sample passes, or nil if the whole list is apparently in the
// wrong language — one bad field is tolerable, a wholesale mismatch is
// not worth keeping at all.
func FilterByLanguage(items []string, locale string) []string {
	if len(items) == 0 {
		return nil
	}
	n := len(items)
	if n > 10 {
		n = 10
	}
	sample := strings.Join(items[:n], " ")
	if !ValidateLang(sample, locale) {
		return nil
	}
	return items
}
