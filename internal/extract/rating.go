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

// ratingCategories lists, per locale, the review-score category labels
// the source site renders, ordered from highest to lowest band, plus
// the locale-specific "no rating" label for English. Category text
// search tries the document's own locale first, then falls back to
// English, since some category badges render in English even on a
// translated page.
var ratingCategories = map[string][]string{
	"en": {"Exceptional", "Superb", "Fabulous", "Excellent", "Very good", "Good", "Pleasant", "No rating"},
	"es": {"Excepcional", "Fabuloso", "Espléndido", "Excelente", "Muy bien", "Bien", "Agradable"},
	"de": {"Hervorragend", "Fantastisch", "Ausgezeichnet", "Fabelhaft", "Sehr gut", "Gut", "Angenehm"},
	"fr": {"Exceptionnel", "Fabuleux", "Superbe", "Excellent", "Très bien", "Bien", "Agréable"},
	"it": {"Eccezionale", "Favoloso", "Fantastico", "Eccellente", "Molto buono", "Buono", "Piacevole"},
	"pt": {"Excepcional", "Fabuloso", "Soberbo", "Excelente", "Muito bom", "Bom", "Agradável"},
	"nl": {"Uitzonderlijk", "Fantastisch", "Uitstekend", "Zeer goed", "Goed", "Aangenaam"},
	"ru": {"Исключительно", "Великолепно", "Отлично", "Очень хорошо", "Хорошо"},
}

// searchCategories returns the deduplicated category label list to
// scan for, in locale order followed by the English set.
func searchCategories(locale string) []string {
	out := make([]string, 0, 16)
	seen := make(map[string]struct{})
	add := func(list []string) {
		for _, c := range list {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	add(ratingCategories[locale])
	add(ratingCategories["en"])
	return out
}

type scoreBand struct {
	threshold float64
	label     string
}

// ratingScoreBands maps a numeric rating to its category label when no
// rendered category text could be found on the page, mirroring the
// score bands the source site documents: 9.0+ exceptional, 8.0-8.9
// excellent/fabulous, 7.0-7.9 very good, 6.0-6.9 good, below that
// pleasant.
var ratingScoreBands = map[string][]scoreBand{
	"en": {{9.0, "Exceptional"}, {8.0, "Excellent"}, {7.0, "Very good"}, {6.0, "Good"}, {0.0, "Pleasant"}},
	"es": {{9.0, "Excepcional"}, {8.0, "Fabuloso"}, {7.0, "Muy bien"}, {6.0, "Bien"}, {0.0, "Agradable"}},
	"de": {{9.0, "Hervorragend"}, {8.0, "Fabelhaft"}, {7.0, "Sehr gut"}, {6.0, "Gut"}, {0.0, "Angenehm"}},
	"fr": {{9.0, "Exceptionnel"}, {8.0, "Fabuleux"}, {7.0, "Très bien"}, {6.0, "Bien"}, {0.0, "Agréable"}},
	"it": {{9.0, "Eccezionale"}, {8.0, "Favoloso"}, {7.0, "Molto buono"}, {6.0, "Buono"}, {0.0, "Piacevole"}},
	"pt": {{9.0, "Excepcional"}, {8.0, "Fabuloso"}, {7.0, "Muito bom"}, {6.0, "Bom"}, {0.0, "Agradável"}},
	"nl": {{9.0, "Uitzonderlijk"}, {8.0, "Fantastisch"}, {7.0, "Zeer goed"}, {6.0, "Goed"}, {0.0, "Aangenaam"}},
	"ru": {{9.0, "Исключительно"}, {8.0, "Великолепно"}, {7.0, "Очень хорошо"}, {6.0, "Хорошо"}, {0.0, "Хорошо"}},
}

// InferRatingCategoryFromScore returns the category label for score in
// locale, falling back to the English band table when locale has none.
func InferRatingCategoryFromScore(score float64, locale string) string {
	bands, ok := ratingScoreBands[locale]
	if !ok {
		bands = ratingScoreBands["en"]
	}
	for _, b := range bands {
		if score >= b.threshold {
			return b.label
		}
	}
	return ""
}
