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

// Package extract turns a fetched listing page into a records.Record.
// Extract is a pure function: no network I/O, no store access, no
// logging side effects beyond what the caller does with its error
// return. Every field has a fallback chain of selectors tried in
// order, mirroring the source site's own history of markup revisions;
// most text fields are additionally passed through the language
// authenticator (authenticate.go) before being accepted, since the
// site is known to occasionally serve a block of text in the viewer's
// IP-geolocated language rather than the requested one.
package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"

	"github.com/corralejo/listing-harvester/internal/records"
)

// ErrNoName is returned when every name-extraction fallback failed —
// the one field whose absence marks the fetch itself as unusable (§7).
var ErrNoName = errors.New("extract: no hotel name found in document")

// Extract parses html and produces a Record for locale. It never
// returns an error for missing optional fields; only the complete
// absence of a name is treated as a hard failure.
func Extract(htmlContent, locale string) (records.Record, error) {
	locale = strings.ToLower(locale)
	rec := records.Record{Locale: locale}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	tree, treeErr := htmlquery.Parse(strings.NewReader(htmlContent))
	if docErr != nil && treeErr != nil {
		return rec, errors.Wrap(docErr, "extract: parsing document")
	}

	d := &document{doc: doc, tree: tree, locale: locale}

	name := d.extractName()
	if name == "" {
		return rec, ErrNoName
	}
	rec.Name = &name

	if addr := d.extractAddress(); addr != "" {
		rec.Address = &addr
	}
	if desc := d.extractDescription(); desc != "" {
		rec.Description = &desc
	}
	if rating, ok := d.extractRating(); ok {
		rec.Rating = &rating
	}
	if cat := d.extractRatingCategory(rec.Rating); cat != "" {
		rec.RatingCategory = &cat
	}
	rec.SubScores = d.extractSubScores()
	if n, ok := d.extractTotalReviews(); ok {
		rec.ReviewCount = &n
	}
	rec.Services = d.extractServices()
	rec.Facilities = d.extractFacilities()
	if hr := d.extractHouseRules(); hr != "" {
		rec.HouseRules = &hr
	}
	if info := d.extractImportantInfo(); info != "" {
		rec.ImportantInfo = &info
	}
	rec.Rooms = d.extractRooms()
	rec.ImageURLs = d.extractImages()
	rec.ImageCount = len(rec.ImageURLs)

	return rec, nil
}

// document wraps the two parsed trees used by the fallback chains: a
// goquery.Document for CSS/attribute selectors and an htmlquery node
// tree for legacy XPath expressions, built once per call per
// SPEC_FULL.md §4.7.
type document struct {
	doc    *goquery.Document
	tree   *html.Node
	locale string
}

func (d *document) xpathText(expr string) string {
	if d.tree == nil {
		return ""
	}
	n := htmlquery.FindOne(d.tree, expr)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.InnerText(n))
}

func (d *document) meta(prop, name string) string {
	if d.doc == nil {
		return ""
	}
	var sel *goquery.Selection
	if prop != "" {
		sel = d.doc.Find(`meta[property="` + prop + `"]`)
	} else {
		sel = d.doc.Find(`meta[name="` + name + `"]`)
	}
	if sel.Length() == 0 {
		return ""
	}
	v, _ := sel.First().Attr("content")
	return strings.TrimSpace(v)
}

// findByTestID returns the first element whose data-testid
// attribute matches re, scanning document order.
func (d *document) findByTestID(re *regexp.Regexp) *goquery.Selection {
	if d.doc == nil {
		return nil
	}
	var found *goquery.Selection
	d.doc.Find("[data-testid]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("data-testid")
		if re.MatchString(v) {
			found = s
			return false
		}
		return true
	})
	return found
}

func (d *document) findByTestIDExact(id string) *goquery.Selection {
	if d.doc == nil {
		return nil
	}
	sel := d.doc.Find(`[data-testid="` + id + `"]`)
	if sel.Length() == 0 {
		return nil
	}
	return sel.First()
}

// jsonLDBlocks decodes every <script type="application/ld+json"> block
// that parses as a JSON object, skipping ones that don't.
func (d *document) jsonLDBlocks() []map[string]any {
	if d.doc == nil {
		return nil
	}
	var out []map[string]any
	d.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v map[string]any
		if err := json.Unmarshal([]byte(s.Text()), &v); err == nil {
			out = append(out, v)
		}
	})
	return out
}

var starPrefixRe = regexp.MustCompile(`^[★☆✦✩\s]+`)

// extractName tries, in order: the 2024-2026 title/property-name
// test-id markup, og:title / meta title (cleaned of star prefix and
// Booking-style suffixes), a legacy XPath location, a legacy CSS
// class, any h1/h2 whose class or id names "property/hotel/title/name",
// and finally JSON-LD's "name" field.
func (d *document) extractName() string {
	if sel := d.findByTestIDExact("title"); sel != nil {
		if v := cleanStarPrefix(sel.Text()); len(v) > 2 {
			return v
		}
	}
	if sel := d.findByTestIDExact("property-name"); sel != nil {
		if v := cleanStarPrefix(sel.Text()); len(v) > 2 {
			return v
		}
	}
	if v := cleanHotelName(d.meta("og:title", "")); v != "" {
		return v
	}
	if v := cleanHotelName(d.meta("", "title")); v != "" {
		return v
	}
	if v := d.xpathText(`//div[@id="wrap-hotelpage-top"]/div[2]/div[1]/div[2]/h2[1]`); v != "" {
		return v
	}
	if d.doc != nil {
		if v := strings.TrimSpace(d.doc.Find("h2.pp-header__title").First().Text()); v != "" {
			return v
		}
		var found string
		d.doc.Find("h1,h2").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			cls, _ := s.Attr("class")
			id, _ := s.Attr("id")
			low := strings.ToLower(cls + id)
			for _, k := range []string{"property", "hotel", "title", "name"} {
				if strings.Contains(low, k) {
					if v := strings.TrimSpace(s.Text()); len(v) > 3 {
						found = v
						return false
					}
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	for _, block := range d.jsonLDBlocks() {
		if v, ok := block["name"].(string); ok && len(v) > 3 {
			return v
		}
	}
	return ""
}

func cleanStarPrefix(v string) string {
	return strings.TrimSpace(starPrefixRe.ReplaceAllString(strings.TrimSpace(v), ""))
}

var bookingSuffixRe = regexp.MustCompile(`(?i)\s*[|\-–]\s*Booking\.com\s*$`)

// cleanHotelName strips the "| Booking.com" suffix, any leading star
// rating, and a trailing ", City, Country" suffix (only when the last
// two comma-separated segments are both short, so a hotel name that
// itself contains a meaningful comma is left alone).
func cleanHotelName(v string) string {
	if v == "" {
		return ""
	}
	v = strings.TrimSpace(bookingSuffixRe.ReplaceAllString(v, ""))
	v = cleanStarPrefix(v)
	parts := strings.Split(v, ",")
	if len(parts) >= 3 {
		lastTwo := parts[len(parts)-2:]
		shortTail := true
		for _, p := range lastTwo {
			if len(strings.TrimSpace(p)) > 30 {
				shortTail = false
				break
			}
		}
		if shortTail {
			v = strings.Join(parts[:len(parts)-2], ",")
		}
	}
	return strings.TrimSpace(v)
}

var addressTestIDRe = regexp.MustCompile(`(?i)PropertyHeaderAddress|address-line`)

// extractAddress prefers JSON-LD's structured address object (never
// contaminated with rating text), then a chain of DOM selectors each
// passed through CleanAddress.
func (d *document) extractAddress() string {
	for _, block := range d.jsonLDBlocks() {
		if addr, ok := block["address"].(map[string]any); ok {
			street := strAny(addr["streetAddress"])
			parts := []string{}
			if street != "" {
				parts = append(parts, street)
			}
			streetLower := strings.ToLower(street)
			for _, key := range []string{"addressLocality", "postalCode", "addressCountry"} {
				v := strAny(addr[key])
				if v != "" && !strings.Contains(streetLower, strings.ToLower(v)) {
					parts = append(parts, v)
				}
			}
			full := strings.Join(parts, ", ")
			if len(full) > 5 {
				return full
			}
		} else if addrStr, ok := block["address"].(string); ok && len(strings.TrimSpace(addrStr)) > 5 {
			return CleanAddress(strings.TrimSpace(addrStr))
		}
	}

	if sel := d.findByTestIDExact("address"); sel != nil {
		if v := CleanAddress(strings.TrimSpace(sel.Text())); v != "" {
			return v
		}
	}
	if sel := d.findByTestID(addressTestIDRe); sel != nil {
		if v := CleanAddress(strings.TrimSpace(sel.Text())); v != "" {
			return v
		}
	}
	if v := d.xpathText(`//*[@id="wrap-hotelpage-top"]/div[2]/div/div[3]/div/div/div/div/span[1]/button/div`); v != "" {
		if cleaned := CleanAddress(v); cleaned != "" {
			return cleaned
		}
	}
	if d.doc != nil {
		for _, cls := range []string{"hp_address_subtitle", "address", "address-text"} {
			sel := d.doc.Find("." + cls).First()
			if sel.Length() == 0 {
				continue
			}
			if v := CleanAddress(strings.TrimSpace(sel.Text())); v != "" {
				return v
			}
		}
		sel := d.doc.Find(`[itemprop="address"]`).First()
		if sel.Length() > 0 {
			if v := CleanAddress(strings.TrimSpace(sel.Text())); v != "" {
				return v
			}
		}
	}
	return ""
}

func strAny(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

var descTestIDRe = regexp.MustCompile(`(?i)^PropertyDescription|^property-desc|^hotel-description`)

// extractDescription tries each candidate in order and accepts the
// first one that both exceeds a minimum length and passes ValidateLang
// — accepting nothing is preferred over storing a description in the
// wrong language.
func (d *document) extractDescription() string {
	if sel := d.findByTestIDExact("property-description"); sel != nil {
		if v := joinedText(sel); len(v) > 20 && ValidateLang(v, d.locale) {
			return v
		}
	}
	if sel := d.findByTestID(descTestIDRe); sel != nil {
		if v := joinedText(sel); len(v) > 20 && ValidateLang(v, d.locale) {
			return v
		}
	}
	if v := d.xpathText(`//*[@data-testid="property-description"]`); len(v) > 20 && ValidateLang(v, d.locale) {
		return v
	}
	if d.doc != nil {
		if div := d.doc.Find("#property_description_content").First(); div.Length() > 0 {
			var paras []string
			div.Find("p").Each(func(_ int, p *goquery.Selection) {
				paras = append(paras, strings.TrimSpace(p.Text()))
			})
			if v := strings.Join(paras, " "); v != "" && ValidateLang(v, d.locale) {
				return v
			}
		}
		var hotelDescFound string
		d.doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			cls, _ := s.Attr("class")
			if strings.Contains(strings.ToLower(cls), "hotel") && strings.Contains(strings.ToLower(cls), "desc") {
				if v := strings.TrimSpace(s.Text()); len(v) > 20 && ValidateLang(v, d.locale) {
					hotelDescFound = v
					return false
				}
			}
			return true
		})
		if hotelDescFound != "" {
			return hotelDescFound
		}
	}
	for _, block := range d.jsonLDBlocks() {
		if v, ok := block["description"].(string); ok && len(v) > 30 && ValidateLang(v, d.locale) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func joinedText(s *goquery.Selection) string {
	return strings.TrimSpace(strings.Join(strings.Fields(s.Text()), " "))
}

var ratingNumRe = regexp.MustCompile(`(\d+[.,]\d+)`)
var ratingOutOfRe = regexp.MustCompile(`(\d+[.,]\d+)\s*(?:out\s*of|/)`)
var scoreBlockTestIDRe = regexp.MustCompile(`(?i)review-score|rating`)

func parseRatingMatch(m string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	return f, err == nil
}

// extractRating scans, in order, the review-score component, a legacy
// XPath location, any aria-label containing "N.N out of"/"N.N/...",
// itemprop ratingValue, and finally JSON-LD's aggregateRating.
func (d *document) extractRating() (float64, bool) {
	if sel := d.findByTestIDExact("review-score-component"); sel != nil {
		if m := ratingNumRe.FindStringSubmatch(sel.Text()); m != nil {
			if f, ok := parseRatingMatch(m[1]); ok {
				return f, true
			}
		}
	}
	if v := d.xpathText(`//div[@data-testid="review-score-component"]`); v != "" {
		if m := ratingNumRe.FindStringSubmatch(v); m != nil {
			if f, ok := parseRatingMatch(m[1]); ok {
				return f, true
			}
		}
	}
	if d.doc != nil {
		var found float64
		var ok bool
		d.doc.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			label, _ := s.Attr("aria-label")
			if m := ratingOutOfRe.FindStringSubmatch(label); m != nil {
				if f, e := parseRatingMatch(m[1]); e {
					found, ok = f, true
					return false
				}
			}
			return true
		})
		if ok {
			return found, true
		}
		sel := d.doc.Find(`[itemprop="ratingValue"]`).First()
		if sel.Length() > 0 {
			content, exists := sel.Attr("content")
			if !exists {
				content = sel.Text()
			}
			if m := ratingNumRe.FindStringSubmatch(content); m != nil {
				if f, e := parseRatingMatch(m[1]); e {
					return f, true
				}
			}
		}
	}
	for _, block := range d.jsonLDBlocks() {
		agg, ok := block["aggregateRating"].(map[string]any)
		if !ok {
			continue
		}
		switch rv := agg["ratingValue"].(type) {
		case float64:
			return rv, true
		case string:
			if f, err := strconv.ParseFloat(rv, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// extractRatingCategory searches the review-score block, then
// aria-labels within and outside a rating-related block, for one of
// the locale's (then English's) category words; if none is found but
// a numeric rating was extracted, the category is inferred from the
// score.
func (d *document) extractRatingCategory(rating *float64) string {
	cats := searchCategories(d.locale)
	if d.doc != nil {
		if sel := d.findByTestIDExact("review-score-component"); sel != nil {
			text := strings.ToLower(sel.Text())
			for _, cat := range cats {
				if strings.Contains(text, strings.ToLower(cat)) {
					return cat
				}
			}
		}
		if block := d.findByTestID(scoreBlockTestIDRe); block != nil {
			var found string
			block.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				label := strings.ToLower(mustAttr(s, "aria-label"))
				for _, cat := range cats {
					if strings.Contains(label, strings.ToLower(cat)) {
						found = cat
						return false
					}
				}
				return true
			})
			if found != "" {
				return found
			}
		}
		var global string
		d.doc.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			label := strings.ToLower(mustAttr(s, "aria-label"))
			for _, cat := range cats {
				if strings.Contains(label, strings.ToLower(cat)) {
					global = cat
					return false
				}
			}
			return true
		})
		if global != "" {
			return global
		}
	}
	if rating != nil {
		return InferRatingCategoryFromScore(*rating, d.locale)
	}
	return ""
}

var subScoreClassRe = regexp.MustCompile(`(?i)subscores|score|category`)
var subScoreLineRe = regexp.MustCompile(`^(.+?)\s+(\d+[.,]\d+)\s*$`)
var subScoreCategoryTestIDRe = regexp.MustCompile(`(?i)review.?score.?category|ReviewScore`)
var subScoreWordValueRe = regexp.MustCompile(`([A-Za-z\x{00C0}-\x{024F}\s]{2,40})\s+(\d+[.,]\d+)`)
var reviewSectionTestIDRe = regexp.MustCompile(`(?i)review`)
var subScoreGeneralRe = regexp.MustCompile(`([A-Za-z\x{00C0}-\x{024F}][A-Za-z\x{00C0}-\x{024F}\s]{1,30})\s*\n\s*(\d+[.,]\d+)`)

// extractSubScores extracts per-category review sub-scores (e.g.
// "Cleanliness 9.2", "Staff 8.7"), trying in order: the
// ReviewSubscoresDesktop block's labeled class scan, the 2024-2026
// review-score-category/ReviewScore test-ids (each value gated to
// [1.0, 10.0]), JSON-LD's aggregateRating/reviewAspects, and finally a
// general name-then-score text scan within any review-related block.
func (d *document) extractSubScores() map[string]float64 {
	if d.doc == nil {
		return nil
	}

	if sel := d.findByTestIDExact("ReviewSubscoresDesktop"); sel != nil {
		scores := make(map[string]float64)
		sel.Find("[class]").Each(func(_ int, item *goquery.Selection) {
			cls, _ := item.Attr("class")
			if !subScoreClassRe.MatchString(cls) {
				return
			}
			m := subScoreLineRe.FindStringSubmatch(joinedText(item))
			if m == nil {
				return
			}
			if f, ok := parseRatingMatch(m[2]); ok {
				scores[strings.TrimSpace(m[1])] = f
			}
		})
		if len(scores) > 0 {
			return scores
		}
	}

	scores := make(map[string]float64)
	d.doc.Find("[data-testid]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("data-testid")
		if !subScoreCategoryTestIDRe.MatchString(v) {
			return
		}
		m := subScoreWordValueRe.FindStringSubmatch(joinedText(s))
		if m == nil {
			return
		}
		f, ok := parseRatingMatch(m[2])
		if !ok || f < 1.0 || f > 10.0 {
			return
		}
		scores[strings.TrimSpace(m[1])] = f
	})
	if len(scores) > 0 {
		return scores
	}

	for _, block := range d.jsonLDBlocks() {
		ldScores := make(map[string]float64)
		if agg, ok := block["aggregateRating"].(map[string]any); ok {
			switch rv := agg["ratingValue"].(type) {
			case float64:
				ldScores["overall"] = rv
			case string:
				if f, ok := parseRatingMatch(rv); ok {
					ldScores["overall"] = f
				}
			}
		}
		if aspects, ok := block["reviewAspects"].([]any); ok {
			for _, a := range aspects {
				am, ok := a.(map[string]any)
				if !ok {
					continue
				}
				name := strAny(am["name"])
				if name == "" {
					name = strAny(am["@type"])
				}
				if name == "" {
					continue
				}
				switch rv := am["ratingValue"].(type) {
				case float64:
					ldScores[name] = rv
				case string:
					if f, ok := parseRatingMatch(rv); ok {
						ldScores[name] = f
					}
				}
			}
		}
		if len(ldScores) > 0 {
			return ldScores
		}
	}

	if sel := d.findByTestID(reviewSectionTestIDRe); sel != nil {
		scores := make(map[string]float64)
		text := deepText(sel)
		for _, m := range subScoreGeneralRe.FindAllStringSubmatch(text, -1) {
			f, ok := parseRatingMatch(m[2])
			if !ok || f < 1.0 || f > 10.0 {
				continue
			}
			scores[strings.TrimSpace(m[1])] = f
		}
		if len(scores) > 0 {
			return scores
		}
	}

	return nil
}

// deepText recursively joins every descendant text node with newline
// separators, unlike (*goquery.Selection).Text which flattens without
// them — the sub-score general scan needs "name\nscore" line pairs.
func deepText(s *goquery.Selection) string {
	var buf strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if t := strings.TrimSpace(c.Text()); t != "" {
				buf.WriteString(t)
				buf.WriteString("\n")
			}
			return
		}
		buf.WriteString(deepText(c))
	})
	return buf.String()
}

func mustAttr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

var reviewCountWordRe = regexp.MustCompile(`(?i)([\d,.]+)\s*(?:review|opinión|Bewertung|avis|recensioni|avaliações)`)
var digitsOnlyRe = regexp.MustCompile(`[,.]`)
var reviewCountDigitsRe = regexp.MustCompile(`(\d+)`)

func (d *document) extractTotalReviews() (int, bool) {
	if sel := d.findByTestIDExact("review-score-component"); sel != nil {
		if m := reviewCountWordRe.FindStringSubmatch(sel.Text()); m != nil {
			if n, err := strconv.Atoi(digitsOnlyRe.ReplaceAllString(m[1], "")); err == nil {
				return n, true
			}
		}
	}
	if d.doc != nil {
		sel := d.doc.Find(`[itemprop="reviewCount"]`).First()
		if sel.Length() > 0 {
			content, exists := sel.Attr("content")
			if !exists {
				content = sel.Text()
			}
			content = strings.ReplaceAll(content, ",", "")
			if m := reviewCountDigitsRe.FindStringSubmatch(content); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					return n, true
				}
			}
		}
	}
	for _, block := range d.jsonLDBlocks() {
		agg, ok := block["aggregateRating"].(map[string]any)
		if !ok {
			continue
		}
		switch rc := agg["reviewCount"].(type) {
		case float64:
			return int(rc), true
		case string:
			if n, err := strconv.Atoi(rc); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

var serviceNoiseRe = regexp.MustCompile(`(?i)^(show all|ver todos|ver más|read more|más información)`)
var numericOnlyRe = regexp.MustCompile(`^[\d\s.,/\-+%€$£]+$`)

func isValidService(text string) bool {
	if len(text) < 3 || len(text) > 120 {
		return false
	}
	if serviceNoiseRe.MatchString(strings.TrimSpace(text)) {
		return false
	}
	return !numericOnlyRe.MatchString(text)
}

var facilityTestIDRe = regexp.MustCompile(`(?i)facilities|amenities|services`)
var facilitiesBoxTestIDRe = regexp.MustCompile(`(?i)facilities`)

// extractServices collects the flat amenities list from the legacy
// facilities box, falling back to the 2024-2026 test-id block when the
// legacy box is absent or its content fails language validation.
func (d *document) extractServices() []string {
	if d.doc == nil {
		return nil
	}
	var raw []string
	seen := make(map[string]struct{})
	addUnique := func(text string) {
		if isValidService(text) {
			if _, dup := seen[text]; !dup {
				seen[text] = struct{}{}
				raw = append(raw, text)
			}
		}
	}

	if box := d.doc.Find("#hp_facilities_box").First(); box.Length() > 0 {
		box.Find("li,span").Each(func(_ int, s *goquery.Selection) {
			addUnique(strings.TrimSpace(s.Text()))
		})
		if len(raw) > 0 {
			if v := FilterByLanguage(raw, d.locale); v != nil {
				return capStrings(v, 50)
			}
			raw = nil
			seen = make(map[string]struct{})
		}
	}

	d.doc.Find("[data-testid]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("data-testid")
		if !facilityTestIDRe.MatchString(v) {
			return
		}
		s.Find("li,span,div").Each(func(_ int, elem *goquery.Selection) {
			if elem.Find("li,div").Length() > 0 {
				return
			}
			addUnique(strings.TrimSpace(elem.Text()))
		})
	})
	if len(raw) > 0 {
		return capStrings(FilterByLanguage(raw, d.locale), 50)
	}
	return nil
}

func capStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// extractFacilities groups amenities by category heading, validating
// each category's heading plus a sample of its items before keeping it
// — individual categories in the wrong language are dropped rather
// than discarding the whole map.
func (d *document) extractFacilities() map[string][]string {
	if d.doc == nil {
		return nil
	}
	box := d.doc.Find("#hp_facilities_box").First()
	if box.Length() == 0 {
		box = d.findByTestID(facilitiesBoxTestIDRe)
		if box == nil {
			return nil
		}
	}
	out := make(map[string][]string)
	box.Children().Each(func(_ int, section *goquery.Selection) {
		header := section.Find("h3,h4,p").First()
		if header.Length() == 0 {
			return
		}
		cat := strings.TrimSpace(header.Text())
		if cat == "" {
			return
		}
		var items []string
		section.Find("li").Each(func(_ int, li *goquery.Selection) {
			if v := strings.TrimSpace(li.Text()); v != "" {
				items = append(items, v)
			}
		})
		if len(items) == 0 {
			return
		}
		n := len(items)
		if n > 3 {
			n = 3
		}
		sample := cat + " " + strings.Join(items[:n], " ")
		if ValidateLang(sample, d.locale) {
			out[cat] = items
		}
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

var houseRulesTestIDRe = regexp.MustCompile(`(?i)policies|house.?rules|HouseRules|normas|regeln|règles|regole`)
var houseRuleClassRe = regexp.MustCompile(`(?i)house.?rule|house.?policy|hotel.?rule`)

// extractHouseRules returns the first candidate section that passes
// ValidateLang, trying the legacy #policies block, the 2024-2026
// test-id variants, then any id/class containing "house"/"rule"/"polic".
func (d *document) extractHouseRules() string {
	if d.doc == nil {
		return ""
	}
	var candidates []string
	if sec := d.doc.Find("#policies").First(); sec.Length() > 0 {
		candidates = append(candidates, sectionText(sec))
	}
	if sec := d.findByTestID(houseRulesTestIDRe); sec != nil {
		candidates = append(candidates, sectionText(sec))
	}
	d.doc.Find("[id],[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		cls, _ := s.Attr("class")
		if houseRuleClassRe.MatchString(id) || houseRuleClassRe.MatchString(cls) {
			candidates = append(candidates, sectionText(s))
			return false
		}
		return true
	})
	for _, c := range candidates {
		if c != "" && ValidateLang(c, d.locale) {
			return c
		}
	}
	return ""
}

var importantInfoTestIDRe = regexp.MustCompile(`(?i)ImportantInfo|important.?information|need.?to.?know|a.?tener.?en.?cuenta`)

// extractImportantInfo follows the same candidate-then-ValidateLang
// pattern as extractHouseRules, but additionally requires a candidate
// to be longer than 10 characters; extractHouseRules accepts any
// non-empty candidate.
func (d *document) extractImportantInfo() string {
	if d.doc == nil {
		return ""
	}
	var candidates []string
	if sec := d.doc.Find("#important_info").First(); sec.Length() > 0 {
		candidates = append(candidates, sectionText(sec))
	}
	if sel := d.findByTestIDExact("important-info"); sel != nil {
		candidates = append(candidates, sectionText(sel))
	}
	if sec := d.findByTestID(importantInfoTestIDRe); sec != nil {
		candidates = append(candidates, sectionText(sec))
	}
	for _, c := range candidates {
		if len(c) > 10 && ValidateLang(c, d.locale) {
			return c
		}
	}
	return ""
}

func sectionText(s *goquery.Selection) string {
	var lines []string
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if t := strings.TrimSpace(c.Text()); t != "" {
			lines = append(lines, t)
		}
	})
	if len(lines) == 0 {
		return strings.TrimSpace(s.Text())
	}
	return strings.Join(lines, "\n")
}

var roomNameClassRe = regexp.MustCompile(`(?i)room.?name|room.?title`)
var roomPriceClassRe = regexp.MustCompile(`(?i)price|rate`)
var roomContainerTestIDRe = regexp.MustCompile(`(?i)roomType|room.?block|room.?row`)
var roomNameTestIDRe = regexp.MustCompile(`(?i)room.?name|room.?type.?name`)
var roomPriceTestIDRe = regexp.MustCompile(`(?i)price`)
var hprtRoomClassRe = regexp.MustCompile(`(?i)hprt-table-room|roomtype`)
var roomTypeClassRe = regexp.MustCompile(`(?i)room.?type|room.?name`)
var roomOrHprtClassRe = regexp.MustCompile(`(?i)room|hprt`)

const maxRooms = 20

// extractRooms tries the legacy room-area table, the 2024-2026
// data-testid room blocks, the HPRT table, and finally JSON-LD
// containsPlace entries, stopping at the first source that yields
// anything and capping the result at maxRooms.
func (d *document) extractRooms() []records.Room {
	if d.doc == nil {
		return nil
	}
	var rooms []records.Room
	seen := make(map[string]struct{})
	add := func(name, price string) {
		name = strings.TrimSpace(name)
		if len(name) < 3 {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		r := records.Room{Name: name}
		if price = strings.TrimSpace(price); price != "" {
			r.Price = &price
		}
		rooms = append(rooms, r)
	}

	if area := d.doc.Find("#maxotelRoomArea").First(); area.Length() > 0 {
		area.Find("tr,div").Each(func(_ int, row *goquery.Selection) {
			cls, _ := row.Attr("class")
			if !roomTypeClassRe.MatchString(cls) && !roomOrHprtClassRe.MatchString(cls) {
				return
			}
			nameEl := findByClassRe(row, roomNameClassRe)
			if nameEl == nil {
				return
			}
			priceEl := findByClassRe(row, roomPriceClassRe)
			price := ""
			if priceEl != nil {
				price = priceEl.Text()
			}
			add(nameEl.Text(), price)
		})
	}

	if len(rooms) == 0 {
		d.doc.Find("[data-testid]").Each(func(_ int, container *goquery.Selection) {
			v, _ := container.Attr("data-testid")
			if !roomContainerTestIDRe.MatchString(v) {
				return
			}
			nameEl := findByTestIDWithin(container, roomNameTestIDRe)
			if nameEl == nil {
				nameEl = container.Find("h3,h4,strong").First()
				if nameEl.Length() == 0 {
					nameEl = nil
				}
			}
			if nameEl == nil {
				return
			}
			priceEl := findByTestIDWithin(container, roomPriceTestIDRe)
			price := ""
			if priceEl != nil {
				price = priceEl.Text()
			}
			add(nameEl.Text(), price)
		})
	}

	if len(rooms) == 0 {
		d.doc.Find("[class]").Each(func(_ int, row *goquery.Selection) {
			cls, _ := row.Attr("class")
			if !hprtRoomClassRe.MatchString(cls) {
				return
			}
			nameEl := findByClassRe(row, roomTypeClassRe)
			if nameEl != nil {
				add(nameEl.Text(), "")
			}
		})
	}

	if len(rooms) == 0 {
		for _, block := range d.jsonLDBlocks() {
			places, ok := block["containsPlace"].([]any)
			if !ok {
				continue
			}
			for _, p := range places {
				pm, ok := p.(map[string]any)
				if !ok {
					continue
				}
				if name := strAny(pm["name"]); name != "" {
					add(name, "")
				}
			}
		}
	}

	if len(rooms) > maxRooms {
		rooms = rooms[:maxRooms]
	}
	return rooms
}

func findByClassRe(root *goquery.Selection, re *regexp.Regexp) *goquery.Selection {
	var found *goquery.Selection
	root.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		cls, _ := s.Attr("class")
		if re.MatchString(cls) {
			found = s
			return false
		}
		return true
	})
	return found
}

func findByTestIDWithin(root *goquery.Selection, re *regexp.Regexp) *goquery.Selection {
	var found *goquery.Selection
	root.Find("[data-testid]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("data-testid")
		if re.MatchString(v) {
			found = s
			return false
		}
		return true
	})
	return found
}

// extractImages collects every distinct hotel/room photo URL from the
// interactive gallery modal (if rendered), the main hotel-page block,
// a global <img>/srcset scan, an og:image fallback, and any embedded
// data-photos JSON — deduplicated and resolution-normalized by
// imageURLCollector. There is no output cap: the source site serves
// every photo under one CDN path and the downloader's own dimension
// filter discards whatever residue slips through.
func (d *document) extractImages() []string {
	if d.doc == nil {
		return nil
	}
	c := newImageURLCollector()

	addImgLike := func(s *goquery.Selection) {
		for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
			if v, ok := s.Attr(attr); ok && v != "" {
				c.add(v)
			}
		}
		if srcset, ok := s.Attr("srcset"); ok {
			for _, part := range strings.Split(srcset, ",") {
				fields := strings.Fields(strings.TrimSpace(part))
				if len(fields) > 0 {
					c.add(fields[0])
				}
			}
		}
	}

	if gallery := d.findByTestIDExact("GalleryGridViewModal-wrapper"); gallery != nil {
		gallery.Find("img").Each(func(_ int, img *goquery.Selection) { addImgLike(img) })
	}

	b2page := d.doc.Find("#b2hotelPage").First()
	if b2page.Length() == 0 {
		if sel := d.findByTestIDExact("b2hotelPage"); sel != nil {
			b2page = sel
		}
	}
	if b2page.Length() > 0 {
		b2page.Find("img").Each(func(_ int, img *goquery.Selection) { addImgLike(img) })
		b2page.Find("source").Each(func(_ int, s *goquery.Selection) {
			srcset, _ := s.Attr("srcset")
			for _, part := range strings.Split(srcset, ",") {
				fields := strings.Fields(strings.TrimSpace(part))
				if len(fields) > 0 {
					c.add(fields[0])
				}
			}
		})
	}

	d.doc.Find("img").Each(func(_ int, img *goquery.Selection) { addImgLike(img) })

	if len(c.images) == 0 {
		if og := d.meta("og:image", ""); og != "" && IsHotelPhoto(og) {
			c.add(og)
		}
	}

	d.doc.Find("[data-photos]").Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("data-photos")
		var photos []any
		if err := json.Unmarshal([]byte(raw), &photos); err != nil {
			return
		}
		for _, p := range photos {
			switch pv := p.(type) {
			case string:
				c.add(pv)
			case map[string]any:
				if url := strAny(pv["url"]); url != "" {
					c.add(url)
				} else if url := strAny(pv["src"]); url != "" {
					c.add(url)
				}
			}
		}
	})

	return c.images
}
