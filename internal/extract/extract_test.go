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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateLangShortTextAlwaysAccepted(t *testing.T) {
	assert.True(t, ValidateLang("hola", "en"))
}

func TestValidateLangRejectsClearMismatch(t *testing.T) {
	text := strings.Repeat("está dispone habitacion alojamiento ofrece ", 2)
	assert.False(t, ValidateLang(text, "en"))
}

func TestValidateLangAcceptsMatchingLocale(t *testing.T) {
	text := "The hotel offers free breakfast and features an outdoor swimming pool with beach access for guests."
	assert.True(t, ValidateLang(text, "en"))
}

func TestValidateLangUnknownLocaleAlwaysAccepted(t *testing.T) {
	text := strings.Repeat("anything goes here and stays long enough ", 3)
	assert.True(t, ValidateLang(text, "xx"))
}

func TestFilterByLanguageEmptyListReturnsNil(t *testing.T) {
	assert.Nil(t, FilterByLanguage(nil, "en"))
}

func TestFilterByLanguageDropsWrongLanguageSample(t *testing.T) {
	items := []string{
		"está dispone habitacion alojamiento ofrece también piscina desayuno normas",
		"otro elemento",
	}
	assert.Nil(t, FilterByLanguage(items, "en"))
}

func TestCleanAddressStripsTrailingNoise(t *testing.T) {
	raw := "Calle Mayor 4, Madrid, SpainUbicación excelente, puntuada con 9.1/10!"
	got := CleanAddress(raw)
	assert.Equal(t, "Calle Mayor 4, Madrid, Spain", got)
}

func TestCleanAddressCapsLength(t *testing.T) {
	raw := strings.Repeat("a", 250)
	got := CleanAddress(raw)
	assert.Len(t, got, 200)
}

func TestNormalizeImageURLResolutionVariants(t *testing.T) {
	cases := map[string]string{
		"https://cf.bstatic.com/xdata/images/hotel/123/max500/foo.jpg":     "https://cf.bstatic.com/xdata/images/hotel/123/max1280x900/foo.jpg",
		"https://cf.bstatic.com/xdata/images/hotel/123/max500x334/foo.jpg": "https://cf.bstatic.com/xdata/images/hotel/123/max1280x900/foo.jpg",
		"https://cf.bstatic.com/xdata/images/hotel/123/square60/foo.jpg":   "https://cf.bstatic.com/xdata/images/hotel/123/max1280x900/foo.jpg",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeImageURL(in))
	}
}

func TestIsHotelPhotoRejectsNonHotelCDNPaths(t *testing.T) {
	assert.True(t, IsHotelPhoto("https://cf.bstatic.com/xdata/images/hotel/123/x.jpg"))
	assert.False(t, IsHotelPhoto("https://t-cf.bstatic.com/design-assets/logo.svg"))
	assert.False(t, IsHotelPhoto("https://xx.bstatic.com/static/img/review/avatar.jpg"))
	assert.False(t, IsHotelPhoto("not-a-url"))
}

func TestInferRatingCategoryFromScoreBoundaries(t *testing.T) {
	assert.Equal(t, "Exceptional", InferRatingCategoryFromScore(9.0, "en"))
	assert.Equal(t, "Excellent", InferRatingCategoryFromScore(8.9, "en"))
	assert.Equal(t, "Very good", InferRatingCategoryFromScore(7.0, "en"))
	assert.Equal(t, "Good", InferRatingCategoryFromScore(6.5, "en"))
	assert.Equal(t, "Pleasant", InferRatingCategoryFromScore(3.0, "en"))
	assert.Equal(t, "Fabuloso", InferRatingCategoryFromScore(8.2, "es"))
}

func TestInferRatingCategoryUnknownLocaleFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "Exceptional", InferRatingCategoryFromScore(9.5, "xx"))
}

const sampleHTML = `<html><head>
<meta property="og:title" content="★★★★★ Seaside Grand Hotel, Palma, Spain | Booking.com">
<script type="application/ld+json">{"name":"JSON-LD Hotel Name","address":{"streetAddress":"Calle Mayor 4","addressLocality":"Madrid","addressCountry":"Spain"},"aggregateRating":{"ratingValue":"9.2","reviewCount":"1450"},"description":"The hotel offers a lovely breakfast, an outdoor swimming pool and beach access for all guests, located near the resort district and featuring modern rooms with great views of the property."}</script>
</head><body>
<div data-testid="title">Seaside Grand Hotel</div>
<div data-testid="property-description">The hotel offers free breakfast and features an outdoor swimming pool with beach access for guests near the resort, with modern rooms and stunning views of the property grounds.</div>
<div id="b2hotelPage">
<img src="https://cf.bstatic.com/xdata/images/hotel/123/max500/room1.jpg">
<img src="https://t-cf.bstatic.com/design-assets/logo.svg">
</div>
</body></html>`

func TestExtractHappyPath(t *testing.T) {
	rec, err := Extract(sampleHTML, "en")
	require.NoError(t, err)
	require.NotNil(t, rec.Name)
	assert.Equal(t, "Seaside Grand Hotel", *rec.Name)
	require.NotNil(t, rec.Rating)
	assert.InDelta(t, 9.2, *rec.Rating, 0.0001)
	require.NotNil(t, rec.ReviewCount)
	assert.Equal(t, 1450, *rec.ReviewCount)
	require.Len(t, rec.ImageURLs, 1)
	assert.Contains(t, rec.ImageURLs[0], "max1280x900")
}

func TestExtractMissingNameReturnsErrNoName(t *testing.T) {
	_, err := Extract("<html><body><p>nothing here</p></body></html>", "en")
	assert.ErrorIs(t, err, ErrNoName)
}

func TestExtractIsIdempotent(t *testing.T) {
	rec1, err1 := Extract(sampleHTML, "en")
	require.NoError(t, err1)
	rec2, err2 := Extract(sampleHTML, "en")
	require.NoError(t, err2)
	assert.Equal(t, rec1.Name, rec2.Name)
	assert.Equal(t, rec1.ImageURLs, rec2.ImageURLs)
}
