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

// langSignals holds the high-frequency, low-ambiguity text signals the
// language authenticator scores a candidate text block against. Entries
// for en/es/de/fr/it/pt/nl/ru are the literal word lists carried over
// from the reference scraper; the other locales in config's default
// locale tables have no equivalent upstream table, so their
// lists are a small set of unambiguous native words for "hotel" and
// common booking vocabulary — good enough to catch a block served in a
// wildly wrong language, not tuned the way the original eight are.
// "ar" has no entry, so ValidateLang accepts any text for it.
type langSignal struct {
	pos []string
	neg []string
}

var langSignals = map[string]langSignal{
	"en": {
		pos: []string{"the ", " and ", " with ", "hotel", "beach", "pool",
			"breakfast", "free ", "offers", "features", "located",
			"includes", "available", "property", "resort", "swimming",
			"outdoor", "rooms", "guests", "access", "views"},
		neg: []string{"está ", "dispone", "habitaci", "alojamiento", "ofrece ",
			"también", "piscina", "desayuno", "normas", "entrada ",
			"salida ", "disponibilidad", "aceptamos", "cancelaci",
			"auch ", "verfüg", "unterkunft", "l'hôtel", "dispose",
			"camera ", "spiaggia"},
	},
	"es": {
		pos: []string{"está ", "dispone", "habitaci", "alojamiento", "ofrece ",
			"también", "piscina", "desayuno", "normas", "disponibilidad",
			"cancelaci", "entrada ", "salida ", "recepci", "servicios"},
		neg: []string{"the hotel", "swimming pool", "free wifi", "checkout",
			"breakfast included", "outdoor pool", "das hotel",
			"l'hôtel", "dispose de"},
	},
	"de": {
		pos: []string{"das ", " und ", "mit ", "bietet", "verfüg", "zimmer",
			"strand", "kostenlos", "frühstück", "unterkunft", "auch ",
			"befindet", "ausstattung", "bewertung", "angebot"},
		neg: []string{"está ", "dispone", "habitaci", "desayuno",
			"the hotel", "swimming pool", "l'hôtel", "dispose"},
	},
	"fr": {
		pos: []string{"l'hôtel", "les ", "avec ", "dispose", "offre ", "plage",
			"petit-déjeuner", "gratuit", "chambres", "piscine",
			"l'établissement", "situé", "propose"},
		neg: []string{"está ", "dispone", "habitaci", "desayuno",
			"the hotel", "swimming pool", "das hotel"},
	},
	"it": {
		pos: []string{"l'hotel", "della ", "con ", "dispone", "offre ", "spiaggia",
			"colazione", "piscina", "gratuito", "camere", "struttura",
			"situato", "propone"},
		neg: []string{"está ", "habitaci", "desayuno", "the hotel", "swimming pool"},
	},
	"pt": {
		pos: []string{"o hotel", "com ", "possui", "praia", "café da manhã",
			"piscina", "quartos", "localizado", "gratuito"},
		neg: []string{"está ", "habitaci"},
	},
	"nl": {
		pos: []string{"het hotel", "met ", "beschikt", "strand", "ontbijt",
			"zwembad", "gratis", "kamers", "gelegen"},
		neg: []string{"está ", "habitaci"},
	},
	"ru": {
		pos: []string{"отель", "пляж", "бассейн", "завтрак", "номер", "расположен"},
		neg: nil,
	},
	"tr": {
		pos: []string{"otel", "plaj", "havuz", "kahvaltı", "oda", "konaklama"},
		neg: nil,
	},
	"pl": {
		pos: []string{"hotel", "plaża", "basen", "śniadanie", "pokój", "obiekt"},
		neg: nil,
	},
	"hu": {
		pos: []string{"szálloda", "strand", "medence", "reggeli", "szoba"},
		neg: nil,
	},
	"zh": {
		pos: []string{"酒店", "海滩", "游泳池", "早餐", "客房"},
		neg: nil,
	},
	"no": {
		pos: []string{"hotell", "strand", "basseng", "frokost", "rom"},
		neg: nil,
	},
	"fi": {
		pos: []string{"hotelli", "ranta", "uima-allas", "aamiainen", "huone"},
		neg: nil,
	},
	"sv": {
		pos: []string{"hotell", "strand", "pool", "frukost", "rum"},
		neg: nil,
	},
	"da": {
		pos: []string{"hotel", "strand", "pool", "morgenmad", "værelse"},
		neg: nil,
	},
	"ja": {
		pos: []string{"ホテル", "ビーチ", "プール", "朝食", "客室"},
		neg: nil,
	},
	"ko": {
		pos: []string{"호텔", "해변", "수영장", "조식", "객실"},
		neg: nil,
	},
}
