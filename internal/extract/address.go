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

// addressNoiseRe matches rating/review boilerplate the source site
// concatenates onto the same DOM block as the physical address, e.g.
// "..., Seychelles Ubicación excelente, puntuada con 9.1/10!".
// Everything from the first match onward is discarded.
var addressNoiseRe = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`Ubicaci[oó]n`, `Excellent\s+location`, `Great\s+location`,
	`Location\b`, `[Vv]alorad`, `puntuada`, `basada\s+en\s*\d`,
	`comentarios`, `Ver\s+mapa`, `Show\s+on\s+map`,
	`\d+\s*/\s*10`, `[Pp]untuaci[oó]n`, `[Rr]ated\s+by`,
	`customers?`, `[Dd]estacado`, `[Dd]e\s+las\s+m[aá]s`,
	`[Vv]aloradas?`, `[Vv]alued\s+by`, `[Dd]espu[eé]s\s+de\s+reservar`,
	`encontrar[aá]s`, `n[uú]mero\s+de\s+tel[eé]fono`,
}, "|"))

const addressMaxLen = 200

// CleanAddress strips trailing rating/review noise from a raw address
// string and caps the result at addressMaxLen. Returns "" if nothing
// usable remains.
func CleanAddress(v string) string {
	if v == "" {
		return ""
	}
	if loc := addressNoiseRe.FindStringIndex(v); loc != nil {
		v = strings.TrimRight(v[:loc[0]], ".,;– \n\t")
	}
	v = strings.TrimSpace(v)
	if len(v) > addressMaxLen {
		v = v[:addressMaxLen]
	}
	return strings.TrimSpace(v)
}
