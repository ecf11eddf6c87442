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

// Package config holds the immutable, process-wide settings for the
// harvester. It is loaded once from the environment at process start and
// passed down through constructors; nothing in this package is mutated
// after Load returns.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config is the fully resolved, immutable process configuration.
type Config struct {
	LocalesEnabled []string
	DefaultLocale  string

	LocaleURLSuffix   map[string]string
	LocaleCookieValue map[string]string
	LocaleAcceptLang  map[string]string

	BatchSize       int
	MaxRetries      int
	RetryDelay      time.Duration
	MinRequestDelay time.Duration
	MaxRequestDelay time.Duration

	UseBrowserDriver bool
	DownloadImages   bool

	ImageMaxW    int
	ImageMaxH    int
	ImageMinW    int
	ImageMinH    int
	ImageQuality int

	VPNEnabled      bool
	VPNCountries    []string
	VPNRotateEveryN int

	ImagesRoot    string
	LogsRoot      string
	DebugHTMLRoot string
	LogRetention  time.Duration

	DispatchWorkerPoolSize int
	DispatchBatchSleep     time.Duration
	DispatchWarmup         time.Duration

	DatabaseURL string
}

// defaultLocaleURLSuffix, defaultLocaleCookieValue and
// defaultLocaleAcceptLang mirror original_source/app/config.py's
// LANGUAGE_EXT and the catalog's own cookie/Accept-Language conventions.
// They are static, non-extensible-at-runtime tables as required by
// SPEC_FULL.md's "per-locale string tables" design note.
var (
	defaultLocaleURLSuffix = map[string]string{
		"en": "", "es": ".es", "fr": ".fr", "de": ".de", "it": ".it",
		"pt": ".pt", "nl": ".nl", "ru": ".ru", "ar": ".ar", "tr": ".tr",
		"hu": ".hu", "pl": ".pl", "zh": ".zh", "no": ".no", "fi": ".fi",
		"sv": ".sv", "da": ".da", "ja": ".ja", "ko": ".ko",
	}

	defaultLocaleCookieValue = map[string]string{
		"en": "en-gb", "es": "es", "fr": "fr", "de": "de", "it": "it",
		"pt": "pt-pt", "nl": "nl", "ru": "ru", "ar": "ar", "tr": "tr",
		"hu": "hu", "pl": "pl", "zh": "zh-cn", "no": "nb", "fi": "fi",
		"sv": "sv", "da": "da", "ja": "ja", "ko": "ko",
	}

	defaultLocaleAcceptLang = map[string]string{
		"en": "en-US,en;q=0.9",
		"es": "es-ES,es;q=0.9,en;q=0.8",
		"fr": "fr-FR,fr;q=0.9,en;q=0.8",
		"de": "de-DE,de;q=0.9,en;q=0.8",
		"it": "it-IT,it;q=0.9,en;q=0.8",
		"pt": "pt-PT,pt;q=0.9,en;q=0.8",
		"nl": "nl-NL,nl;q=0.9,en;q=0.8",
		"ru": "ru-RU,ru;q=0.9,en;q=0.8",
		"ar": "ar,en;q=0.8",
		"tr": "tr-TR,tr;q=0.9,en;q=0.8",
		"hu": "hu-HU,hu;q=0.9,en;q=0.8",
		"pl": "pl-PL,pl;q=0.9,en;q=0.8",
		"zh": "zh-CN,zh;q=0.9,en;q=0.8",
		"no": "nb-NO,no;q=0.9,en;q=0.8",
		"fi": "fi-FI,fi;q=0.9,en;q=0.8",
		"sv": "sv-SE,sv;q=0.9,en;q=0.8",
		"da": "da-DK,da;q=0.9,en;q=0.8",
		"ja": "ja-JP,ja;q=0.9,en;q=0.8",
		"ko": "ko-KR,ko;q=0.9,en;q=0.8",
	}

	// englishSpeakingFirst matches the v1.1 fix in
	// original_source/app/config.py: English-speaking VPN countries are
	// tried before others so the catalog is less likely to serve
	// non-English content while scraping the default locale.
	englishSpeakingFirst = map[string]bool{"US": true, "UK": true, "CA": true, "AU": true, "IE": true, "NZ": true}
)

// Load reads the configuration from the process environment. A missing or
// malformed required value is a fatal configuration error (SPEC_FULL.md §7).
func Load() (*Config, error) {
	c := &Config{
		LocaleURLSuffix:   cloneStringMap(defaultLocaleURLSuffix),
		LocaleCookieValue: cloneStringMap(defaultLocaleCookieValue),
		LocaleAcceptLang:  cloneStringMap(defaultLocaleAcceptLang),
	}

	c.DefaultLocale = envString("DEFAULT_LOCALE", "en")
	c.LocalesEnabled = envCSV("LOCALES_ENABLED", []string{"en"})
	c.LocalesEnabled = moveToFront(c.LocalesEnabled, c.DefaultLocale)

	c.BatchSize = envInt("BATCH_SIZE", 5)
	c.MaxRetries = envInt("MAX_RETRIES", 3)
	c.RetryDelay = time.Duration(envInt("RETRY_DELAY_SECONDS", 60)) * time.Second
	c.MinRequestDelay = time.Duration(envFloatMillis("MIN_REQUEST_DELAY_SECONDS", 2.0)) * time.Millisecond
	c.MaxRequestDelay = time.Duration(envFloatMillis("MAX_REQUEST_DELAY_SECONDS", 5.0)) * time.Millisecond
	if c.MaxRequestDelay < c.MinRequestDelay {
		return nil, errors.New("MAX_REQUEST_DELAY_SECONDS must be >= MIN_REQUEST_DELAY_SECONDS")
	}

	c.UseBrowserDriver = envBool("USE_BROWSER_DRIVER", false)
	c.DownloadImages = envBool("DOWNLOAD_IMAGES", true)

	c.ImageMaxW = envInt("IMAGE_MAX_W", 1920)
	c.ImageMaxH = envInt("IMAGE_MAX_H", 1080)
	c.ImageMinW = envInt("IMAGE_MIN_W", 200)
	c.ImageMinH = envInt("IMAGE_MIN_H", 150)
	c.ImageQuality = envInt("IMAGE_QUALITY", 85)

	c.VPNEnabled = envBool("VPN_ENABLED", false)
	c.VPNCountries = envCSV("VPN_COUNTRIES", []string{"US", "UK", "CA", "DE", "FR", "NL", "IT", "ES"})
	c.VPNCountries = sortEnglishFirst(c.VPNCountries)
	c.VPNRotateEveryN = envInt("VPN_ROTATE_EVERY_N_LISTINGS", 50)

	c.ImagesRoot = envString("IMAGES_ROOT", "./data/images")
	c.LogsRoot = envString("LOGS_ROOT", "./data/logs")
	c.DebugHTMLRoot = envString("DEBUG_HTML_ROOT", c.LogsRoot+"/debug")
	c.LogRetention = time.Duration(envInt("LOG_RETENTION_DAYS", 30)) * 24 * time.Hour

	c.DispatchWorkerPoolSize = envInt("DISPATCH_WORKER_POOL_SIZE", 1)
	c.DispatchBatchSleep = time.Duration(envInt("DISPATCH_BATCH_SLEEP_SECONDS", 30)) * time.Second
	c.DispatchWarmup = time.Duration(envInt("DISPATCH_WARMUP_SECONDS", 5)) * time.Second

	c.DatabaseURL = envString("DATABASE_URL", "")
	if c.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL must be set")
	}

	if err := c.validateLocaleTables(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validateLocaleTables() error {
	for _, locale := range c.LocalesEnabled {
		if _, ok := c.LocaleURLSuffix[locale]; !ok {
			return errors.Errorf("no URL suffix configured for locale %q", locale)
		}
		if _, ok := c.LocaleCookieValue[locale]; !ok {
			return errors.Errorf("no cookie value configured for locale %q", locale)
		}
		if _, ok := c.LocaleAcceptLang[locale]; !ok {
			return errors.Errorf("no Accept-Language configured for locale %q", locale)
		}
	}
	return nil
}

// moveToFront prepends locale if absent, else reorders it to the front,
// matching SPEC_FULL.md/§4.9: "worker iterates in this order after moving
// the default locale to the front".
func moveToFront(locales []string, locale string) []string {
	out := make([]string, 0, len(locales)+1)
	out = append(out, locale)
	for _, l := range locales {
		if l != locale {
			out = append(out, l)
		}
	}
	return out
}

func sortEnglishFirst(countries []string) []string {
	var first, rest []string
	for _, c := range countries {
		if englishSpeakingFirst[strings.ToUpper(c)] {
			first = append(first, c)
		} else {
			rest = append(rest, c)
		}
	}
	return append(first, rest...)
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// envFloatMillis parses a seconds-denominated float env var and returns
// the equivalent number of milliseconds, so the caller can build a
// time.Duration without losing sub-second precision.
func envFloatMillis(key string, def float64) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return int(def * 1000)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return int(def * 1000)
	}
	return int(f * 1000)
}

func envCSV(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
