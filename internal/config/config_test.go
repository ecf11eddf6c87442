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

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, map[string]string{"DATABASE_URL": "postgres://localhost/x"})
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, c.LocalesEnabled)
	assert.Equal(t, "en", c.DefaultLocale)
	assert.Equal(t, 5, c.BatchSize)
	assert.Equal(t, 1, c.DispatchWorkerPoolSize)
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
}

func TestDefaultLocalePrependedWhenAbsent(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":    "postgres://localhost/x",
		"LOCALES_ENABLED": "es,fr",
		"DEFAULT_LOCALE":  "en",
	})
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "es", "fr"}, c.LocalesEnabled)
}

func TestDefaultLocaleMovedToFrontWhenPresent(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":    "postgres://localhost/x",
		"LOCALES_ENABLED": "es,en,fr",
		"DEFAULT_LOCALE":  "en",
	})
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "es", "fr"}, c.LocalesEnabled)
}

func TestVPNCountriesEnglishFirst(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":  "postgres://localhost/x",
		"VPN_COUNTRIES": "ES,DE,US,FR,CA",
	})
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "CA", "ES", "DE", "FR"}, c.VPNCountries)
}

func TestUnknownLocaleRejected(t *testing.T) {
	withEnv(t, map[string]string{
		"DATABASE_URL":    "postgres://localhost/x",
		"LOCALES_ENABLED": "xx",
	})
	_, err := Load()
	require.Error(t, err)
}
