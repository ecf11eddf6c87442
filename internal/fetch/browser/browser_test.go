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

package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corralejo/listing-harvester/internal/fetch"
)

func TestDebugLabelMapsOutcomes(t *testing.T) {
	assert.Equal(t, "browser_blocked", debugLabel(fetch.OutcomeBlocked))
	assert.Equal(t, "browser_not_hotel", debugLabel(fetch.OutcomeNotHotelPage))
	assert.Equal(t, "", debugLabel(fetch.OutcomeOK))
}
