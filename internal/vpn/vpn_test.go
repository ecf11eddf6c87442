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

package vpn

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCLI struct {
	mtx       sync.Mutex
	connected string
	fail      bool
}

func (f *fakeCLI) Disconnect(ctx context.Context) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.connected = ""
	return nil
}

func (f *fakeCLI) Connect(ctx context.Context, country string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.fail {
		return assertErr
	}
	f.connected = country
	return nil
}

var assertErr = errorString("connect failed")

type errorString string

func (e errorString) Error() string { return string(e) }

type fakeProber struct {
	mtx   sync.Mutex
	ip    string
	err   error
	calls int
}

func (f *fakeProber) CurrentIP(ctx context.Context) (string, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.calls++
	return f.ip, f.err
}

type fakeLog struct {
	mtx     sync.Mutex
	entries []RotationEntry
}

func (f *fakeLog) Append(ctx context.Context, e RotationEntry) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.entries = append(f.entries, e)
}

func TestIsActiveWhenIPUnknownIsTrue(t *testing.T) {
	prober := &fakeProber{err: assertErr}
	c := New(context.Background(), &fakeCLI{}, prober, &fakeLog{}, nil, []string{"US", "ES"})
	assert.True(t, c.IsActive(context.Background()))
}

func TestIsActiveReflectsIPChange(t *testing.T) {
	prober := &fakeProber{ip: "1.1.1.1"}
	c := New(context.Background(), &fakeCLI{}, prober, &fakeLog{}, nil, []string{"US", "ES"})
	assert.False(t, c.IsActive(context.Background()))

	prober.mtx.Lock()
	prober.ip = "2.2.2.2"
	prober.mtx.Unlock()
	c.invalidateIPCacheLocked()
	assert.True(t, c.IsActive(context.Background()))
}

func TestConnectPicksEnglishFirstWhenNoCountryGiven(t *testing.T) {
	cli := &fakeCLI{}
	prober := &fakeProber{ip: "1.1.1.1"}
	c := New(context.Background(), cli, prober, &fakeLog{}, nil, []string{"US", "ES", "DE"})
	require.NoError(t, c.Connect(context.Background(), ""))
	assert.Equal(t, "US", cli.connected)
}

func TestRotateFallsBackToOnlyConfiguredCountry(t *testing.T) {
	cli := &fakeCLI{}
	prober := &fakeProber{ip: "1.1.1.1"}
	c := New(context.Background(), cli, prober, &fakeLog{}, nil, []string{"US"})
	require.NoError(t, c.Connect(context.Background(), "US"))
	require.NoError(t, c.Rotate(context.Background(), ReasonMismatch))
	// Only one configured country: rotate must fall back to it rather than fail.
	assert.Equal(t, "US", cli.connected)
}

func TestReconnectIfDisconnectedNoopWhenActive(t *testing.T) {
	cli := &fakeCLI{}
	prober := &fakeProber{ip: "1.1.1.1"}
	c := New(context.Background(), cli, prober, &fakeLog{}, nil, []string{"US"})

	// Simulate an already-active VPN: the egress IP now differs from the
	// captured original, without going through Connect.
	prober.mtx.Lock()
	prober.ip = "9.9.9.9"
	prober.mtx.Unlock()
	c.invalidateIPCacheLocked()

	require.NoError(t, c.ReconnectIfDisconnected(context.Background()))
	assert.Empty(t, cli.connected, "CLI must not be invoked when already active")
}

func TestReconnectIfDisconnectedReconnectsWhenDown(t *testing.T) {
	cli := &fakeCLI{}
	prober := &fakeProber{ip: "1.1.1.1"}
	c := New(context.Background(), cli, prober, &fakeLog{}, nil, []string{"US"})

	// IP still equals original: VPN looks down.
	require.NoError(t, c.ReconnectIfDisconnected(context.Background()))
	assert.Equal(t, "US", cli.connected)
}
