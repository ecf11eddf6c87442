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
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// ExecCLI shells out to a VPN client binary on the host OS. Arguments are
// always passed as an argument vector — never through a shell — so
// country names can never be interpreted as shell metacharacters.
type ExecCLI struct {
	// BinaryPath is the VPN client executable, e.g. "nordvpn".
	BinaryPath string
}

func NewExecCLI(binaryPath string) *ExecCLI {
	return &ExecCLI{BinaryPath: binaryPath}
}

func (e *ExecCLI) Disconnect(ctx context.Context) error {
	_, err := e.run(ctx, "disconnect")
	// Every error is returned as is, including one from a client that
	// was already disconnected; connectLocked logs a Disconnect error at
	// Warn and goes on to connect.
	return err
}

func (e *ExecCLI) Connect(ctx context.Context, country string) error {
	out, err := e.run(ctx, "connect", country)
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(out), "connected") {
		return nil
	}
	return err
}

func (e *ExecCLI) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.BinaryPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	text := out.String()
	if err != nil {
		return text, errors.Wrapf(err, "running %s %v", e.BinaryPath, args)
	}
	return text, nil
}
