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

//go:build windows

package vpn

import "context"

// dismissWindowsPopup is the place for sending ESC to the front VPN
// client window after connect, per SPEC_FULL.md §6; it does nothing,
// and nothing in the package calls it. The reference implementation
// (original_source/app/vpn_manager_windows.py) does this via a UI
// automation library; this deployment only targets Linux runners, so the
// dismissal is a no-op stub rather than a real window-handle lookup.
// TODO: wire a Win32 SendInput call here if a Windows runner is ever added.
func dismissWindowsPopup(_ context.Context) {}
