// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Maxim Kamenev

// Package client implements the memobox client application runtime.
//
// It wires the local mirror, the offline change queue, the server adapter
// and the sync orchestrator into one process, and exposes a small command
// surface (register, login, memo and category CRUD, sync, status, conflict
// resolution, and a long-running agent mode).
package client
