// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers shared by apspack tests.
//
// Helpers cover process state (MustChdir, MustSetenv, IsolateConfig),
// package source trees (WriteTree, WriteDescriptor) and time (FakeClock).
// Every Must* helper fails the test immediately instead of returning an error.
package testutil
