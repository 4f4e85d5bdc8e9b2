// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the apspack command tree.
//
// Commands are built by factories that receive an *App, so tests can swap the
// config provider, clock and output streams. Execute wires production
// defaults and runs the tree through fang.
package cmd
