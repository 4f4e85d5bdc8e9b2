// SPDX-License-Identifier: MPL-2.0

// apspack builds APS application packages from a source tree.
package main

import "github.com/apspack/apspack/cmd/apspack"

func main() {
	cmd.Execute()
}
