// SPDX-License-Identifier: MPL-2.0

// Command jsroll resolves //#require directives into JavaScript bundles.
package main

import cmd "github.com/jsroll/jsroll/cmd/jsroll"

func main() {
	cmd.Execute()
}
