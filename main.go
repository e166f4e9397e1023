// SPDX-License-Identifier: MPL-2.0

package main

import cmd "infinityctl/cmd/infinityctl"

func main() {
	cmd.Execute()
}
