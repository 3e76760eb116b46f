// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/modsmith/modsmith/cmd/modsmith"

func main() {
	cmd.Execute()
}
