// Command pdevs runs P-DEVS networks described in YAML or TOML files.
package main

import "github.com/sarchlab/pdevs/pdevs/cmd"

func main() {
	cmd.Execute()
}
