// Command sx is the command-line front end of the sx ledger.
package main

import "github.com/xuxxeth/sx/internal/cli"

func main() {
	cli.Main()
}
