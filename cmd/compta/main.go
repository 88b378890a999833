/*
main.go - Application entry point

PURPOSE:
  Thin shim over the cli package. All startup logic lives in cli/ so
  subcommands stay testable.

SEE ALSO:
  - cli/root.go: Command tree and configuration bootstrap
*/
package main

import "github.com/atlas/compta-engine/cli"

func main() {
	cli.Execute()
}
