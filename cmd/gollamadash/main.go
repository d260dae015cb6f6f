// cmd/gollamadash/main.go
package main

import (
	cmd "github.com/mwiater/gollamadash/internal/commands"
)

// main starts the gollamadash CLI application by delegating to the
// cobra root command defined in the gollamadash package. It does not
// take any arguments and does not return a value.
func main() {
	cmd.Execute()
}
