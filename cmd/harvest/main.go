// cmd/harvest/main.go
package main

import (
	"github.com/jobharbor/harvest/internal/cli"
)

func main() {
	// Execute CLI (app initialization happens inside cli.Execute; the
	// schedule command installs its own signal handling for graceful stop)
	cli.Execute()
}
