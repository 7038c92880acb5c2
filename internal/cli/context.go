// Package cli provides the command-line interface for the harvest pipeline.
package cli

import (
	"github.com/jobharbor/harvest/internal/app"
)

// Global reference - set in PersistentPreRunE, cleared after the command runs
var globalApp *app.Application

// GetApp retrieves the initialized Application
func GetApp() *app.Application {
	return globalApp
}
