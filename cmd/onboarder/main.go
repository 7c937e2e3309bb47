// Package main hosts the onboarder entrypoint.
//
// The serve command exposes the HTTP API (internal/api) and drains queued imports
// through a fixed worker pool. The import command runs one import in the
// foreground. Configuration comes from an optional file plus ONBOARDER_ env vars.
package main

import "github.com/JakeFAU/receptionist-onboarding/cmd"

func main() {
	cmd.Execute()
}
