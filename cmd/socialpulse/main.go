// Command socialpulse tracks competitors' YouTube and Instagram activity and
// emails AI-written trend reports.
//
//	socialpulse serve                       run the HTTP API and the resend sweep
//	socialpulse summarize --user alice      run one summary cycle now
//	socialpulse resend                      run the resend sweep once
//	socialpulse verify --platform youtube --handle @nasa
package main

import (
	"fmt"
	"os"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
