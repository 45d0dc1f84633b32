// Command lawdesk is a command line client and caching proxy for the
// lawdesk case-management API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
