// Command notifyctl is a terminal client for notification preferences
// and the notification feed, plus a reference server for local use.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
