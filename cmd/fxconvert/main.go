// Command fxconvert converts amounts between currencies. It talks to the
// fintrack currency API when reachable and falls back to a local SQLite
// cache of the last known rates otherwise.
package main

import (
	"fmt"
	"os"

	"fintrack/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	err := a.rootCmd().Execute()
	// waits for a pending default push before closing the cache
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
