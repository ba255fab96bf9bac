// Command homerank-index builds the default catalog's index artifacts and
// runs ad-hoc queries against them.
package main

import (
	"os"
)

func main() {
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
