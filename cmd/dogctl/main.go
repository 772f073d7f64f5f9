// Command dogctl manages the dog list from the terminal, against the same
// store the API server uses.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
