// cmd/contactform/main.go
//
// Contact form service – CLI entry point.  See root.go for the command tree.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
