// cmd/contactform/root.go
//
// Command tree
// ------------
//
//	contactform serve      run the HTTP server (default config discovery)
//	contactform validate   run the form validator offline
//
// Configuration is read from <root>/conf/global.yaml, <root>/conf/.env, and
// CONTACT_* environment variables.  The root is CONTACT_ROOT, or the nearest
// parent of the working directory that holds conf/global.yaml.
package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/yanizio/contactform/components/contact" // registers the contact component
)

var rootCmd = &cobra.Command{
	Use:   "contactform",
	Short: "Contact form service",
	Long: `contactform serves a validated contact form over HTTP, with a live
validation websocket, Prometheus metrics, and hot-reloaded configuration.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, newValidateCmd())
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
