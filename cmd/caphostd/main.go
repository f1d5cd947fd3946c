// Command caphostd is the capability-provider host's bootstrap CLI: it
// loads a config file, constructs a Host, registers every configured
// provider and middleware, and serves the admin HTTP introspection
// surface until terminated.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Register built-in provider and middleware factories so they can be
	// loaded from config by name.
	_ "github.com/ferro-labs/caphost/middlewares/logger"
	_ "github.com/ferro-labs/caphost/providers/bedrockllm"
	_ "github.com/ferro-labs/caphost/providers/httpclient"
	_ "github.com/ferro-labs/caphost/providers/kvstore"
	_ "github.com/ferro-labs/caphost/providers/openaillm"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caphostd",
		Short: "Capability-provider host runtime",
		Long:  "Load capability providers, broker invocations between them and an actor runtime, and expose an admin introspection surface.",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
