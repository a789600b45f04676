// Package main is the entry point for the tabletop API server and test client
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/tabletop-api/cmd/server/client"
)

var rootCmd = &cobra.Command{
	Use:   "tabletop-api",
	Short: "Tabletop game-state and map API",
	Long:  `Tabletop API hosts game sessions, generated battle maps, tokens and turn-based combat over HTTP.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(client.ClientCmd)
}
