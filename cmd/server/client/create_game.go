package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	gameWorld       string
	gameArea        string
	gameDescription string
)

var createGameCmd = &cobra.Command{
	Use:   "create-game [quest-title]",
	Short: "Host a new game session",
	Long: `Create a game session hosted by the caller and print its invite code. Example:

  create-game "The Sunken Keep" --world Greywater --area "Harbour gate"`,
	Args: cobra.ExactArgs(1),
	RunE: createGame,
}

func init() {
	createGameCmd.Flags().StringVar(&gameWorld, "world", "", "World name")
	createGameCmd.Flags().StringVar(&gameArea, "area", "", "Starting area")
	createGameCmd.Flags().StringVar(&gameDescription, "description", "", "Quest description")
}

func createGame(cmd *cobra.Command, args []string) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	req := map[string]any{
		"quest": map[string]string{
			"title":       args[0],
			"description": gameDescription,
		},
		"world":        gameWorld,
		"startingArea": gameArea,
	}

	var resp struct {
		Session struct {
			ID         string `json:"id"`
			InviteCode string `json:"inviteCode"`
			Status     string `json:"status"`
		} `json:"session"`
	}
	if _, err := api.do(ctx, http.MethodPost, "/games", req, &resp); err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	fmt.Printf("Game created\n")
	fmt.Printf("  ID: %s\n", resp.Session.ID)
	fmt.Printf("  Invite code: %s\n", resp.Session.InviteCode)
	fmt.Printf("  Status: %s\n", resp.Session.Status)
	return nil
}
