package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	pollInterval time.Duration
	pollCount    int
)

var pollCmd = &cobra.Command{
	Use:   "poll [invite-code]",
	Short: "Poll a session's state and print each new version",
	Long: `Poll the state endpoint the way game clients do. The server's interval hint
is used unless --interval is set. Example:

  poll QRST23 --count 10`,
	Args: cobra.ExactArgs(1),
	RunE: poll,
}

func init() {
	pollCmd.Flags().DurationVar(&pollInterval, "interval", 0, "Poll interval; 0 uses the server hint")
	pollCmd.Flags().IntVar(&pollCount, "count", 0, "Stop after this many polls; 0 polls until interrupted")
}

// snapshotSummary is the part of a snapshot the poller prints
type snapshotSummary struct {
	GameState struct {
		Session struct {
			Status string `json:"status"`
		} `json:"session"`
		Tokens []json.RawMessage `json:"tokens"`
		Turn   struct {
			ActiveTurn *struct {
				EntityID   string `json:"entityId"`
				TurnNumber int    `json:"turnNumber"`
			} `json:"activeTurn"`
		} `json:"turn"`
		RecentLog []struct {
			Description string `json:"description"`
		} `json:"recentLog"`
	} `json:"gameState"`
	StateVersion   int64 `json:"stateVersion"`
	PollIntervalMs int64 `json:"pollIntervalMs"`
}

// fetchState reads the snapshot once
func fetchState(ctx context.Context, api *apiClient, code string) (*snapshotSummary, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var state snapshotSummary
	if _, err := api.get(reqCtx, "/games/"+code+"/state", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func poll(cmd *cobra.Command, args []string) error {
	api, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lastVersion := int64(-1)
	for i := 0; pollCount == 0 || i < pollCount; i++ {
		state, err := fetchState(ctx, api, args[0])
		if err != nil {
			return fmt.Errorf("failed to poll state: %w", err)
		}
		if state.StateVersion != lastVersion {
			printSummary(state)
			lastVersion = state.StateVersion
		}

		wait := pollInterval
		if wait <= 0 {
			wait = time.Duration(state.PollIntervalMs) * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
	return nil
}

func printSummary(state *snapshotSummary) {
	fmt.Printf("[v%d] %s, %d tokens", state.StateVersion, state.GameState.Session.Status, len(state.GameState.Tokens))
	if active := state.GameState.Turn.ActiveTurn; active != nil {
		fmt.Printf(", turn %d: %s", active.TurnNumber, active.EntityID)
	}
	fmt.Println()
	if n := len(state.GameState.RecentLog); n > 0 {
		fmt.Printf("  last: %s\n", state.GameState.RecentLog[n-1].Description)
	}
}
