package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var expectedVersion int64

var submitActionCmd = &cobra.Command{
	Use:   "submit-action [invite-code] [action-json]",
	Short: "Submit a turn action",
	Long: `Submit an action for the caller's character, or for an NPC when the caller hosts. Examples:

  submit-action QRST23 '{"type":"move","x":4,"y":7}'
  submit-action QRST23 '{"type":"basic_attack","targetId":"npc-123"}' --expected-version 12
  submit-action QRST23 '{"type":"end_turn"}'`,
	Args: cobra.ExactArgs(2),
	RunE: submitAction,
}

func init() {
	submitActionCmd.Flags().Int64Var(&expectedVersion, "expected-version", -1, "Reject the action unless the state is still at this version")
}

func submitAction(cmd *cobra.Command, args []string) error {
	if !json.Valid([]byte(args[1])) {
		return fmt.Errorf("action must be a JSON object")
	}

	api, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	req := map[string]any{"action": json.RawMessage(args[1])}
	if expectedVersion >= 0 {
		req["expectedVersion"] = expectedVersion
	}

	var resp map[string]any
	if _, err := api.do(ctx, http.MethodPost, "/games/"+args[0]+"/actions", req, &resp); err != nil {
		return fmt.Errorf("action rejected: %w", err)
	}
	return printJSON(resp)
}
