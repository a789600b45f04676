// Package client provides test commands for the tabletop HTTP API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/tabletop-api/internal/auth"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
)

const maxReadAttempts = 4

var (
	// Connection flags
	serverURL string
	token     string
	timeout   time.Duration

	// Development tokens
	signSecret string
	userID     string
)

// ClientCmd is the root command for all client test commands
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: "Test client commands for the tabletop API",
	Long: `Client commands exercise a running server with real HTTP requests.

Pass a bearer token with --token (or TABLETOP_TOKEN). Against a development
server, --sign-secret signs a short-lived token for --user instead.`,
}

func init() {
	ClientCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "API base URL")
	ClientCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("TABLETOP_TOKEN"), "Bearer token")
	ClientCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	ClientCmd.PersistentFlags().StringVar(&signSecret, "sign-secret", "", "Sign a development token with this secret")
	ClientCmd.PersistentFlags().StringVar(&userID, "user", "dev-user", "User id for signed development tokens")

	ClientCmd.AddCommand(createGameCmd)
	ClientCmd.AddCommand(pollCmd)
	ClientCmd.AddCommand(generateMapCmd)
	ClientCmd.AddCommand(submitActionCmd)
}

// apiClient sends JSON requests and turns error bodies back into *errors.Error
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryWait  time.Duration
}

// newAPIClient builds a client from the persistent flags
func newAPIClient() (*apiClient, error) {
	bearer := token
	if bearer == "" && signSecret != "" {
		verifier, err := auth.NewVerifier(&auth.Config{Secret: []byte(signSecret), Clock: clock.New()})
		if err != nil {
			return nil, err
		}
		bearer, err = verifier.Sign(auth.Identity{UserID: userID, Email: userID + "@localhost"}, time.Hour)
		if err != nil {
			return nil, err
		}
	}
	if bearer == "" {
		return nil, fmt.Errorf("a token is required: pass --token or --sign-secret")
	}

	return &apiClient{
		baseURL:    strings.TrimRight(serverURL, "/"),
		token:      bearer,
		httpClient: &http.Client{Timeout: timeout},
		retryWait:  250 * time.Millisecond,
	}, nil
}

// do sends one request. out may be nil. The response headers are returned
// for successful calls.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to read response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, errors.FromResponse(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// get is do for reads, retried with backoff while the server is unavailable
func (c *apiClient) get(ctx context.Context, path string, out any) (http.Header, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait

	return backoff.Retry(ctx, func() (http.Header, error) {
		header, err := c.do(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return header, nil
		}
		switch errors.GetCode(err) {
		case errors.CodeUnavailable, errors.CodeInternal:
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxReadAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			slog.WarnContext(ctx, "Retrying request",
				"path", path,
				"wait", wait,
				"error", err,
			)
		}),
	)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
