package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/searchagent/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/searchagent/internal/logger"
	searchagent "github.com/kailas-cloud/searchagent/pkg/sdk"
)

func newAskCmd() *cobra.Command {
	var userID, server, apiKey string
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer one query and print the JSON response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := request.New(args[0], userID)
			if err != nil {
				return err //nolint:wrapcheck // validation message is user-facing
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if server != "" {
				return askRemote(ctx, enc, server, apiKey, req)
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.search.Handle(logpkg.ContextWithLogger(ctx, logger), req)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			return enc.Encode(resp) //nolint:wrapcheck // stdout write
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "caller identity; omit for an anonymous query")
	cmd.Flags().StringVar(&server, "server", "", "query a running server at this URL instead of in-process")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "bearer API key for --server")
	return cmd
}

// askRemote sends the query to a running server through the client SDK.
func askRemote(ctx context.Context, enc *json.Encoder, server, apiKey string, req request.Request) error {
	client, err := searchagent.New(server, searchagent.WithAPIKey(apiKey))
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	var opts []searchagent.SearchOption
	if !req.Anonymous() {
		opts = append(opts, searchagent.AsUser(req.Identity()))
	}
	resp, err := client.Search(ctx, req.Query(), opts...)
	if err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	return enc.Encode(resp) //nolint:wrapcheck // stdout write
}
