package cmd

import (
	"os/signal"
	"syscall"

	"storefront-guard/internal/logging"
	"storefront-guard/internal/redisconn"
	"storefront-guard/internal/server"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the guard in front of the storefront",
		Long: `Start the reverse proxy with rate limiting and bearer authentication.

SIGINT or SIGTERM trigger a graceful shutdown bounded by server.shutdown_timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var rdb *redis.Client
			if cfg.UsesRedis() {
				rdb, err = redisconn.Connect(ctx, cfg.Redis, logger.Named("redis"))
				if err != nil {
					return err
				}
				defer func() { _ = rdb.Close() }()
			}
			if cfg.Auth.AdminToken == "" {
				logger.Warn("auth.admin_token is empty, protected prefixes will always answer 401",
					zap.Strings("protected_prefixes", cfg.Auth.ProtectedPrefixes))
			}

			srv, err := server.New(cfg, logger, redisClient(rdb))
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}
}

// evita passar um *redis.Client nil embrulhado numa interface não nil.
func redisClient(rdb *redis.Client) redis.UniversalClient {
	if rdb == nil {
		return nil
	}
	return rdb
}
