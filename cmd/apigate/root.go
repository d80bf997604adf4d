package main

import (
	"context"
	"fmt"

	"git.sr.ht/~jakintosh/apigate/internal/config"
	"git.sr.ht/~jakintosh/apigate/internal/database"
	"git.sr.ht/~jakintosh/apigate/internal/logging"
	"git.sr.ht/~jakintosh/apigate/internal/service"
	"git.sr.ht/~jakintosh/apigate/pkg/tokens"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "apigate",
		Short: "apigate - client credential gate for the item API",
		Long: `apigate issues signed bearer tokens to registered client applications
in exchange for their app_id and app_secret, and only serves the item API
to requests carrying a valid token from an active application.

Settings come from an optional YAML file (--config), APIGATE_ environment
variables (APIGATE_SIGNING_KEY, APIGATE_DB_PATH, ...) and defaults.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (YAML)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newOperatorCmd(opts))
	cmd.AddCommand(newAppsCmd(opts))
	cmd.AddCommand(newTokenCmd())
	return cmd
}

// runtime is everything a command needs to reach the service layer.
type runtime struct {
	cfg     *config.Config
	loader  *config.Loader
	logger  *logging.Logger
	db      *database.SQLiteStore
	service *service.Service
}

func (o *rootOptions) open() (*runtime, error) {
	loader := config.NewLoader(o.configPath)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	db, err := database.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	issuer, validator := tokens.InitServer([]byte(cfg.SigningKey), cfg.Issuer)
	svc, err := service.New(
		db.ClientAppStore(),
		db.OperatorStore(),
		db.ItemStore(),
		db.UserStore(),
		issuer,
		validator,
		service.Options{
			SecretMode:      service.SecretModeProduction,
			DefaultLifetime: cfg.Token.DefaultLifetime,
			MaxLifetime:     cfg.Token.MaxLifetime,
			Logger:          logger.Named("service"),
		},
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return &runtime{
		cfg:     cfg,
		loader:  loader,
		logger:  logger,
		db:      db,
		service: svc,
	}, nil
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("failed to close database", zap.Error(err))
	}
	_ = rt.logger.Sync()
}

// withRuntime adapts a command body that needs the service layer.
func withRuntime(
	opts *rootOptions,
	run func(ctx context.Context, cmd *cobra.Command, rt *runtime, args []string) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := opts.open()
		if err != nil {
			return err
		}
		defer rt.Close()
		return run(cmd.Context(), cmd, rt, args)
	}
}
