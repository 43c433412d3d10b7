package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amoylab/rowgate/internal/apiserver"
	"github.com/amoylab/rowgate/internal/auth"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/pkg/trace"
	"github.com/amoylab/rowgate/pkg/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	auditFrom  string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rowgate",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", cnst.CommandName, version.Get())
		},
	}

	secretCmd = &cobra.Command{
		Use:   "secret",
		Short: "Generate a random admin secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := auth.RandomString(auth.AdminSecretLength)
			if err != nil {
				return err
			}
			fmt.Println(s)
			return nil
		},
	}

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Inspect the admin audit stream",
	}

	auditTailCmd = &cobra.Command{
		Use:   "tail",
		Short: "Print admin audit events as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tailAudit(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the rowgate HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	rootCmd = &cobra.Command{
		Use:   cnst.CommandName,
		Short: "Row-scoping SQL gateway",
		Long:  `rowgate exposes a relational database over HTTP to many apps and users, scoping every row to its owner`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", cnst.DefaultConfigFile, "path to configuration file, like /etc/rowgate/rowgate.yaml")
	auditTailCmd.Flags().StringVar(&auditFrom, "from", "$", "stream id to start after; \"0\" replays the whole stream")
	auditCmd.AddCommand(auditTailCmd)
	rootCmd.AddCommand(versionCmd, secretCmd, serveCmd, auditCmd)
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := loadConfig(configPath)
	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting rowgate", zap.String("version", version.Get()))

	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, logger)
	if err != nil {
		logger.Error("Failed to init tracing", zap.Error(err))
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	db := initDatabase(logger, &cfg.Database)
	defer db.Close()

	ntf := initNotifier(logger, &cfg.Notifier)
	defer ntf.Close()

	if cfg.AdminSecret == "" {
		logger.Warn("admin_secret is empty, the admin console will reject every request")
	}

	srv := apiserver.NewServer(logger, cfg, db, ntf, initMetrics(cfg))
	serveErr := srv.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("failed to start server", zap.Error(err))
			return err
		}
		return nil
	case <-quit:
	}

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("failed to shutdown server", zap.Error(err))
		return err
	}
	return nil
}

func tailAudit(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig(configPath)
	logger := initLogger(cfg)
	defer logger.Sync()

	ntf := initNotifier(logger, &cfg.Notifier)
	defer ntf.Close()

	events, err := ntf.Watch(ctx, auditFrom)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	log.SetFlags(0)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
