// Command pluginhost is the Plugin Runtime's host process: a CLI for
// installing, starting, stopping, and listing plugins against a local
// registry store, plus a "serve" mode that bootstraps every active plugin
// and exposes the C8 gRPC surface for out-of-process callers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/Ikey168/Modulo-sub007/internal/config"
	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/pluginrpc"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "pluginhost",
		Short:        "Modulo plugin runtime host",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a pluginhost.yaml config file")

	root.AddCommand(
		installCmd(),
		startCmd(),
		stopCmd(),
		uninstallCmd(),
		listCmd(),
		searchCmd(),
		categoriesCmd(),
		featuredCmd(),
		validateCmd(),
		clearCacheCmd(),
		serveCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func installCmd() *cobra.Command {
	var cfgFlags map[string]string
	cmd := &cobra.Command{
		Use:   "install <path-or-url>",
		Short: "Install a plugin from a local bundle path or remote URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			h, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer h.store.Close()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout()+cfg.ReadTimeout())
			defer cancel()

			id, err := h.manager.Install(ctx, args[0], cfgFlags)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().StringToStringVar(&cfgFlags, "set", nil, "plugin configuration key=value pairs")
	return cmd
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <plugin-id>",
		Short: "Start an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			h, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer h.store.Close()
			return h.manager.Start(context.Background(), args[0])
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <plugin-id>",
		Short: "Stop a running plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			h, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer h.store.Close()
			return h.manager.Stop(context.Background(), args[0])
		},
	}
}

func uninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <plugin-id>",
		Short: "Stop and remove an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			h, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer h.store.Close()
			return h.manager.Uninstall(context.Background(), args[0])
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every in-memory tracked plugin instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			h, err := newHost(cfg)
			if err != nil {
				return err
			}
			defer h.store.Close()

			if err := h.manager.Bootstrap(context.Background()); err != nil {
				return err
			}
			for _, inst := range h.manager.List() {
				fmt.Printf("%s\t%s\t%s\t%s\n", inst.ID, inst.Descriptor.Name, inst.Descriptor.Version, inst.State)
			}
			return nil
		},
	}
}

// serveCmd bootstraps every previously-active plugin, starts the health
// sweep, and exposes the gRPC surface until a termination signal arrives -
// the long-running daemon mode.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the plugin host as a long-lived daemon with the gRPC surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func runServe(cfg *config.Config) error {
	h, err := newHost(cfg)
	if err != nil {
		return err
	}
	defer h.store.Close()

	ctx := context.Background()
	if err := h.manager.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := h.manager.StartHealthSweep(cfg.HealthSweepCron); err != nil {
		return fmt.Errorf("start health sweep: %w", err)
	}

	lis, err := newListener(cfg.GRPCListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(pluginrpc.RateLimitInterceptor(cfg.GRPCRateLimitRPS, cfg.GRPCRateLimitBurst)),
	)
	pluginrpc.RegisterPluginHostServer(grpcServer, pluginrpc.NewServer(h.manager))

	serveErrs := make(chan error, 1)
	go func() {
		logger.Runtime().Info().Str("addr", cfg.GRPCListenAddr).Msg("plugin host gRPC surface listening")
		serveErrs <- grpcServer.Serve(lis)
	}()

	if ok, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
		logger.Runtime().Warn().Err(notifyErr).Msg("systemd readiness notification failed")
	} else if ok {
		logger.Runtime().Info().Msg("notified systemd: ready")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrs:
		if err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
	case s := <-sig:
		logger.Runtime().Info().Str("signal", s.String()).Msg("shutting down plugin host")
	}

	if ok, notifyErr := daemon.SdNotify(false, daemon.SdNotifyStopping); notifyErr == nil && ok {
		logger.Runtime().Info().Msg("notified systemd: stopping")
	}

	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	h.manager.Shutdown(shutdownCtx)

	return nil
}
