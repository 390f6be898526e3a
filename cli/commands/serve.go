package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smallnest/agentbridge/config"
	"github.com/smallnest/agentbridge/gateway"
	"github.com/smallnest/agentbridge/internal/logger"
	"github.com/smallnest/agentbridge/runtime/replay"
	"github.com/smallnest/agentbridge/stream"
)

var (
	serveConfigPath string
	serveBind       string
	servePort       int
	serveToken      string
	serveAuth       bool
	serveScript     string
)

// ServeCommand returns the serve command.
func ServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket gateway",
		Long: `Run the agentbridge gateway. Clients invoke, cancel, and resume agent
runs over JSON-RPC and receive stream events as notifications on
per-thread channels.`,
		RunE: runServe,
	}
	cmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Config file path")
	cmd.Flags().StringVarP(&serveBind, "bind", "b", "", "Bind address (overrides config)")
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "Gateway port (overrides config)")
	cmd.Flags().StringVarP(&serveToken, "token", "t", "", "Authentication token")
	cmd.Flags().BoolVar(&serveAuth, "auth", false, "Enable authentication")
	cmd.Flags().StringVar(&serveScript, "replay", "", "JSONL snapshot script for the replay runtime")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}
	if serveBind != "" {
		cfg.Gateway.Host = serveBind
	}
	if servePort != 0 {
		cfg.Gateway.Port = servePort
	}
	if serveToken != "" {
		cfg.Gateway.AuthToken = serveToken
		cfg.Gateway.EnableAuth = true
	}
	if serveAuth {
		cfg.Gateway.EnableAuth = true
	}
	if serveScript != "" {
		cfg.Replay.Script = serveScript
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}

	notifier := gateway.NewNotifier()
	svc := stream.NewService(rt, notifier, func(o *stream.Options) {
		o.ChannelPrefix = cfg.Stream.ChannelPrefix
		if cfg.Stream.Workdir != "" {
			o.Workdir = cfg.Stream.Workdir
		}
	})
	handler := gateway.NewHandler(svc, notifier, cfg.Stream.ChannelPrefix)
	server := gateway.NewServer(&cfg.Gateway, handler, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	cancel()
	if err := server.Stop(); err != nil {
		return err
	}
	svc.Wait()
	return nil
}

// buildRuntime attaches the replay runtime; embedding applications plug a
// live runtime through the stream package directly.
func buildRuntime(cfg *config.Config) (stream.AgentRuntime, error) {
	if cfg.Replay.Script == "" {
		return replay.New(nil), nil
	}
	script, err := replay.LoadScript(cfg.Replay.Script)
	if err != nil {
		return nil, err
	}
	logger.Info("replay runtime loaded",
		zap.String("script", cfg.Replay.Script),
		zap.Int("snapshots", len(script)))
	return replay.New(script), nil
}
