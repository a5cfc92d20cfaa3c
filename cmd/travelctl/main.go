// Command travelctl standardizes travel-document text, processes capture
// folders and prepares customs declarations from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joseph-ayodele/traveler-intake/internal/bootstrap"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/server"
)

const service = "travelctl"

type globals struct {
	configPath string
	addr       string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           service,
		Short:         "Traveler document intake tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", os.Getenv("CONFIG_FILE"), "YAML settings file")
	root.PersistentFlags().StringVar(&g.addr, "addr", "", "travelerd gRPC address; empty runs locally")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override LOG_LEVEL")

	root.AddCommand(
		newStandardizeCmd(g),
		newBatchCmd(g),
		newExportCmd(g),
		newGetCmd(g),
		newKeyCmd(g),
		newDeclareCmd(g),
	)
	return root
}

func (g *globals) config() (*common.Config, error) {
	cfg, err := common.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// logger writes to stderr so command output stays machine readable.
func (g *globals) logger(cfg *common.Config) *slog.Logger {
	return common.NewLoggerTo(os.Stderr, service, cfg.Log.Level)
}

func (g *globals) app(ctx context.Context) (*bootstrap.App, *slog.Logger, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := g.logger(cfg)
	app, err := bootstrap.New(ctx, cfg, service, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, logger, nil
}

func (g *globals) client() (*server.ExtractionClient, func(), error) {
	conn, err := grpc.NewClient(g.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", g.addr, err)
	}
	return server.NewExtractionClient(conn), func() { conn.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
