// Package cli implements the equifolio command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"equifolio/internal/analysis"
	"equifolio/internal/config"
	"equifolio/internal/util"
)

// Version is set at build time with -ldflags "-X equifolio/internal/cli.Version=...".
var Version = "dev"

type ctxKey string

const appKey ctxKey = "app"

// app carries the dependencies shared by subcommands.
type app struct {
	cfg    *config.Config
	client *analysis.Client
	log    *slog.Logger
	opts   *options
}

// options are the persistent flags.
type options struct {
	configPath string
	backend    string
	json       bool
	pager      bool
	width      int
}

// Execute builds the root command and runs it.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "equifolio",
		Short:         "Stock analysis from the terminal",
		Long:          "Request sentiment, fundamental, technical and portfolio risk analyses from the EquiFolio backend and render the narrative in the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, appKey, a))
			return nil
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Config file (default: $EQUIFOLIO_CONFIG or "+config.DefaultPath+")")
	f.StringVar(&opts.backend, "backend", "", "Analysis backend base URL (overrides config)")
	f.BoolVar(&opts.json, "json", false, "Print JSON instead of rendered text")
	f.BoolVar(&opts.pager, "pager", false, "Show output in a scrollable full-screen view")
	f.IntVar(&opts.width, "width", 0, "Wrap width (default: terminal width or 80)")

	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newSentimentCmd())
	cmd.AddCommand(newFundamentalCmd())
	cmd.AddCommand(newTechnicalCmd())
	cmd.AddCommand(newRiskCmd())
	cmd.AddCommand(newPortfolioCmd())
	cmd.AddCommand(newNewsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newApp(opts *options, cmd *cobra.Command) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	path := opts.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.backend != "" {
		cfg.Backend.BaseURL = opts.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.width < 0 {
		return nil, errors.New("--width must not be negative")
	}

	// Logs go to stderr so they never mix with rendered output.
	log := util.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level, "text")
	return &app{
		cfg:    cfg,
		client: analysis.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout),
		log:    log,
		opts:   opts,
	}, nil
}

func getApp(cmd *cobra.Command) *app {
	v := cmd.Context().Value(appKey)
	if v == nil {
		fmt.Fprintln(os.Stderr, "internal error: app not initialized")
		os.Exit(1)
	}
	return v.(*app)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "equifolio "+Version)
		},
	}
}
