package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/area-calc/internal/cli"
	"github.com/fpang/area-calc/internal/config"
	"github.com/fpang/area-calc/internal/connectivity"
	"github.com/fpang/area-calc/internal/desktop"
	"github.com/fpang/area-calc/internal/logging"
	"github.com/fpang/area-calc/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Set at build time with -ldflags "-X main.version=... -X main.commitHash=...".
var (
	version    = "dev"
	commitHash = ""
)

// CLI state shared by all commands, resolved in setup.
var (
	noDialogsFlag bool

	settings  = config.New()
	cfg       *config.Config
	logCloser io.Closer
	startTime time.Time
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "areacalc",
	Short: "Estimate the area of a drawn shape from a photo",
	Long: `areacalc sends a photo of a hand-drawn or printed shape, annotated with
its measurements, to an area estimation server and shows the estimated area
together with the recognized text, the numbers found in it and the size of
the detected contour.

Run without a subcommand for the interactive mode: pick a photo (native file
dialog or a path), choose a unit, and calculate. The client watches the
server's reachability and closes after a connection loss is acknowledged.

Configuration is read from ./areacalc.yaml or ~/.config/areacalc/areacalc.yaml,
then AREACALC_* environment variables, then flags.

Examples:
  areacalc
  areacalc --server http://10.0.2.2:5000
  areacalc measure --image shape.jpg --unit cm
  areacalc check`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runInteractive,
}

func init() {
	config.AddFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolVar(&noDialogsFlag, "no-dialogs", false, "use the terminal instead of native dialogs")
	rootCmd.AddCommand(checkCmd, measureCmd)
}

func main() {
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and configures logging for every command.
func setup(cmd *cobra.Command, args []string) error {
	startTime = time.Now()
	logging.Init()

	if err := config.BindFlags(settings, cmd.Flags()); err != nil {
		return err
	}
	configFile, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(settings, configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	logCloser, err = logging.Configure(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	if cfg.File != "" {
		log.Debug().Str("file", cfg.File).Msg("Configuration file loaded")
	}
	return nil
}

// closeLog releases the log file. It runs after every command, failed or not;
// cobra skips post-run hooks when RunE returns an error.
func closeLog() {
	if logCloser == nil {
		return
	}
	if err := logCloser.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
	}
	logCloser = nil
}

func logStartup(name string, dialogs bool) {
	logging.NewStartupLogger(name).
		Version(version).
		CommitHash(commitHash).
		Endpoint("server", cfg.ServerURL).
		Endpoint("probe", cfg.ProbeURL).
		Feature("nativeDialogs", dialogs).
		Feature("logFile", cfg.LogFile != "").
		Config("probeInterval", cfg.ProbeInterval.String()).
		Config("requestTimeout", cfg.RequestTimeout.String()).
		InitDuration(time.Since(startTime)).
		Log()
}

// runInteractive runs the command loop, the session controller and the
// connectivity guard until the user quits or a signal arrives.
func runInteractive(cmd *cobra.Command, args []string) error {
	client, err := cli.InitMeasureClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var picker cli.Picker
	if !noDialogsFlag {
		picker = desktop.NewPicker()
	}
	shell := cli.NewShell(cli.ShellOpts{
		In:       cmd.InOrStdin(),
		Out:      cmd.OutOrStdout(),
		Picker:   picker,
		Describe: cli.DescribeImage,
	})
	ctrl := session.NewController(client, shell.OnChange)
	shell.Attach(ctrl)

	var notifier connectivity.Notifier = shell
	if !noDialogsFlag {
		notifier = desktop.NewAlert()
	}
	prober := connectivity.NewProber(connectivity.ProberOpts{
		URL:      cfg.ProbeURL,
		Interval: cfg.ProbeInterval,
	})
	guard := connectivity.NewGuard(connectivity.GuardOpts{
		Source:   prober,
		Notifier: notifier,
		OnLost: func() {
			if err := ctrl.CancelInFlight(); err != nil {
				log.Debug().Err(err).Msg("Could not cancel in-flight measurement")
			}
		},
	})

	logStartup("areacalc", !noDialogsFlag)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(ctx) })
	g.Go(func() error { return guard.Run(ctx) })
	g.Go(func() error { return prober.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		return shell.Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
