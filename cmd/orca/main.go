package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"orca/config"
	"orca/flow"
	"orca/misc"
	"orca/state"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			// we do not want any of your secrets!
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.LefFiles = cmd.StringSlice("lef")
	env.LibFiles = cmd.StringSlice("liberty")
	env.SdcFiles = cmd.StringSlice("sdc")
	env.CodePage = cmd.String("force-zip-cp")
	env.Overwrite = cmd.Bool("overwrite")

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling - for me cli.Exit() looks
// non-transparent and unnesessary. I will return regular errors from
// subcommands.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {

	// allow graceful shutdown on interrupt.
	// NOTE: operations can run for a while on big designs, make sure Ctrl-C
	// unwinds through context cancellation rather than killing us mid-write
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "physical design toolkit: placement, pin assignment and power grid analysis",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"w"}, Usage: "overwrite existing destination files"},
			&cli.StringSliceFlag{Name: "lef", Usage: "technology/cell `FILE` (LEF), repeat for multiple files"},
			&cli.StringSliceFlag{Name: "liberty", Usage: "timing library `FILE` (Liberty), repeat for multiple files"},
			&cli.StringSliceFlag{Name: "sdc", Usage: "constraints `FILE` (SDC), repeat for multiple files"},
			&cli.StringFlag{Name: "force-zip-cp",
				Usage: "Force `ENCODING` for ALL non UTF-8 input files (see IANA.org for character set names)"},
		},
		Commands: []*cli.Command{
			{
				Name:         "place",
				Usage:        "Globally places movable components of a design",
				OnUsageError: usageErrorHandler,
				Action:       flow.Place,
				Flags: []cli.Flag{
					&cli.FloatFlag{Name: "density", Usage: "target bin `DENSITY` (0, 1]"},
					&cli.FloatFlag{Name: "overflow", Usage: "stop once density overflow drops below `VALUE`"},
					&cli.IntFlag{Name: "max-iters", Usage: "density iteration cap"},
					&cli.Int64Flag{Name: "seed", Usage: "random seed for the initial spread"},
					&cli.BoolFlag{Name: "incremental", Usage: "keep already placed components fixed"},
					&cli.StringFlag{Name: "snapshot", Usage: "write placement image to `FILE` (PNG)"},
					&cli.StringFlag{Name: "bundle", Usage: "archive results into `FILE` (zip)"},
				},
				ArgsUsage: "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    design to place (DEF, optionally gzip or zip packed)

DESTINATION:
    output DEF, "<source>-placed.def" when absent
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "pins",
				Usage:        "Places block terminals on the die boundary",
				OnUsageError: usageErrorHandler,
				Action:       flow.Pins,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "hor-layers", Usage: "comma separated routing `LAYERS` for left/right edges", Required: true},
					&cli.StringFlag{Name: "ver-layers", Usage: "comma separated routing `LAYERS` for top/bottom edges", Required: true},
					&cli.FloatFlag{Name: "corner-avoidance", Usage: "corner keep-out in `MICRONS`"},
					&cli.FloatFlag{Name: "min-distance", Usage: "minimum pin spacing in `MICRONS`"},
					&cli.StringSliceFlag{Name: "group-pins", Usage: "space separated pin `NAMES` to keep together, repeatable"},
					&cli.StringSliceFlag{Name: "exclude", Usage: "boundary interval `EDGE:LO-HI` (microns) or EDGE:* to skip, repeatable"},
				},
				ArgsUsage: "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    design with unplaced terminals (DEF, optionally gzip or zip packed)

DESTINATION:
    output DEF, "<source>-pins.def" when absent
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "power",
				Usage:        "Analyzes static IR drop on a supply net",
				OnUsageError: usageErrorHandler,
				Action:       flow.Power,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "net", Usage: "power or ground `NET` to analyze", Required: true},
					&cli.StringFlag{Name: "vsrc", Usage: "voltage source locations `FILE` (x y voltage per line, microns)"},
					&cli.StringFlag{Name: "voltage-file", Usage: "write solved grid node voltages to `FILE` (x y voltage, microns)"},
					&cli.StringFlag{Name: "report", Usage: "write analysis report to `FILE` (XML)"},
					&cli.StringFlag{Name: "corner", Usage: "use only the liberty library named `CORNER`"},
					&cli.StringFlag{Name: "snapshot", Usage: "write IR drop heatmap to `FILE` (PNG)"},
					&cli.StringFlag{Name: "bundle", Usage: "archive results into `FILE` (zip)"},
				},
				ArgsUsage: "SOURCE",
			},
			{
				Name:         "snapshot",
				Usage:        "Renders a placement image of a design",
				OnUsageError: usageErrorHandler,
				Action:       flow.Snapshot,
				ArgsUsage:    "SOURCE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    design to render (DEF, optionally gzip or zip packed)

DESTINATION:
    output PNG, derived from the configured naming template when absent
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "metrics",
				Usage:        "Lists run metrics from the configured store",
				OnUsageError: usageErrorHandler,
				Action:       flow.Metrics,
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()

	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
