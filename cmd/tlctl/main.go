// main.go - Admin control tool for trafficlens
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"trafficlens/internal"
	"trafficlens/internal/config"
	"trafficlens/internal/database"
	"trafficlens/internal/logging"
	"trafficlens/internal/seeder"
	"trafficlens/internal/selection"
)

// Env gives commands the configuration and, on demand, the loaded application.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer

	app *internal.Application
}

// App loads the records and builds the application once.
func (e *Env) App() (*internal.Application, error) {
	if e.app != nil {
		return e.app, nil
	}
	app, err := internal.NewAppWithConfig(e.Config)
	if err != nil {
		return nil, err
	}
	e.app = app
	return app, nil
}

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given environment and args
	Execute(ctx context.Context, env *Env, args []string) error
}

// The set of available commands
var commands = []Command{
	&SeedCommand{},
	&DomainsCommand{},
	&ViewsCommand{},
	&HelpCommand{},
}

func main() {
	// Parse global flags
	flag.Parse()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	cfg := config.GetConfig()
	env := &Env{
		Config: cfg,
		Logger: logging.New(cfg),
		Out:    os.Stdout,
	}

	err := cmd.Execute(ctx, env, args)
	if env.app != nil {
		if shutdownErr := env.app.Shutdown(context.Background()); shutdownErr != nil {
			log.Printf("Warning: Cleanup error: %v", shutdownErr)
		}
	}
	if err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

// SeedCommand writes a synthetic dataset to the configured data source
type SeedCommand struct{}

func (c *SeedCommand) Name() string        { return "seed" }
func (c *SeedCommand) Description() string { return "Generates a synthetic dataset into the configured data source" }

func (c *SeedCommand) Execute(ctx context.Context, env *Env, args []string) error {
	defaults := seeder.DefaultOptions()
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(env.Out)
	devices := fs.Int("devices", defaults.Devices, "number of devices to generate")
	events := fs.Int("events", defaults.Events, "number of events to generate")
	months := fs.Int("months", defaults.Months, "number of months the events span, ending with the current month")
	unknown := fs.Float64("unknown", defaults.UnknownDeviceRatio, "share of events from devices without a record")
	seed := fs.Uint64("seed", defaults.Seed, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := defaults
	opts.Devices = *devices
	opts.Events = *events
	opts.Months = *months
	opts.Start = defaults.Start.AddDate(0, defaults.Months-*months, 0)
	opts.UnknownDeviceRatio = *unknown
	opts.Seed = *seed
	if err := validateSeedOptions(opts); err != nil {
		return err
	}

	se := seeder.NewSeeder(opts, env.Logger)

	switch env.Config.DataSource {
	case config.SQLiteSource:
		dm := database.NewDBManager(env.Config, env.Logger)
		if err := dm.Init(); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer dm.Close()
		if err := dm.MigrateDatabase(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return se.SeedSQLite(ctx, dm.GetConnection())
	default:
		return se.SeedCSV(ctx, env.Config.EventsPath, env.Config.DevicesPath)
	}
}

func validateSeedOptions(opts seeder.Options) error {
	if opts.Devices < 0 || opts.Events < 0 {
		return errors.New("devices and events must not be negative")
	}
	if opts.Months < 1 {
		return errors.New("months must be at least 1")
	}
	if opts.UnknownDeviceRatio < 0 || opts.UnknownDeviceRatio > 1 {
		return errors.New("unknown must be between 0 and 1")
	}
	return nil
}

// DomainsCommand prints the facet domains
type DomainsCommand struct{}

func (c *DomainsCommand) Name() string        { return "domains" }
func (c *DomainsCommand) Description() string { return "Shows the site, os and browser domains" }

func (c *DomainsCommand) Execute(ctx context.Context, env *Env, args []string) error {
	app, err := env.App()
	if err != nil {
		return err
	}
	return renderDomains(env.Out, app.Dashboard, isTerminal(env.Out))
}

// ViewsCommand prints the views for a selection
type ViewsCommand struct{}

func (c *ViewsCommand) Name() string { return "views" }
func (c *ViewsCommand) Description() string {
	return "Shows the three views, optionally filtered (-sites, -os, -browsers, -format table|yaml|json)"
}

func (c *ViewsCommand) Execute(ctx context.Context, env *Env, args []string) error {
	fs := flag.NewFlagSet("views", flag.ContinueOnError)
	fs.SetOutput(env.Out)
	sites := fs.String("sites", "", "comma separated sites to select")
	osTypes := fs.String("os", "", "comma separated os types to select")
	browsers := fs.String("browsers", "", "comma separated browsers to select")
	format := fs.String("format", "table", "output format: table, yaml or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app, err := env.App()
	if err != nil {
		return err
	}

	session := app.Dashboard.NewSession()
	for _, sel := range []struct {
		facet selection.Facet
		list  string
	}{
		{selection.Sites, *sites},
		{selection.OSTypes, *osTypes},
		{selection.Browsers, *browsers},
	} {
		if sel.list == "" {
			continue
		}
		if _, err := session.OnSelectionChanged(sel.facet, splitList(sel.list)); err != nil {
			return fmt.Errorf("invalid %s selection: %w", sel.facet, err)
		}
	}

	return renderViews(env.Out, *format, session, isTerminal(env.Out))
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

// Name returns the command name
func (c *HelpCommand) Name() string {
	return "help"
}

// Description returns the command description
func (c *HelpCommand) Description() string {
	return "Shows usage information"
}

// Execute implements the help command
func (c *HelpCommand) Execute(ctx context.Context, env *Env, args []string) error {
	printUsage(env.Out)
	return nil
}

// Helper functions

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tlctl [command] [args...]")
	fmt.Fprintln(w, "Available commands:")

	for _, cmd := range commands {
		fmt.Fprintf(w, "  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage(os.Stdout)
	os.Exit(1)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
