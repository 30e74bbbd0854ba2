package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/OCharnyshevich/loot-randomizer/internal/config"
)

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config   string `short:"f" long:"config" description:"YAML config file"`
	LogLevel string `long:"log-level" description:"debug, info, warn or error"`

	Randomize RandomizeCmd `command:"randomize" description:"Randomize loot tables and write a datapack"`
	Validate  ValidateCmd  `command:"validate" description:"Load the game archive and report catalog problems"`
	Fetch     FetchCmd     `command:"fetch" description:"Download the game archive into the cache directory"`
	History   HistoryCmd   `command:"history" description:"List previous runs or print one run's cheat-sheet"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// app carries what every command needs once flags are parsed.
type app struct {
	ctx    context.Context
	opts   *Options
	parser *flags.Parser
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts := &Options{}
	a := &app{ctx: ctx, opts: opts, stdout: stdout, stderr: stderr}
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	opts.Randomize.app = a
	opts.Validate.app = a
	opts.Fetch.app = a
	opts.History.app = a

	a.parser = flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := a.parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) {
			if ferr.Type == flags.ErrHelp {
				fmt.Fprintln(stdout, ferr.Message)
				return 0
			}
			fmt.Fprintln(stderr, ferr.Message)
			return 2
		}
		a.log.Error("command failed", "error", err)
		return 1
	}
	return 0
}

// explicit reports which of names were given on the command line of the
// active command or the root.
func (a *app) explicit(names ...string) map[string]bool {
	out := make(map[string]bool)
	for _, name := range names {
		for _, cmd := range []*flags.Command{a.parser.Active, a.parser.Command} {
			if cmd == nil {
				continue
			}
			if opt := cmd.FindOptionByLongName(name); opt != nil && opt.IsSet() {
				out[name] = true
			}
		}
	}
	return out
}

// config layers defaults, the config file, LOOTRAND_* variables and
// explicit flags, in that order of precedence from lowest to highest.
func (a *app) config(fromFlags *config.Config) (*config.Config, error) {
	fromFile := config.DefaultConfig()
	if a.opts.Config != "" {
		if err := config.LoadFile(a.opts.Config, fromFile); err != nil {
			return nil, err
		}
	}
	if err := config.ParseEnv(fromFile); err != nil {
		return nil, err
	}

	fromFlags.LogLevel = a.opts.LogLevel
	explicit := a.explicit(
		"seed", "jar", "jar-url", "output", "loot", "no-cheatsheet", "mode", "relaxed",
		"no-special-key-items", "start", "obtainment", "pack-format", "db", "log-level", "cache-dir",
	)
	explicit["cheatsheet"] = explicit["no-cheatsheet"]
	explicit["special-key-items"] = explicit["no-special-key-items"]
	config.Merge(fromFlags, fromFile, explicit)
	if err := fromFlags.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	lvl, _ := fromFlags.Level()
	a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: lvl}))
	return fromFlags, nil
}
