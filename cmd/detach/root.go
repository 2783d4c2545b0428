package main

import (
	"fmt"
	"os"

	"github.com/alebeck/detach/internal/buildinfo"
	"github.com/alebeck/detach/internal/config"
	"github.com/alebeck/detach/internal/env"
	"github.com/alebeck/detach/internal/launch"
	"github.com/alebeck/detach/internal/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// usageError marks errors caused by how detach was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

type flags struct {
	configPath string
	umask      string
	strategy   string
	keepHangup bool
	clearEnv   bool
	envFiles   []string
	env        []string
	dir        string
}

func newRootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "detach [flags] <program> [args...]",
		Short: "Start a program as a detached session leader and print its PID",
		Long: `detach starts <program> with [args...] in a new session, detached from the
controlling terminal, with a umask of 022. On success it prints {"pid": N} to
stdout and exits 0. Everything after <program> is passed to it verbatim.`,
		Version:       buildinfo.Version(),
		Args:          requireProgram,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f, args)
		},
	}
	cmd.SetVersionTemplate("detach {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	fs := cmd.Flags()
	// Stop at the program, its arguments are not ours.
	fs.SetInterspersed(false)
	fs.StringVar(&f.configPath, "config", "", "config file (TOML or YAML), defaults to "+config.Path)
	fs.StringVar(&f.umask, "umask", "", "octal file-creation mask for the program (default 022)")
	fs.StringVar(&f.strategy, "strategy", "", "how to detach: reexec or direct (default reexec)")
	fs.BoolVar(&f.keepHangup, "keep-hangup", false, "do not ignore SIGHUP while detaching")
	fs.BoolVar(&f.clearEnv, "clear-env", false, "start the program with an empty environment")
	fs.StringArrayVar(&f.envFiles, "env-file", nil, "read environment variables from a dotenv file (repeatable)")
	fs.StringArrayVarP(&f.env, "env", "e", nil, "set an environment variable KEY=VALUE (repeatable)")
	fs.StringVar(&f.dir, "dir", "", "working directory of the program")

	return cmd
}

func requireProgram(_ *cobra.Command, args []string) error {
	if len(args) < 1 || args[0] == "" {
		return &usageError{err: fmt.Errorf("missing program to launch")}
	}
	return nil
}

func run(cmd *cobra.Command, f *flags, args []string) error {
	if f.configPath != "" {
		config.SetPath(f.configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd.Flags(), f, cfg)

	opts, err := options(cfg)
	if err != nil {
		return &usageError{err: err}
	}
	req, err := request(cfg, f, args)
	if err != nil {
		return err
	}

	l, err := launch.New(opts)
	if err != nil {
		return err
	}
	res, err := l.Launch(cmd.Context(), req)
	if err != nil {
		return err
	}
	return launch.Report(cmd.OutOrStdout(), res)
}

// applyFlags lets explicitly set flags win over file and environment.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *config.Config) {
	if fs.Changed("umask") {
		cfg.Umask = f.umask
	}
	if fs.Changed("strategy") {
		cfg.Strategy = f.strategy
	}
	if fs.Changed("keep-hangup") {
		cfg.KeepHangup = f.keepHangup
	}
	if fs.Changed("clear-env") {
		cfg.ClearEnv = f.clearEnv
	}
	if fs.Changed("dir") {
		cfg.Dir = f.dir
	}
	cfg.EnvFiles = append(cfg.EnvFiles, f.envFiles...)
}

func options(cfg *config.Config) (launch.Options, error) {
	opts := launch.Options{
		Umask:       launch.DefaultUmask,
		Disposition: launch.Disposition{IgnoreHangup: !cfg.KeepHangup},
	}
	if cfg.Umask != "" {
		m, err := launch.ParseUmask(cfg.Umask)
		if err != nil {
			return opts, err
		}
		opts.Umask = m
	}
	s, err := launch.ParseStrategy(cfg.Strategy)
	if err != nil {
		return opts, err
	}
	opts.Strategy = s
	log.Debugf("Launching with strategy %s, umask %v", opts.Strategy, opts.Umask)
	return opts, nil
}

func request(cfg *config.Config, f *flags, args []string) (launch.Request, error) {
	req := launch.Request{Program: args[0], Args: args[1:], Dir: cfg.Dir}

	spec := env.Spec{
		Clear:     cfg.ClearEnv,
		Files:     cfg.EnvFiles,
		Overrides: append(cfg.Overrides(), f.env...),
	}
	if spec.Empty() {
		return req, nil
	}
	e, err := env.Compose(os.Environ(), spec)
	if err != nil {
		return req, err
	}
	req.Env = e
	return req, nil
}
