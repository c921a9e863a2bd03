package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"uepkg/internal/config"
	"uepkg/internal/loader"
	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

// commonFlags are accepted by every command and override the config file.
type commonFlags struct {
	config   string
	system   string
	ini      string
	paths    []string
	charset  string
	strict   bool
	logLevel string
}

func (c *commonFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "YAML configuration file (default $"+config.EnvVar+")")
	fs.StringVar(&c.system, "system", "", "game System directory")
	fs.StringVar(&c.ini, "ini", "", "game INI whose [Core.System] Paths= entries are searched")
	fs.StringArrayVar(&c.paths, "path", nil, "extra package search pattern (repeatable)")
	fs.StringVar(&c.charset, "charset", "", "charset of package strings")
	fs.BoolVar(&c.strict, "strict", false, "treat unknown properties and residual bytes as errors")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// session is the state shared by one command run.
type session struct {
	cfg    *config.Config
	opts   ufmt.Options
	log    *slog.Logger
	env    *upkg.DirEnv
	loader *loader.Loader
}

func newFlagSet(name string, c *commonFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	c.add(fs)
	return fs
}

func (c *commonFlags) session(fs *pflag.FlagSet) (*session, error) {
	var cfg *config.Config
	var err error
	if c.config != "" {
		cfg, err = config.LoadFile(c.config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if fs.Changed("system") {
		cfg.SystemDir = c.system
	}
	if fs.Changed("ini") {
		cfg.Ini = c.ini
	}
	cfg.Paths = append(cfg.Paths, c.paths...)
	if fs.Changed("charset") {
		cfg.Charset = c.charset
	}
	if fs.Changed("strict") {
		cfg.Strict = c.strict
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := cfg.Level()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	env, err := cfg.Env(log)
	if err != nil {
		return nil, err
	}
	l := loader.New(env, loader.Options{Log: log, Mode: opts.Mode, Charset: opts.Charset, MaxDepth: opts.MaxDepth})
	return &session{cfg: cfg, opts: opts, log: log, env: env, loader: l}, nil
}

func (s *session) Close() { s.loader.Close() }

// openPackage opens arg as a file when it exists, else finds it by name
// through the search paths.
func (s *session) openPackage(arg string) (*upkg.Package, error) {
	if st, err := os.Stat(arg); err == nil && !st.IsDir() {
		p, err := upkg.Open(arg, s.opts.Charset)
		if err != nil {
			return nil, err
		}
		s.log.Debug("opened package", "path", arg, "name", p.Name, "version", p.Version)
		return p, nil
	}
	pkgs := s.env.Find(arg)
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("package %s: %w", arg, ufmt.ErrNotFound)
	}
	if len(pkgs) > 1 {
		s.log.Warn("package found more than once, using the first", "name", arg, "path", pkgs[0].Path)
	}
	return pkgs[0], nil
}

// onePackage parses fs and opens its single positional package argument.
func onePackage(fs *pflag.FlagSet, c *commonFlags, args []string) (*session, *upkg.Package, error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() != 1 {
		return nil, nil, fmt.Errorf("%s: exactly one package argument required", fs.Name())
	}
	s, err := c.session(fs)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.openPackage(fs.Arg(0))
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, p, nil
}

// reportDiags logs the loader diagnostics at warn level, up to limit.
func (s *session) reportDiags(limit int) {
	diags := s.loader.Diags()
	for i, d := range diags {
		if i == limit {
			s.log.Warn("more diagnostics omitted", "count", len(diags)-limit)
			break
		}
		s.log.Warn("diagnostic", "kind", d.Kind, "offset", d.Offset, "msg", d.Msg)
	}
}
