package main

import (
	"context"
	"flag"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/jcorbin/scribble/internal/config"
	"github.com/jcorbin/scribble/internal/fileinput"
	"github.com/jcorbin/scribble/internal/logio"
)

func main() {
	var (
		timeout    time.Duration
		trace      bool
		memLimit   uint
		codeSize   uint
		configPath string
		history    string
	)
	flag.DurationVar(&timeout, "timeout", 0, "specify a time limit")
	flag.BoolVar(&trace, "trace", false, "enable trace logging")
	flag.UintVar(&memLimit, "mem-limit", 0, "total memory capacity in slots")
	flag.UintVar(&codeSize, "code-size", 0, "code region size in slots")
	flag.StringVar(&configPath, "config", "", "config file; default searches for scribble.yaml")
	flag.StringVar(&history, "history", "", "REPL history file")
	flag.Parse()

	log := logio.NewLogger(os.Stderr)
	defer func() { os.Exit(log.ExitCode()) }()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "timeout":
			cfg.Timeout = timeout
		case "trace":
			cfg.Trace = trace
		case "mem-limit":
			cfg.Memory.Capacity = memLimit
		case "code-size":
			cfg.Memory.CodeSize = codeSize
		case "history":
			cfg.REPL.History = history
		}
	})

	ctx := context.Background()
	if cfg.Timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	opts := []VMOption{
		WithMemLayout(cfg.Memory.CodeSize, cfg.Memory.Capacity),
		WithNotef(log.Leveledf("NOTICE")),
	}
	if cfg.Trace {
		opts = append(opts, WithLogf(log.Leveledf("TRACE")))
	}

	args := flag.Args()
	if len(args) == 0 && isatty.IsTerminal(os.Stdin.Fd()) {
		log.ErrorIf(runREPL(ctx, cfg, opts...))
		return
	}

	vm := New(append(opts, WithOutput(os.Stdout))...)
	defer func() { log.ErrorIf(vm.Close()) }()

	var inputs []io.Reader
	for _, name := range args {
		f, err := os.Open(name)
		if err != nil {
			log.Errorf("%v", err)
			return
		}
		inputs = append(inputs, f)
	}
	if len(inputs) == 0 {
		inputs = append(inputs, os.Stdin)
	}
	log.ErrorIf(vm.Interpret(ctx, fileinput.New(inputs...)))
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = config.FindConfig(wd); err != nil || path == "" {
			return config.Default(), err
		}
	}
	return config.LoadConfig(path)
}
