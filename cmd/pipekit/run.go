package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/pipekit/pipes"
	"github.com/kbukum/pipekit/serde"
	"github.com/kbukum/pipekit/stream"
)

type runFlags struct {
	pipeline string
	args     []string
	combine  string
	stream   bool
	timeout  time.Duration
}

func newRunCmd(global *globalFlags) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [PIPELINE]",
		Short: "Run a pipeline and print its output",
		Long: `Run a pipeline given as a file path or as a name resolved in the configured
pipeline directories. The combined result is printed as JSON; with --stream
each output tuple is printed as one JSON line as soon as it is produced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline := flags.pipeline
			if len(args) == 1 {
				if pipeline != "" {
					return fmt.Errorf("pipeline given both as --pipeline and as an argument")
				}
				pipeline = args[0]
			}
			if pipeline == "" {
				return fmt.Errorf("no pipeline given, pass a file or name")
			}
			return runPipeline(cmd, global, &flags, pipeline)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.pipeline, "pipeline", "p", "", "Pipeline file path or name")
	f.StringArrayVarP(&flags.args, "arg", "a", nil, "Seed argument as key=value (repeatable)")
	f.StringVar(&flags.combine, "combine", "", "How repeated keys combine: string or array")
	f.BoolVar(&flags.stream, "stream", false, "Print tuples as they are produced")
	f.DurationVar(&flags.timeout, "timeout", 0, "Abort the run after this long (overrides runtime.timeout)")
	return cmd
}

func parseArgs(pairs []string) (stream.Args, error) {
	args := stream.Args{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q, want key=value", pair)
		}
		args[key] = value
	}
	return args, nil
}

func runPipeline(cmd *cobra.Command, global *globalFlags, flags *runFlags, pipeline string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args, err := parseArgs(flags.args)
	if err != nil {
		return err
	}
	opts := []pipes.Option{}
	if flags.combine != "" {
		mode, err := stream.ParseCombineMode(flags.combine)
		if err != nil {
			return err
		}
		opts = append(opts, pipes.WithCombine(mode))
	}

	a, err := newApp(ctx, global)
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	node, err := resolve(a, pipeline)
	if err != nil {
		return err
	}

	timeout := a.cfg.Runtime.Timeout
	if flags.timeout > 0 {
		timeout = flags.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opts = append(a.runOptions(), opts...)
	node = a.instrument(node)
	out := cmd.OutOrStdout()

	if flags.stream {
		enc := json.NewEncoder(out)
		for t, err := range stream.All(ctx, pipes.Stream(ctx, node, args, opts...)) {
			if err != nil {
				return err
			}
			if err := enc.Encode(t); err != nil {
				return err
			}
		}
		return nil
	}

	result, err := pipes.Run(ctx, node, args, opts...)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// resolve loads pipeline as a file when one exists at that path, and by name
// otherwise.
func resolve(a *app, pipeline string) (pipes.Node, error) {
	var (
		v   any
		err error
	)
	if _, statErr := os.Stat(pipeline); statErr == nil {
		v, err = serde.LoadFile(pipeline, a.registry)
	} else {
		v, err = a.loader.Load(pipeline)
	}
	if err != nil {
		return nil, err
	}
	node, ok := v.(pipes.Node)
	if !ok {
		return nil, fmt.Errorf("%s does not describe a node (got %T)", pipeline, v)
	}
	return node, nil
}
