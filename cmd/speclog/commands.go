// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/phuonguno98/speclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// loadSpec reads the spec from the --file flag if given, or from the single
// positional argument otherwise.
func loadSpec(file string, args []string) (*speclog.LogSpec, error) {
	if file != "" {
		return speclog.ReadSpecFile(file)
	}
	if len(args) == 0 {
		return nil, errors.New("need a log spec argument or --file")
	}
	return speclog.ParseLogSpec(args[0])
}

func newCheckCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "check [spec]",
		Short: "Validate a log spec or spec file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, err := loadSpec(file, args)
			var perr *speclog.ParseError
			if errors.As(err, &perr) {
				for _, p := range perr.Problems {
					fmt.Fprintln(cmd.OutOrStdout(), "problem:", p)
				}
				return errors.Newf("%d problem(s) found", len(perr.Problems))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok:", ls.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read the spec from a TOML spec file")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		file   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "render [spec]",
		Short: "Print a log spec in normalized text or TOML form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, err := loadSpec(file, args)
			if err != nil {
				return err
			}
			switch format {
			case "text":
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ls.String())
				return err
			case "toml":
				return ls.WriteTOML(cmd.OutOrStdout())
			default:
				return errors.Newf("unknown output format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read the spec from a TOML spec file")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text or toml")
	return cmd
}

func newEvalCmd() *cobra.Command {
	var (
		file  string
		level string
	)
	cmd := &cobra.Command{
		Use:   "eval <spec> <module>...",
		Short: "Show whether records of the given modules pass a log spec",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				ls  *speclog.LogSpec
				err error
			)
			if file != "" {
				ls, err = speclog.ReadSpecFile(file)
			} else {
				ls, err = speclog.ParseLogSpec(args[0])
				args = args[1:]
			}
			if err != nil {
				return err
			}
			lvl, err := speclog.ParseLevel(level)
			if err != nil {
				return err
			}
			for _, module := range args {
				verdict := "disabled"
				if ls.Enabled(lvl, module) {
					verdict = "enabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", module, lvl, verdict)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read the spec from a TOML spec file instead of the first argument")
	cmd.Flags().StringVar(&level, "level", "info", "level of the probed records")
	return cmd
}

func newTailCmd() *cobra.Command {
	var (
		spec        string
		specFile    string
		target      string
		dup         string
		format      string
		logFile     string
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Log lines of the form \"<level> <module> <message>\" read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := speclog.Config{
				SpecString: spec,
				SpecFile:   specFile,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			}
			var err error
			if cfg.Target, err = speclog.ParseTarget(target); err != nil {
				return err
			}
			if cfg.Duplicate, err = speclog.ParseDuplicate(dup); err != nil {
				return err
			}
			var ok bool
			if cfg.Format, ok = speclog.FormatByName(format); !ok {
				return errors.Newf("unknown format %q", format)
			}
			if logFile != "" {
				cfg.Target = speclog.TargetMulti
				cfg.Rotation = speclog.RotationConfig{Enable: true, Filename: logFile}
			}

			l, err := speclog.New(cfg)
			if err != nil {
				return err
			}
			if metricsAddr != "" {
				stop, err := serveMetrics(metricsAddr, l)
				if err != nil {
					_ = l.Close()
					return err
				}
				defer stop()
			}
			if err := tailLines(cmd.Context(), cmd.InOrStdin(), l); err != nil {
				_ = l.Close()
				return err
			}
			return l.Close()
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "info", "initial log spec")
	cmd.Flags().StringVar(&specFile, "spec-file", "", "TOML spec file to create and watch")
	cmd.Flags().StringVar(&target, "target", "stdout", "stderr, stdout, multi or discard")
	cmd.Flags().StringVar(&dup, "dup", "none", "levels duplicated to stderr with --target multi or discard: none, error, warn, info, debug, trace or all")
	cmd.Flags().StringVar(&format, "format", "default", "default, detailed or json")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write to a rotating file (implies --target multi)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// tailLines logs every well-formed input line. Malformed lines are logged by the
// "speclog::tail" module at WARN.
func tailLines(ctx context.Context, in io.Reader, l *speclog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	self := l.Module("speclog::tail").WithContext(ctx)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		fields := strings.SplitN(strings.TrimSpace(sc.Text()), " ", 3)
		if len(fields) < 2 || fields[0] == "" {
			continue
		}
		lvl, err := speclog.ParseLevel(fields[0])
		if err != nil || lvl == speclog.OFF {
			self.Warn("skipping line with bad level %q", fields[0])
			continue
		}
		msg := ""
		if len(fields) == 3 {
			msg = fields[2]
		}
		l.Log(ctx, lvl, fields[1], "%s", msg)
	}
	return sc.Err()
}

// serveMetrics exposes the logger's collector on addr until stop is called.
func serveMetrics(addr string, l *speclog.Logger) (stop func(), _ error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(l.Collector()); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot listen on %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}
	go func() { _ = srv.Serve(ln) }()
	return func() { _ = srv.Close() }, nil
}
