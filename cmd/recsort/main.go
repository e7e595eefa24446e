// Command recsort sorts a file of 100-byte records by their 10-byte key.
//
//	recsort [flags] <input> <output>
//
// Exit status is 0 on success, 1 for usage errors and 2 when the sort fails.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lanrat/recsort"
	"github.com/lanrat/recsort/metrics"
	"github.com/lanrat/recsort/verify"
)

const (
	exitOK    = 0
	exitUsage = 1
	exitFatal = 2
)

var errUsage = errors.New("usage")

type options struct {
	scratch     string
	workers     int
	chunk       int
	memoryLimit string
	buckets     int
	verify      bool
	logLevel    string
	logJSON     bool
	metricsAddr string
	input       string
	output      string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("recsort", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: recsort [flags] <input> <output>\n")
		fs.PrintDefaults()
	}
	var o options
	fs.StringVar(&o.scratch, "scratch", "", "directory for run files (default: automatic)")
	fs.IntVar(&o.workers, "workers", 0, "sort goroutines (default: GOMAXPROCS)")
	fs.IntVar(&o.chunk, "chunk", 0, "records per external sort chunk")
	fs.StringVar(&o.memoryLimit, "memory-limit", "", "largest input sorted without run files, e.g. 8GiB")
	fs.IntVar(&o.buckets, "buckets", 0, "radix buckets, a power of two")
	fs.BoolVar(&o.verify, "verify", false, "check the output is a sorted permutation of the input")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.BoolVar(&o.logJSON, "log-json", false, "log in JSON")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	if err := fs.Parse(args); err != nil {
		return nil, errUsage
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return nil, errUsage
	}
	o.input, o.output = fs.Arg(0), fs.Arg(1)
	return &o, nil
}

func (o *options) config(stderr io.Writer) (*recsort.Config, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("-log-level: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(stderr, handlerOpts)
	if o.logJSON {
		handler = slog.NewJSONHandler(stderr, handlerOpts)
	}

	config := &recsort.Config{
		Workers:      o.workers,
		Buckets:      o.buckets,
		ChunkRecords: o.chunk,
		ScratchDir:   o.scratch,
		Logger:       recsort.NewLogger(handler),
	}
	if o.memoryLimit != "" {
		limit, err := humanize.ParseBytes(o.memoryLimit)
		if err != nil {
			return nil, fmt.Errorf("-memory-limit: %w", err)
		}
		config.InMemoryLimit = int64(limit)
	}
	return config, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if err != nil {
		return exitUsage
	}
	config, err := o.config(stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	log := config.Logger

	if o.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		sink, err := metrics.NewPrometheus(reg)
		if err != nil {
			log.Error("register metrics", "error", err)
			return exitFatal
		}
		config.Metrics = sink
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(o.metricsAddr, mux); err != nil {
				log.Warn("metrics server stopped", "addr", o.metricsAddr, "error", err)
			}
		}()
	}

	sorter, err := recsort.New(config)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		return exitUsage
	}

	var before verify.Summary
	if o.verify {
		if before, err = verify.File(o.input); err != nil {
			log.Error("summarize input", "path", o.input, "error", err)
			return exitFatal
		}
	}

	if err := sorter.Sort(ctx, o.input, o.output); err != nil {
		var configErr *recsort.ConfigError
		if errors.As(err, &configErr) {
			return exitUsage
		}
		return exitFatal
	}

	if o.verify {
		after, err := verify.File(o.output)
		if err == nil {
			err = verify.Output(before, after)
		}
		if err != nil {
			log.Error("verification failed", "path", o.output, "error", err)
			return exitFatal
		}
		log.Info("output verified", "records", humanize.Comma(after.Records), "duplicate_keys", after.DuplicateKeys)
	}
	return exitOK
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}
