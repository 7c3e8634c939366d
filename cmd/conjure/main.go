// ABOUTME: CLI entrypoint for the conjure text-to-3D pipeline with one-shot, serve, tui, history, and export modes.
// ABOUTME: Wires together the service gateway, prompt enhancer, run store, orchestrator, and signal handling.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/conjure/enhance"
	"github.com/2389-research/conjure/export"
	"github.com/2389-research/conjure/gateway"
	"github.com/2389-research/conjure/pipeline"
	"github.com/2389-research/conjure/runstore"
	"github.com/2389-research/conjure/tui"
	"github.com/2389-research/conjure/web"
)

var version = "dev"

// cliConfig holds all CLI configuration parsed from flags and positional arguments.
type cliConfig struct {
	serveMode    bool
	addr         string
	tuiMode      bool
	dataDir      string
	configFile   string
	steps        int
	size         string
	format       string
	negative     string
	retryPolicy  string
	exportFormat string
	showVersion  bool
	args         []string
}

func main() {
	loadDotEnv(".env")

	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("conjure %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated cliConfig.
func parseFlags() cliConfig {
	var cfg cliConfig

	fs := flag.NewFlagSet("conjure", flag.ContinueOnError)
	fs.BoolVar(&cfg.serveMode, "serve", false, "Start web server mode")
	fs.StringVar(&cfg.addr, "addr", "", "Web server address (default: 127.0.0.1:2389)")
	fs.BoolVar(&cfg.tuiMode, "tui", false, "Run with interactive terminal UI")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Persistent state directory (default: $XDG_DATA_HOME/conjure)")
	fs.StringVar(&cfg.configFile, "config", "", "YAML config file")
	fs.IntVar(&cfg.steps, "steps", 0, "Diffusion steps (default: 25)")
	fs.StringVar(&cfg.size, "size", "", "Image dimensions as WxH (default: 768x768)")
	fs.StringVar(&cfg.format, "format", "", "3D output format: glb, obj, stl (default: glb)")
	fs.StringVar(&cfg.negative, "negative", "", "Negative prompt override")
	fs.StringVar(&cfg.retryPolicy, "retry", "", "Remote call retry policy: none, standard")
	fs.StringVar(&cfg.exportFormat, "export-format", "markdown", "Export format: markdown, yaml, json")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg.args = fs.Args()
	return cfg
}

// run dispatches to the appropriate mode based on flags and positional args.
// Returns an exit code: 0 for success, 1 for failure.
func run(cli cliConfig) int {
	cfg, err := loadConfig(cli.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	applyFlagOverrides(cfg, cli)

	if cli.serveMode {
		return runServe(cli, cfg)
	}
	if cli.tuiMode {
		return runTUI(cli, cfg)
	}

	if len(cli.args) > 0 {
		switch cli.args[0] {
		case "history":
			return runHistory(cli, cfg)
		case "export":
			return runExport(cli, cfg)
		}
		return runOnce(cli, cfg, strings.Join(cli.args, " "))
	}

	printHelp(os.Stderr, version)
	return 0
}

// applyFlagOverrides lets CLI flags win over file and environment config.
func applyFlagOverrides(cfg *Config, cli cliConfig) {
	if cli.addr != "" {
		cfg.Addr = cli.addr
	}
	if cli.dataDir != "" {
		cfg.DataDir = cli.dataDir
	}
	if cli.retryPolicy != "" {
		cfg.Retry = cli.retryPolicy
	}
	if cli.negative != "" {
		cfg.NegativePrompt = cli.negative
	}
}

// resolveDataDir returns the data directory to use, preferring the configured
// override and falling back to the XDG-based default.
func resolveDataDir(cfg *Config) (string, error) {
	if cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	return defaultDataDir()
}

// openStore opens the run database under the data directory, creating the
// directory when needed.
func openStore(cfg *Config) (*runstore.Store, string, error) {
	dataDir, err := resolveDataDir(cfg)
	if err != nil {
		return nil, "", fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create data dir: %w", err)
	}

	store, err := runstore.Open(filepath.Join(dataDir, "runs.db"))
	if err != nil {
		return nil, "", fmt.Errorf("open run store: %w", err)
	}
	return store, dataDir, nil
}

// buildOrchestrator discovers both generation services and assembles the
// pipeline orchestrator. The eventHandler may be nil.
func buildOrchestrator(ctx context.Context, cfg *Config, store *runstore.Store, dataDir string, eventHandler func(pipeline.Event)) (*pipeline.Orchestrator, error) {
	gw, err := gateway.Connect(ctx,
		[]string{cfg.ImageServiceID, cfg.ModelServiceID},
		gateway.WithCallerID(cfg.CallerID),
		gateway.WithRetryPolicy(retryPolicyFromName(cfg.Retry)),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to generation services: %w", err)
	}

	enhancer := enhance.New(enhance.Config{
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	})

	return pipeline.New(gw, enhancer, store, pipeline.Config{
		ImageServiceID: cfg.ImageServiceID,
		ModelServiceID: cfg.ModelServiceID,
		ImagesDir:      filepath.Join(dataDir, "images"),
		ModelsDir:      filepath.Join(dataDir, "models"),
		Defaults:       pipeline.Defaults{NegativePrompt: cfg.NegativePrompt},
		EventHandler:   eventHandler,
	}), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	return ctx, cancel
}

// runOnce executes one generation end to end and prints the result.
func runOnce(cli cliConfig, cfg *Config, prompt string) int {
	req, err := requestFromFlags(cli, prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	store, dataDir, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	orch, err := buildOrchestrator(ctx, cfg, store, dataDir, progressEventHandler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	rec, err := orch.Run(ctx, req, cfg.CallerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Printf("Run %s completed.\n", rec.RunID)
	fmt.Printf("  prompt:   %s\n", rec.Prompt)
	fmt.Printf("  enhanced: %s\n", rec.EnhancedPrompt)
	fmt.Printf("  image:    %s\n", rec.ImagePath)
	fmt.Printf("  model:    %s\n", rec.ModelPath)
	return 0
}

// requestFromFlags builds a pipeline request from generation flags.
func requestFromFlags(cli cliConfig, prompt string) (pipeline.Request, error) {
	req := pipeline.Request{
		Prompt: prompt,
		Steps:  cli.steps,
		Format: cli.format,
	}

	if cli.size != "" {
		w, h, err := parseSize(cli.size)
		if err != nil {
			return req, err
		}
		req.Width = w
		req.Height = h
	}

	return req, nil
}

// parseSize parses a WxH dimension string like "768x768".
func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, expected WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid width in %q", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid height in %q", s)
	}
	return w, h, nil
}

// runServe starts the web dashboard and API server.
func runServe(cli cliConfig, cfg *Config) int {
	store, dataDir, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	orch, err := buildOrchestrator(ctx, cfg, store, dataDir, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	srv, err := web.NewServer(orch, store, web.ServerConfig{
		Addr:      cfg.Addr,
		CallerID:  cfg.CallerID,
		ImagesDir: filepath.Join(dataDir, "images"),
		ModelsDir: filepath.Join(dataDir, "models"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv,
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	fmt.Fprintf(os.Stderr, "listening on %s\n", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// runTUI starts the interactive terminal UI, providing a prompt input with
// live per-stage progress and run history.
func runTUI(cli cliConfig, cfg *Config) int {
	store, dataDir, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	// The orchestrator is built before the Bubble Tea program exists, so
	// events route through an indirection filled in once the program is up.
	var eventSink func(pipeline.Event)
	orch, err := buildOrchestrator(ctx, cfg, store, dataDir, func(ev pipeline.Event) {
		if eventSink != nil {
			eventSink(ev)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	history, err := store.ListRunsForCaller(cfg.CallerID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load run history: %v\n", err)
	}

	model := tui.NewAppModel(ctx, orch, cfg.CallerID, history)
	p := tea.NewProgram(model)

	bridge := tui.NewEventBridge(p.Send)
	eventSink = bridge.HandleEvent

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// runHistory lists past runs for the configured caller, optionally filtered
// by a search query over prompts.
func runHistory(cli cliConfig, cfg *Config) int {
	store, _, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	var runs []runstore.RunRecord
	if len(cli.args) > 1 {
		runs, err = store.SearchRuns(strings.Join(cli.args[1:], " "))
	} else {
		runs, err = store.ListRunsForCaller(cfg.CallerID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return 0
	}

	for _, rec := range runs {
		fmt.Printf("%s  %s  %s\n", rec.RunID, rec.CreatedAt.Format("2006-01-02 15:04"), rec.Prompt)
	}
	return 0
}

// runExport prints one run record in the requested format.
func runExport(cli cliConfig, cfg *Config) int {
	if len(cli.args) < 2 {
		fmt.Fprintln(os.Stderr, "error: export requires a run id")
		return 1
	}
	runID := cli.args[1]

	store, _, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer store.Close()

	rec, ok, err := store.GetRun(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "error: run %s not found\n", runID)
		return 1
	}

	switch cli.exportFormat {
	case "markdown":
		fmt.Print(export.Markdown(rec))
	case "yaml":
		doc, yerr := export.YAML(rec)
		if yerr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", yerr)
			return 1
		}
		fmt.Print(doc)
	case "json":
		data, jerr := json.MarshalIndent(rec, "", "  ")
		if jerr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", jerr)
			return 1
		}
		fmt.Println(string(data))
	default:
		fmt.Fprintf(os.Stderr, "error: unsupported export format %q\n", cli.exportFormat)
		return 1
	}

	return 0
}

// retryPolicyFromName maps a CLI retry policy name to a gateway RetryPolicy preset.
func retryPolicyFromName(name string) gateway.RetryPolicy {
	switch strings.ToLower(name) {
	case "standard":
		return gateway.RetryPolicyStandard()
	default:
		return gateway.RetryPolicyNone()
	}
}

// progressEventHandler prints pipeline lifecycle events to stderr.
func progressEventHandler(evt pipeline.Event) {
	switch evt.Type {
	case pipeline.EventPipelineStarted:
		fmt.Fprintf(os.Stderr, "[pipeline] started run=%s\n", evt.RunID)
	case pipeline.EventStageStarted:
		fmt.Fprintf(os.Stderr, "[stage] %s started\n", evt.Stage)
	case pipeline.EventStageCompleted:
		fmt.Fprintf(os.Stderr, "[stage] %s completed\n", evt.Stage)
	case pipeline.EventStageFailed:
		if errVal, ok := evt.Data["error"]; ok {
			fmt.Fprintf(os.Stderr, "[stage] %s failed: %v\n", evt.Stage, errVal)
		} else {
			fmt.Fprintf(os.Stderr, "[stage] %s failed\n", evt.Stage)
		}
	case pipeline.EventPipelineCompleted:
		fmt.Fprintf(os.Stderr, "[pipeline] completed\n")
	case pipeline.EventPipelineFailed:
		fmt.Fprintf(os.Stderr, "[pipeline] failed\n")
	}
}
