package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/ndc-scanner/internal/capture"
	"github.com/zombor/ndc-scanner/internal/recognition"
	"github.com/zombor/ndc-scanner/internal/scanning"
	"github.com/zombor/ndc-scanner/internal/shell"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type config struct {
	endpoint       string
	allowInsecure  bool
	timeout        time.Duration
	recognizerType string
	geminiKey      string
	geminiModel    string
	ollamaURL      string
	ollamaModel    string
	sourceType     string
	imagePath      string
	captureCommand string
	cameraDevice   int
	serveAddr      string
	logLevel       string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("ndc-scanner")
	var (
		endpoint       = fs.StringLong("endpoint", "", "Document recognition endpoint (https)")
		allowInsecure  = fs.BoolLong("allow-insecure", "Allow a plain http endpoint (development only)")
		timeout        = fs.DurationLong("timeout", recognition.DefaultTimeout, "Recognition request timeout")
		recognizerType = fs.StringLong("recognizer", "http", "Recognizer: 'http', 'gemini' or 'ollama'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "qwen2-vl:7b", "Ollama vision model name")
		sourceType     = fs.StringLong("source", "file", "Image source: 'file', 'command' or 'camera'")
		imagePath      = fs.StringLong("image", "", "Image file to capture from (file source)")
		captureCommand = fs.StringLong("capture-command", "libcamera-still -n -e png -o -", "Command that writes an image to stdout (command source)")
		cameraDevice   = fs.IntLong("camera-device", 0, "Video device index (camera source, needs -tags gocv)")
		serveAddr      = fs.StringLong("serve", "", "Serve the capture API on this address instead of scanning once (e.g. :8080)")
		logLevel       = fs.StringLong("log-level", "info", "Log level: debug, info, warn, error")
		_              = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("NDC_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := config{
		endpoint:       *endpoint,
		allowInsecure:  *allowInsecure,
		timeout:        *timeout,
		recognizerType: *recognizerType,
		geminiKey:      *geminiKey,
		geminiModel:    *geminiModel,
		ollamaURL:      *ollamaURL,
		ollamaModel:    *ollamaModel,
		sourceType:     *sourceType,
		imagePath:      *imagePath,
		captureCommand: *captureCommand,
		cameraDevice:   *cameraDevice,
		serveAddr:      *serveAddr,
		logLevel:       *logLevel,
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.logLevel),
	})))

	os.Exit(run(cfg, os.Stdout))
}

func run(cfg config, out io.Writer) int {
	source, err := newSource(cfg)
	if err != nil {
		slog.Error("Failed to initialize image source", "source", cfg.sourceType, "error", err)
		return 1
	}

	recognizer, closeRecognizer, err := newRecognizer(cfg)
	if err != nil {
		slog.Error("Failed to initialize recognizer", "recognizer", cfg.recognizerType, "error", err)
		return 1
	}
	defer closeRecognizer()

	controller := capture.NewController(source, recognizer)
	defer controller.Close()

	if cfg.serveAddr != "" {
		return serve(controller, cfg.serveAddr)
	}
	return scanOnce(controller, out)
}

func newSource(cfg config) (scanning.Source, error) {
	switch cfg.sourceType {
	case "file":
		return scanning.NewFileSource(cfg.imagePath)
	case "command":
		return scanning.NewCommandSource(cfg.captureCommand)
	case "camera":
		return scanning.NewCameraSource(cfg.cameraDevice)
	default:
		return nil, fmt.Errorf("invalid source type %q (valid: file, command, camera)", cfg.sourceType)
	}
}

func newRecognizer(cfg config) (recognition.Recognizer, func(), error) {
	noop := func() {}

	switch cfg.recognizerType {
	case "http":
		opts := []recognition.Option{
			recognition.WithHTTPClient(&http.Client{Timeout: cfg.timeout}),
		}
		if cfg.allowInsecure {
			opts = append(opts, recognition.WithAllowInsecure())
		}
		client, err := recognition.NewClient(cfg.endpoint, opts...)
		if err != nil {
			return nil, noop, err
		}
		slog.Info("Using document service", "endpoint", client.Endpoint(), "timeout", cfg.timeout)
		return client, noop, nil
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, noop, errors.New("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini recognizer...", "model", cfg.geminiModel)
		gemini, err := recognition.NewGemini(apiKey, cfg.geminiModel)
		if err != nil {
			return nil, noop, err
		}
		return gemini, func() { gemini.Close() }, nil
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		ollama, err := recognition.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
		if err != nil {
			return nil, noop, err
		}
		return ollama, noop, nil
	default:
		return nil, noop, fmt.Errorf("invalid recognizer type %q (valid: http, gemini, ollama)", cfg.recognizerType)
	}
}

// scanOnce runs a single capture, printing each state as it is reached
func scanOnce(controller *capture.Controller, out io.Writer) int {
	updates, unsubscribe, err := controller.Subscribe()
	if err != nil {
		slog.Error("Failed to subscribe to session", "error", err)
		return 1
	}
	defer unsubscribe()

	controller.StartCapture()

	for snap := range updates {
		fmt.Fprintf(out, "%s\n", snap.Status)

		switch snap.Status {
		case capture.StatusSucceeded:
			printResult(out, snap.Result)
			return 0
		case capture.StatusFailed:
			fmt.Fprintf(out, "error: %s\n", snap.ErrorMessage)
			return 1
		}
	}
	return 1
}

func printResult(out io.Writer, result *recognition.Result) {
	fmt.Fprintf(out, "name: %s\n", result.Name)
	fmt.Fprintf(out, "code: %s\n", result.Code)

	keys := make([]string, 0, len(result.Fields))
	for k := range result.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%s: %s\n", k, result.Fields[k])
	}
}

func serve(controller *capture.Controller, addr string) int {
	server := shell.NewServer(controller)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()
	slog.Info("Server started", "address", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		slog.Error("Server error", "error", err)
		return 1
	case <-sigChan:
		slog.Info("Shutting down...")
		return 0
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
