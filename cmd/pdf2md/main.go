// Command pdf2md converts one PDF into Markdown, trying OCR engines in
// priority order and falling back to ocrmypdf when none yields text.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/feichai0017/pdf2md/config"
	"github.com/feichai0017/pdf2md/pkg/logger"
)

type cliOptions struct {
	configPath  string
	language    string
	engines     string
	dpi         int
	reportPath  string
	upload      bool
	logLevel    string
	logFormat   string
	source      string
	destination string
}

func parseArgs(args []string) (*cliOptions, error) {
	fs := flag.NewFlagSet("pdf2md", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: pdf2md [flags] <source.pdf> [destination.md]\n\n")
		fs.PrintDefaults()
	}

	opts := &cliOptions{}
	fs.StringVar(&opts.configPath, "config", "", "YAML file overriding the environment configuration")
	fs.StringVar(&opts.language, "lang", "", "OCR language code, e.g. eng or deu+eng")
	fs.StringVar(&opts.engines, "engines", "", "comma separated engine priority list, e.g. tesseract,textract,none")
	fs.IntVar(&opts.dpi, "dpi", 0, "scan resolution for OCR engines")
	fs.StringVar(&opts.reportPath, "report", "", "write a JSON run report to this path")
	fs.BoolVar(&opts.upload, "upload", false, "upload the markdown and report to PDF2MD_STORAGE")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error; debug also enables development mode")
	fs.StringVar(&opts.logFormat, "log-format", "", "console or json for the stderr output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 1:
		opts.source = fs.Arg(0)
	case 2:
		opts.source = fs.Arg(0)
		opts.destination = fs.Arg(1)
	default:
		fs.Usage()
		return nil, errors.New("expected a source path and an optional destination path")
	}
	return opts, nil
}

// resolveConfig layers environment, YAML file and flags, in that order.
func resolveConfig(opts *cliOptions) (*config.ConvertConfig, error) {
	cfg := config.GetConvertConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.LoadConvertFile(opts.configPath, cfg); err != nil {
			return nil, err
		}
	}

	merged := *cfg
	if opts.language != "" {
		merged.Language = opts.language
	}
	if opts.engines != "" {
		merged.Engines = strings.Split(opts.engines, ",")
	}
	if opts.dpi > 0 {
		merged.DPI = opts.dpi
	}
	if opts.logLevel != "" {
		merged.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		merged.LogFormat = opts.logFormat
	}
	return &merged, nil
}

func defaultDestination(outputDir, source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outputDir, stem+".md")
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.NewLogger(
		logger.WithLevel(cfg.LogLevel),
		logger.WithEncoding(cfg.LogFormat),
		logger.WithDevelopment(cfg.LogLevel == "debug"),
		logger.WithOutputPaths([]string{"stderr", "logs/pdf2md.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if opts.destination == "" {
		opts.destination = defaultDestination(cfg.OutputDir, opts.source)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, opts, log)
	if err != nil {
		log.Error("Failed to initialise", logger.Error(err))
		log.Sync()
		os.Exit(1)
	}
	defer app.Close()

	if _, err := app.converter.Run(ctx, opts.source, opts.destination); err != nil {
		log.Error("Conversion failed",
			logger.String("source", opts.source),
			logger.Error(err),
		)
		app.Close()
		log.Sync()
		os.Exit(1)
	}
}
