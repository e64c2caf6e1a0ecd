// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"boletim-scan/internal/classifier"
	"boletim-scan/internal/config"
	"boletim-scan/internal/engine"
	"boletim-scan/internal/fuzzy"
	"boletim-scan/internal/observability"
	"boletim-scan/internal/parallel"
	"boletim-scan/internal/payload"
	"boletim-scan/internal/pdfextract"
	"boletim-scan/internal/span"
	"boletim-scan/internal/version"

	"boletim-scan/internal/formatters"
	_ "boletim-scan/internal/formatters/csv"
	_ "boletim-scan/internal/formatters/json"
	_ "boletim-scan/internal/formatters/text"
	_ "boletim-scan/internal/formatters/yaml"

	"golang.org/x/term"
)

// configFlags holds command line flag values
type configFlags struct {
	file         string
	dir          string
	series       string
	spansFile    string
	payloadFile  string
	outputFormat string
	outputFile   string
	configFile   string
	profile      string
	workers      int
	verbose      bool
	debug        bool
	noColor      bool
	compact      bool
	showVersion  bool
	listFormats  bool
	listProfiles bool
}

// finalConfiguration holds resolved configuration values
type finalConfiguration struct {
	series              string
	format              string
	verbose             bool
	debug               bool
	noColor             bool
	enablePreprocessors bool
	subdivide           bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		fmt.Println(version.Info())
		return
	}
	if flags.listFormats {
		printFormats()
		return
	}

	cfg := loadConfiguration(flags.configFile)

	if flags.listProfiles {
		printProfiles(cfg)
		return
	}

	final, err := resolveConfiguration(flags, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if flags.file == "" && flags.dir == "" {
		fmt.Fprintln(os.Stderr, "Error: -file or -dir is required")
		flag.Usage()
		os.Exit(2)
	}

	series, err := engine.ParseSeries(final.series)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Colors are pointless when stdout is not a terminal
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		final.noColor = true
	}

	var observer *observability.StandardObserver
	var debugObs *observability.DebugObserver
	if final.debug {
		debugObs = observability.NewDebugObserver(os.Stderr)
		debugObs.LogDetail("main", fmt.Sprintf("command line arguments: %v", os.Args))
		observer = debugObs.StandardObserver
		observer.DebugObserver = debugObs
	} else if final.verbose {
		observer = observability.NewStandardObserver(observability.ObservabilityMetrics, os.Stderr)
	}

	matcher := fuzzy.NewMatcher(fuzzy.Thresholds{
		LettersMinRatio: cfg.Matcher.LettersMinRatio,
		NgramSize:       cfg.Matcher.NgramSize,
		NgramJaccardMin: cfg.Matcher.NgramJaccardMin,
		MinLenForNgrams: cfg.Matcher.MinLenForNgrams,
	})

	engineOpts := []engine.Option{engine.WithMatcher(matcher)}
	if observer != nil {
		engineOpts = append(engineOpts, engine.WithObserver(observer))
	}
	if final.subdivide {
		engineOpts = append(engineOpts, engine.WithReparse(classifier.Classify))
	}
	eng := engine.New(engineOpts...)

	formatOpts := formatters.FormatterOptions{
		Verbose: final.verbose,
		NoColor: final.noColor,
		Compact: flags.compact,
	}

	if flags.file != "" {
		runSingle(eng, debugObs, flags, final, series, formatOpts)
		return
	}
	runBatch(eng, observer, flags, final, series, formatOpts)
}

func parseFlags() *configFlags {
	flags := &configFlags{}

	flag.StringVar(&flags.file, "file", "", "Bulletin file to process (PDF or extracted text)")
	flag.StringVar(&flags.dir, "dir", "", "Directory of bulletin files to process in parallel")
	flag.StringVar(&flags.series, "series", "", "Bulletin series: I, II, III or IV")
	flag.StringVar(&flags.spansFile, "spans", "", "JSON span stream file replacing the built-in classifier")
	flag.StringVar(&flags.payloadFile, "payload", "", "JSON payload file replacing summary extraction")
	flag.StringVar(&flags.outputFormat, "format", "", "Output format (see -list-formats)")
	flag.StringVar(&flags.outputFile, "output", "", "Write output to file instead of stdout")
	flag.StringVar(&flags.configFile, "config", "", "Path to configuration file")
	flag.StringVar(&flags.profile, "profile", "", "Configuration profile to apply")
	flag.IntVar(&flags.workers, "workers", runtime.NumCPU(), "Worker count for -dir mode")
	flag.BoolVar(&flags.verbose, "verbose", false, "Include segmentation detail in output")
	flag.BoolVar(&flags.debug, "debug", false, "Emit per-stage timing records to stderr")
	flag.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	flag.BoolVar(&flags.compact, "compact", false, "Compact machine-readable output")
	flag.BoolVar(&flags.showVersion, "version", false, "Print version information and exit")
	flag.BoolVar(&flags.listFormats, "list-formats", false, "List available output formats and exit")
	flag.BoolVar(&flags.listProfiles, "list-profiles", false, "List configuration profiles and exit")
	flag.Parse()

	return flags
}

// loadConfiguration loads the configuration file or returns default config
func loadConfiguration(configFile string) *config.Config {
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration\n")
		cfg, _ = config.LoadConfig("")
	}
	return cfg
}

// resolveConfiguration applies precedence: defaults, then profile, then
// explicitly set flags.
func resolveConfiguration(flags *configFlags, cfg *config.Config) (*finalConfiguration, error) {
	final := &finalConfiguration{
		series:              cfg.Defaults.Series,
		format:              cfg.Defaults.Format,
		verbose:             cfg.Defaults.Verbose,
		debug:               cfg.Defaults.Debug,
		noColor:             cfg.Defaults.NoColor,
		enablePreprocessors: cfg.Defaults.EnablePreprocessors,
		subdivide:           cfg.Defaults.Subdivide,
	}

	if flags.profile != "" {
		profile := cfg.GetProfile(flags.profile)
		if profile == nil {
			return nil, fmt.Errorf("unknown profile %q (see -list-profiles)", flags.profile)
		}
		if profile.Series != "" {
			final.series = profile.Series
		}
		if profile.Format != "" {
			final.format = profile.Format
		}
		final.verbose = profile.Verbose
		final.debug = profile.Debug
		final.noColor = profile.NoColor
		final.enablePreprocessors = profile.EnablePreprocessors
		final.subdivide = profile.Subdivide
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["series"] {
		final.series = flags.series
	}
	if set["format"] {
		final.format = flags.outputFormat
	}
	if set["verbose"] {
		final.verbose = flags.verbose
	}
	if set["debug"] {
		final.debug = flags.debug
	}
	if set["no-color"] {
		final.noColor = flags.noColor
	}

	return final, nil
}

// loadText reads a bulletin file, extracting PDFs to markdown first
func loadText(path string, series engine.Series, final *finalConfiguration) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if !final.enablePreprocessors {
			return "", fmt.Errorf("%s is a PDF but text extraction is disabled", path)
		}
		opts := pdfextract.DefaultOptions()
		opts.MergeAnyBold = series == engine.SeriesIII
		content, err := pdfextract.ExtractMarkdown(path, opts)
		if err != nil {
			return "", err
		}
		return content.Markdown, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func buildRequest(path string, series engine.Series, spansFile, payloadFile string, final *finalConfiguration) (engine.Request, error) {
	text, err := loadText(path, series, final)
	if err != nil {
		return engine.Request{}, err
	}

	req := engine.Request{Series: series, Text: text}

	if spansFile != "" {
		f, err := os.Open(filepath.Clean(spansFile))
		if err != nil {
			return engine.Request{}, fmt.Errorf("error reading spans file: %w", err)
		}
		defer f.Close()
		spans, err := span.FromJSON(f)
		if err != nil {
			return engine.Request{}, fmt.Errorf("error parsing spans file: %w", err)
		}
		req.Spans = spans
	} else {
		req.Spans = classifier.Classify(text)
	}

	if payloadFile != "" {
		data, err := os.ReadFile(filepath.Clean(payloadFile))
		if err != nil {
			return engine.Request{}, fmt.Errorf("error reading payload file: %w", err)
		}
		p, err := payload.Parse(data)
		if err != nil {
			return engine.Request{}, fmt.Errorf("error parsing payload file: %w", err)
		}
		req.Payload = p
	}

	return req, nil
}

func runSingle(eng *engine.Engine, debugObs *observability.DebugObserver, flags *configFlags, final *finalConfiguration, series engine.Series, formatOpts formatters.FormatterOptions) {
	var done func(success bool, details string)
	if debugObs != nil {
		done = debugObs.StartStep("main", "process_file", flags.file)
	}

	req, err := buildRequest(flags.file, series, flags.spansFile, flags.payloadFile, final)
	if err != nil {
		if done != nil {
			done(false, err.Error())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if debugObs != nil {
		debugObs.LogMetric("classifier", "spans", len(req.Spans))
	}

	resp, err := eng.Process(req)
	if err != nil {
		if done != nil {
			done(false, err.Error())
		}
		fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", flags.file, err)
		os.Exit(1)
	}
	if done != nil {
		done(true, fmt.Sprintf("%d documents", resp.Summary.Documents))
	}

	output, err := formatters.Export(final.format, resp, formatOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := writeOutput(flags.outputFile, output); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func runBatch(eng *engine.Engine, observer *observability.StandardObserver, flags *configFlags, final *finalConfiguration, series engine.Series, formatOpts formatters.FormatterOptions) {
	files, err := collectFiles(flags.dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "No bulletin files found in %s\n", flags.dir)
		os.Exit(1)
	}

	process := func(ctx context.Context, job *parallel.Job) (*engine.Response, error) {
		req, err := buildRequest(job.FilePath, job.Series, "", "", final)
		if err != nil {
			return nil, err
		}
		return eng.Process(req)
	}

	results := parallel.ProcessFiles(files, series, flags.workers, observer, process)
	sort.Slice(results, func(i, j int) bool { return results[i].FilePath < results[j].FilePath })

	var builder strings.Builder
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", r.FilePath, r.Error)
			failed++
			continue
		}
		output, err := formatters.Export(final.format, r.Response, formatOpts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting %s: %v\n", r.FilePath, err)
			failed++
			continue
		}
		if final.format == "text" {
			builder.WriteString(fmt.Sprintf("### %s\n\n", r.FilePath))
		}
		builder.WriteString(output)
		if !strings.HasSuffix(output, "\n") {
			builder.WriteString("\n")
		}
	}

	if err := writeOutput(flags.outputFile, builder.String()); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// collectFiles gathers processable bulletin files directly under dir
func collectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf", ".txt", ".md":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func writeOutput(path, content string) error {
	if path == "" {
		fmt.Print(content)
		if !strings.HasSuffix(content, "\n") {
			fmt.Println()
		}
		return nil
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func printFormats() {
	fmt.Println("Available output formats:")
	for _, info := range formatters.GetSupportedFormats() {
		fmt.Printf("  %-8s %s (%s)\n", info.Name, info.Description, info.Extension)
	}
}

func printProfiles(cfg *config.Config) {
	profiles := cfg.ListProfiles()
	sort.Strings(profiles)
	fmt.Println("Available profiles:")
	for _, name := range profiles {
		p := cfg.GetProfile(name)
		fmt.Printf("  %-12s %s\n", name, p.Description)
	}
}
