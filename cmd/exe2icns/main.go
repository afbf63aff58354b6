package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"exe2icns/internal/config"
	"exe2icns/internal/convert"
)

// Process exit codes
const (
	exitOK                = 0
	exitFailure           = 1
	exitInvalidExecutable = 101
	exitNoIcon            = 102
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout))
}

func run(args []string, stdin io.Reader, stdout io.Writer) int {
	// Parse command line flags
	fs := flag.NewFlagSet("exe2icns", flag.ContinueOnError)
	fs.SetOutput(stdout)
	output := fs.String("o", "", "Output path (default: input with .exe replaced by .icns)")
	force := fs.Bool("f", false, "Overwrite the output file without asking")
	noSynth := fs.Bool("n", false, "Do not synthesize a 128x128 icon from 256x256")
	lang := fs.Uint("lang", config.LanguageJapanese, "Preferred resource language (LCID)")
	debug := fs.Bool("debug", false, "Enable debug mode")
	configPath := fs.String("config", "", "YAML configuration file")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}
	if fs.NArg() != 1 {
		printUsage(fs)
		return exitFailure
	}

	// Defaults, then the config file, then flags given explicitly
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(stdout, "exe2icns: %v\n", err)
			return exitFailure
		}
	}
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "f":
			cfg.Force = *force
		case "n":
			cfg.Synthesize128 = !*noSynth
		case "lang":
			if *lang > 0xFFFF {
				flagErr = fmt.Errorf("language %d out of range", *lang)
			}
			cfg.Language = uint16(*lang)
		case "debug":
			cfg.Debug = *debug
		}
	})
	if flagErr != nil {
		fmt.Fprintf(stdout, "exe2icns: %v\n", flagErr)
		return exitFailure
	}

	// Configure slog
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	input := fs.Arg(0)
	outPath := *output
	if outPath == "" {
		outPath = defaultOutputPath(input)
	}
	slog.Debug("Configuration",
		"input", input,
		"output", outPath,
		"language", cfg.Language,
		"synthesize128", cfg.Synthesize128,
		"rescale", cfg.Rescale,
		"force", cfg.Force)

	if _, err := os.Stat(outPath); err == nil && !cfg.Force {
		if !confirmOverwrite(stdin, stdout, outPath) {
			slog.Info("Not overwriting existing file", "path", outPath)
			return exitFailure
		}
	}

	data, err := os.ReadFile(input)
	if err != nil {
		slog.Error("Failed to read input", "error", err)
		return exitFailure
	}

	conv := convert.New(convert.Options{
		Language:      cfg.Language,
		Synthesize128: cfg.Synthesize128,
		Rescale:       cfg.Rescale,
		Logger:        logger,
	})
	res, err := conv.Convert(data)
	switch {
	case errors.Is(err, convert.ErrInvalidExecutable):
		slog.Error("Invalid executable", "path", input, "error", err)
		return exitInvalidExecutable
	case errors.Is(err, convert.ErrNoIcon):
		slog.Error("No icon data in executable", "path", input, "error", err)
		return exitNoIcon
	case err != nil:
		slog.Error("Failed to convert", "path", input, "error", err)
		return exitFailure
	}

	if err := os.WriteFile(outPath, res.Data, 0644); err != nil {
		slog.Error("Failed to write output", "error", err)
		return exitFailure
	}
	slog.Info("Successfully wrote icon archive",
		"path", outPath,
		"icons", len(res.Icons),
		"skipped", len(res.Skipped),
		"bytes", len(res.Data))
	return exitOK
}

// defaultOutputPath replaces a trailing .exe (any case) with .icns, or
// appends .icns when there is none
func defaultOutputPath(input string) string {
	if ext := filepath.Ext(input); strings.EqualFold(ext, ".exe") {
		input = strings.TrimSuffix(input, ext)
	}
	return input + ".icns"
}

// confirmOverwrite asks until it reads y or n. End of input means no.
func confirmOverwrite(stdin io.Reader, stdout io.Writer, path string) bool {
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprintf(stdout, "%s already exists. Overwrite? [y/n] ", path)
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return false
		}
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
	}
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "exe2icns - Convert the icon of a Windows executable to a macOS .icns file")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  exe2icns [flags] program.exe")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fs.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Exit codes:")
	fmt.Fprintln(out, "  0    success")
	fmt.Fprintln(out, "  101  input is not a valid executable")
	fmt.Fprintln(out, "  102  input has no icon")
}
