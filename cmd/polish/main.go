// Command polish finishes raw screenshot captures from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	finisher "github.com/glintlab/screenshot-finisher"
	"github.com/glintlab/screenshot-finisher/adapters/storage"
	"github.com/glintlab/screenshot-finisher/config"
	"github.com/glintlab/screenshot-finisher/core"
	"github.com/glintlab/screenshot-finisher/hooks"
)

const defaultLogLevel = "warn"

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelWarn)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger, &levelVar)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("command interrupted", "error", err)
			os.Exit(130)
		}
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger, levelVar *slog.LevelVar) *cobra.Command {
	logLevel := defaultLogLevel

	root := &cobra.Command{
		Use:           "polish",
		Short:         "Finish raw screenshots: background, padding, rounded corners, shadow, grain, forensic footer",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Set log verbosity (debug, info, warn, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := parseLogLevel(logLevel)
		if err != nil {
			return err
		}
		levelVar.Set(level)
		return nil
	}

	root.AddCommand(
		newFinishCommand(logger),
		newBatchCommand(logger),
	)
	return root
}

func newFinishCommand(logger *slog.Logger) *cobra.Command {
	var (
		outPath      string
		settingsPath string
		assetsDir    string
	)

	cmd := &cobra.Command{
		Use:   "finish <screenshot>",
		Args:  cobra.ExactArgs(1),
		Short: "Finish a single screenshot and write the PNG artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath := strings.TrimSpace(args[0])
			if inPath == "" {
				return fmt.Errorf("screenshot path is required")
			}

			cmdLogger := logger.With("command", "finish", "screenshot", filepath.Base(inPath))

			f, settings, err := buildFinisher(settingsPath, assetsDir, cmdLogger)
			if err != nil {
				return err
			}

			in, err := os.Open(inPath)
			if err != nil {
				return fmt.Errorf("open screenshot: %w", err)
			}
			defer in.Close()

			res, err := f.FinishSettings(cmd.Context(), finisher.FromReaderWithMeta(in, "", inPath), settings)
			if err != nil {
				cmdLogger.Error("finishing failed", "error", err)
				return err
			}

			if outPath == "" {
				ext := filepath.Ext(inPath)
				outPath = strings.TrimSuffix(inPath, ext) + "-finished.png"
			}
			if err := os.WriteFile(outPath, res.Artifact, 0o644); err != nil {
				return fmt.Errorf("write artifact: %w", err)
			}

			cmdLogger.Info("finished",
				"output", outPath,
				"width", res.Width,
				"height", res.Height,
				"duration_ms", res.ProcessingTime.Milliseconds(),
			)
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output PNG path (default: <input>-finished.png)")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "Path to the settings YAML file")
	cmd.Flags().StringVar(&assetsDir, "assets", "", "Directory of background images addressable by id")

	return cmd
}

func newBatchCommand(logger *slog.Logger) *cobra.Command {
	var (
		outDir       string
		settingsPath string
		assetsDir    string
	)

	cmd := &cobra.Command{
		Use:   "batch <screenshot>...",
		Args:  cobra.MinimumNArgs(1),
		Short: "Finish multiple screenshots concurrently into an output directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdLogger := logger.With("command", "batch", "count", len(args))

			f, settings, err := buildFinisher(settingsPath, assetsDir, cmdLogger)
			if err != nil {
				return err
			}

			store, err := storage.NewLocal(outDir, 0o644)
			if err != nil {
				return err
			}

			spec, specErr := core.SpecFromSettings(settings, time.Now())
			if specErr != nil {
				cmdLogger.Warn("invalid background in settings, using defaults", "error", specErr)
			}

			sources := make([]core.Source, 0, len(args))
			files := make([]*os.File, 0, len(args))
			defer func() {
				for _, fh := range files {
					fh.Close()
				}
			}()
			for _, path := range args {
				fh, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open screenshot: %w", err)
				}
				files = append(files, fh)
				sources = append(sources, finisher.FromReaderWithMeta(fh, "", path))
			}

			results, errs := f.Batch(cmd.Context(), sources, spec)
			failed := 0
			for i, res := range results {
				if errs[i] != nil {
					failed++
					cmdLogger.Error("finishing failed", "screenshot", args[i], "error", errs[i])
					continue
				}
				key := storage.ArtifactKey(args[i], time.Now())
				if err := store.PutArtifact(cmd.Context(), key, res); err != nil {
					failed++
					cmdLogger.Error("store failed", "screenshot", args[i], "error", err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", args[i], filepath.Join(key.Bucket, key.Path))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d screenshots failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "d", "finished", "Directory to store finished artifacts")
	cmd.Flags().StringVar(&settingsPath, "settings", "", "Path to the settings YAML file")
	cmd.Flags().StringVar(&assetsDir, "assets", "", "Directory of background images addressable by id")

	return cmd
}

// buildFinisher loads settings (missing or broken files fall back to defaults)
// and wires a ready Finisher with logging hooks.
func buildFinisher(settingsPath, assetsDir string, logger *slog.Logger) (*finisher.Finisher, config.Settings, error) {
	settings := config.DefaultSettings()
	if settingsPath != "" {
		settings = config.LoadSettings(settingsPath, logger)
	}

	cfg := finisher.DefaultConfig()
	cfg.Local.AssetsDir = assetsDir

	f := finisher.New(cfg)
	slogger := hooks.NewSlogLogger(logger)
	f.SetLogger(slogger)
	f.AddHook(hooks.NewLoggingHook(slogger))
	return f, settings, nil
}

func parseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "err":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
