package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"

	"mystery_story_studio/generator"
	"mystery_story_studio/publisher"
	"mystery_story_studio/tui"
)

const appName = "storystudio"

var (
	configFile string
	debug      bool

	rootCmd = &cobra.Command{
		Use:          appName,
		Short:        "Write and revise mystery short stories with an LLM",
		Long:         "storystudio generates Twilight Zone style short stories in Spanish, revises them on request and exports them as .doc or narrated .wav files.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runTUI,
	}
)

func newLogger(w io.Writer) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          appName,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// setupLog sends logs to a file so they do not draw over the TUI.
func setupLog() (*log.Logger, func() error, error) {
	scope := gap.NewScope(gap.User, appName)
	path, err := scope.LogPath(appName + ".log")
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return newLogger(f), f.Close, nil
}

func configDirs() []string {
	var dirs []string
	if c := os.Getenv("STORYSTUDIO_CONFIG_HOME"); c != "" {
		dirs = append(dirs, c)
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append(dirs, filepath.Join(c, appName))
	}
	scope := gap.NewScope(gap.User, appName)
	if found, err := scope.ConfigDirs(); err == nil {
		dirs = append(dirs, found...)
	}
	return append(dirs, ".")
}

func loadConfig(logger *log.Logger) (publisher.Config, error) {
	cfg, err := publisher.LoadConfig(configFile, configDirs()...)
	if err != nil {
		return publisher.Config{}, err
	}
	logger.Debug("configuration loaded", "llm", cfg.LLM.Provider, "tts", cfg.TTS.Provider, "export", cfg.Export.Backend)
	return cfg, nil
}

func runTUI(cmd *cobra.Command, _ []string) error {
	logger, closer, err := setupLog()
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}
	defer closer()

	cfg, err := loadConfig(logger)
	if err != nil {
		return err
	}
	st, err := buildStudio(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	sess := generator.NewSession(uuid.New().String(), st.agent, st.narrator, logger)
	return tui.Run(sess, st.pub)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default storystudio.yaml in the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logs")
	rootCmd.AddCommand(serveCmd, writeCmd, ideaCmd)
}
