package commands

import (
	"fmt"
	"os"

	"github.com/code-troopers/postits/internal/config"
	"github.com/code-troopers/postits/internal/logging"
	"github.com/code-troopers/postits/internal/printer"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath string
	logLevel   string

	// cfg is loaded once per invocation by the root pre-run hook
	cfg *config.PostitsConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "postits",
	Short: "postits - terminal client for collaborative sticky-note boards",
	Long: `postits keeps a live local copy of the boards on a postits server and
lets you browse them and post changes from the terminal.

Changes you make are sent to the server and only show up locally once the
server broadcasts them back, so every client converges on the same state.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to postits.yml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")
}

func loadConfig() error {
	loaded, err := config.LoadOrDefault(configPath)
	if err != nil {
		return printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"config": configPath},
			[]string{
				"Fix the file, or point at another one:\n  postits --config path/to/postits.yml",
				"Remove the file to fall back to http://localhost:3010",
			},
		)
	}

	level := loaded.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := logging.Setup(level, loaded.Log.Format); err != nil {
		return printer.Error("invalid log level", err.Error(), []string{"Valid levels: debug, info, warn, error"})
	}
	// Command output goes to stdout; logs never mix with tables or JSONL
	logging.SetOutput(os.Stderr)

	cfg = loaded
	return nil
}
