package commands

import (
	"os"

	"github.com/code-troopers/postits/internal/printer"
	"github.com/code-troopers/postits/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
	initOpts  scaffold.Options
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a postits.yml in the current directory",
	Long: `Create a postits.yml with default settings in the current directory.

Use --force to replace an existing file (WARNING: destroys existing configuration).`,
	Args: cobra.NoArgs,
	// The file may not exist yet, or be the broken one being replaced
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Force reinitialization (replaces existing postits.yml)")
	initCmd.Flags().StringVar(&initOpts.APIURL, "api-url", "", "Server REST base URL (default http://localhost:3010)")
	initCmd.Flags().StringVar(&initOpts.Transport, "transport", "", "Event transport: websocket or redis")
	initCmd.Flags().StringVar(&initOpts.RedisURL, "redis-url", "", "Redis URL when --transport=redis")
	initCmd.Flags().StringVar(&initOpts.Instance, "instance", "", "Redis channel namespace when --transport=redis")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	path, err := scaffold.Initialize(dir, initOpts, forceInit)
	if err != nil {
		return printer.Error("initialization failed", err.Error(), nil)
	}

	scaffold.PrintSuccess(path)
	return nil
}
