package commands

import (
	"fmt"

	"github.com/code-troopers/postits/internal/identity"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user your token was issued to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tokens := cfg.TokenSource()
		if tokens == nil {
			return authError(identity.ErrNoToken)
		}
		user, err := identity.CurrentUserFrom(tokens)
		if err != nil {
			return authError(err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "ID:    %s\n", user.ID)
		fmt.Fprintf(w, "Name:  %s\n", user.DisplayName())
		if user.Email != "" {
			fmt.Fprintf(w, "Email: %s\n", user.Email)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
