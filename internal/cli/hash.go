// filepath: internal/cli/hash.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// hashCmd generates the bcrypt hash expected by auth.password_hash.
var hashCmd = &cobra.Command{
	Use:   "hash [password]",
	Short: "Generate a bcrypt hash for the auth.password_hash setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		fmt.Println(string(hash))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(hashCmd)
}
