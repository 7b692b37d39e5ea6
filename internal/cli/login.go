package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frederic-klein/yamm/internal/credentials"
)

var loginForce bool

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the mod portal and store the download token",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginForce, "force", false, "re-authenticate even if a token is stored")
}

func runLogin(cmd *cobra.Command, args []string) error {
	client := newPortalClient()
	store := credentials.NewStore(cfg.PlayerDataPath)

	if !loginForce {
		if creds, ok, err := store.Lookup(); err != nil {
			return err
		} else if ok {
			fmt.Printf("Already logged in as %s. Use --force to re-authenticate.\n", creds.Username)
			return nil
		}
	} else {
		// drop the stored token so the interactive flow runs again
		if err := store.Save(credentials.Credentials{}); err != nil {
			return err
		}
	}

	provider := &credentials.Interactive{Store: store, Auth: client}
	creds, err := provider.Credentials()
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s.\n", creds.Username)
	return nil
}
