// File: cmd/roles.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
	"github.com/xaelith/ghostpilot/internal/observability"
	"github.com/xaelith/ghostpilot/internal/profile"
)

// newRolesCmd creates the `roles` command, which validates and lists the role
// profiles on disk. Trigger expressions are compiled, so a typo in a profile
// surfaces here instead of mid-session.
func newRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "Validates and lists the configured role profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			profiles := profile.NewFSStore(cfg.Profiles.Dir, logger)
			failed := 0
			for _, id := range schemas.AllRoleIDs {
				compiled, err := profiles.LoadCompiled(id)
				if err != nil {
					failed++
					fmt.Printf("%-8s INVALID  %v\n", id, err)
					continue
				}
				fmt.Printf("%-8s ok       %d behaviors, weapon set %q\n",
					id, len(compiled.Behaviors), compiled.Profile.PreferredWeaponSet)
				for _, b := range compiled.Behaviors {
					fmt.Printf("  [%4d] %-24s -> %s (%s)\n",
						b.Priority, b.Name, b.ActionKey, b.Category)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d role profile(s) failed validation", failed)
			}
			return nil
		},
	}
}
