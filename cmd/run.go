// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xaelith/ghostpilot/api/schemas"
	"github.com/xaelith/ghostpilot/internal/config"
	"github.com/xaelith/ghostpilot/internal/decision"
	"github.com/xaelith/ghostpilot/internal/observability"
)

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Starts a bot session against the simulated rehearsal world",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so CLI values override file and env config.
			if err := viper.BindPFlag("loop.tick_rate", cmd.Flags().Lookup("tick-rate")); err != nil {
				return err
			}
			if err := viper.BindPFlag("humanize.max_session_hours", cmd.Flags().Lookup("max-hours")); err != nil {
				return err
			}
			if err := viper.BindPFlag("control.enabled", cmd.Flags().Lookup("control")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := observability.GetLogger()
			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			roleFlag, _ := cmd.Flags().GetString("role")
			group := schemas.GroupComposition{}
			group.Size, _ = cmd.Flags().GetInt("group-size")
			group.HasHealer, _ = cmd.Flags().GetBool("group-has-healer")
			group.HasTank, _ = cmd.Flags().GetBool("group-has-tank")
			group.PvP, _ = cmd.Flags().GetBool("pvp")
			seed, _ := cmd.Flags().GetInt64("sim-seed")

			// Role switching happens only here, at the session boundary.
			roleID := schemas.RoleID(roleFlag)
			if roleID == "" {
				roleID = decision.SelectRole(cfg.Decision, group, cfg.Profiles.DefaultRole)
			}

			sessionID := uuid.New().String()
			logger.Info("Starting session",
				zap.String("session_id", sessionID),
				zap.String("role", string(roleID)),
				zap.Int("group_size", group.Size),
			)

			components, err := buildSession(ctx, cfg, roleID, sessionID, seed, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize session components: %w", err)
			}
			defer components.Close()

			if err := components.Loop.Run(ctx, components.PriorDailyUse); err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Session aborted", zap.String("session_id", sessionID))
					return nil
				}
				return err
			}

			fmt.Printf("\nSession complete. Session ID: %s\n", sessionID)
			return nil
		},
	}

	runCmd.Flags().String("role", "", "role profile to load (default: selected from group composition)")
	runCmd.Flags().Int("group-size", 1, "current group size")
	runCmd.Flags().Bool("group-has-healer", false, "group already has a healer")
	runCmd.Flags().Bool("group-has-tank", false, "group already has a tank")
	runCmd.Flags().Bool("pvp", false, "PvP context")
	runCmd.Flags().Int64("sim-seed", 0, "seed for the rehearsal world (0 = time-based)")
	runCmd.Flags().Float64("tick-rate", 0, "control loop ticks per second")
	runCmd.Flags().Float64("max-hours", 0, "session length cap in hours")
	runCmd.Flags().Bool("control", false, "enable the local control channel")

	return runCmd
}
