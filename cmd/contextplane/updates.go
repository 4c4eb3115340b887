package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/planehq/contextplane/pkg/presenter"
	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
	"github.com/planehq/contextplane/pkg/updates"
)

// UpdatesConfig holds configuration for the updates command
type UpdatesConfig struct {
	UserID    string
	Installed []string
	LastCheck string
	JSON      bool
}

// NewUpdatesConfig creates a new UpdatesConfig with default values
func NewUpdatesConfig() *UpdatesConfig {
	return &UpdatesConfig{
		UserID: "default",
	}
}

var updatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Check for new and updated skills",
	Long: `Compare your installed skills against the catalog and report skills with
newer versions plus skills added since your last check.

Installed skills are given as repeated --installed skillId@version flags.
When --last-check is omitted, every uninstalled catalog skill counts as new.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getUpdatesConfigFromFlags(cmd)

		installed, err := parseInstalledSkills(config.Installed)
		if err != nil {
			return err
		}

		lastCheck := time.Time{}
		if config.LastCheck != "" {
			lastCheck, err = time.Parse(time.RFC3339, config.LastCheck)
			if err != nil {
				return errors.Wrapf(err, "invalid --last-check %q, want RFC3339", config.LastCheck)
			}
		}

		database, skills, _, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		service := updates.NewService(skills)
		resp, err := service.Check(ctx, &updates.CheckRequest{
			UserID:          config.UserID,
			InstalledSkills: installed,
			LastCheck:       lastCheck,
		})
		if err != nil {
			return err
		}

		if config.JSON {
			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		if len(resp.AvailableUpdates) == 0 && len(resp.NewSkills) == 0 {
			presenter.Info("Everything is up to date")
			return nil
		}

		if len(resp.AvailableUpdates) > 0 {
			presenter.Section("Available updates")
			for _, u := range resp.AvailableUpdates {
				fmt.Printf("%s: %s -> %s (%s)\n", u.SkillID, u.CurrentVersion, u.LatestVersion, u.Name)
			}
		}
		if len(resp.NewSkills) > 0 {
			presenter.Section("New skills")
			for _, n := range resp.NewSkills {
				fmt.Printf("%s@%s (%s)\n", n.SkillID, n.LatestVersion, n.Name)
			}
		}
		return nil
	},
}

func init() {
	defaults := NewUpdatesConfig()
	updatesCmd.Flags().String("user", defaults.UserID, "User ID to record the check against")
	updatesCmd.Flags().StringArray("installed", nil, "Installed skill as skillId@version (repeatable)")
	updatesCmd.Flags().String("last-check", "", "Last check timestamp (RFC3339)")
	updatesCmd.Flags().Bool("json", defaults.JSON, "Output raw JSON")
}

// getUpdatesConfigFromFlags extracts updates configuration from command flags
func getUpdatesConfigFromFlags(cmd *cobra.Command) *UpdatesConfig {
	config := NewUpdatesConfig()

	if user, err := cmd.Flags().GetString("user"); err == nil {
		config.UserID = user
	}
	if installed, err := cmd.Flags().GetStringArray("installed"); err == nil {
		config.Installed = installed
	}
	if lastCheck, err := cmd.Flags().GetString("last-check"); err == nil {
		config.LastCheck = lastCheck
	}
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}

	return config
}

func parseInstalledSkills(specs []string) ([]ctypes.InstalledSkill, error) {
	installed := make([]ctypes.InstalledSkill, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, "@", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.Errorf("invalid --installed %q, want skillId@version", spec)
		}
		installed = append(installed, ctypes.InstalledSkill{SkillID: parts[0], Version: parts[1]})
	}
	return installed, nil
}
