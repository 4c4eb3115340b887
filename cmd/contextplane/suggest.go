package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/planehq/contextplane/pkg/presenter"
	"github.com/planehq/contextplane/pkg/suggest"
)

// SuggestConfig holds configuration for the suggest command
type SuggestConfig struct {
	UserID string
	JSON   bool
}

// NewSuggestConfig creates a new SuggestConfig with default values
func NewSuggestConfig() *SuggestConfig {
	return &SuggestConfig{
		UserID: "default",
	}
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [task description]",
	Short: "Suggest skills relevant to a task description",
	Long: `Rank catalog skills against a free-text task description. Uses embedding
similarity when the provider is reachable and keyword matching otherwise.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getSuggestConfigFromFlags(cmd)
		task := strings.Join(args, " ")

		database, skills, _, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		service := newSuggestService(skills)
		resp, err := service.Suggest(ctx, &suggest.Request{
			TaskDescription: task,
			UserID:          config.UserID,
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

		if len(resp.Suggestions) == 0 {
			presenter.Info("No matching skills found")
			return nil
		}

		presenter.Section(fmt.Sprintf("Suggestions (%s)", resp.Method))
		for _, s := range resp.Suggestions {
			installed := ""
			if s.Installed {
				installed = " [installed]"
			}
			fmt.Printf("%s (%.2f)%s\n    %s\n", s.SkillID, s.Confidence, installed, s.Reasoning)
		}
		return nil
	},
}

func init() {
	defaults := NewSuggestConfig()
	suggestCmd.Flags().String("user", defaults.UserID, "User ID for installed-skill annotation")
	suggestCmd.Flags().Bool("json", defaults.JSON, "Output raw JSON")
}

// getSuggestConfigFromFlags extracts suggest configuration from command flags
func getSuggestConfigFromFlags(cmd *cobra.Command) *SuggestConfig {
	config := NewSuggestConfig()

	if user, err := cmd.Flags().GetString("user"); err == nil {
		config.UserID = user
	}
	if jsonOut, err := cmd.Flags().GetBool("json"); err == nil {
		config.JSON = jsonOut
	}

	return config
}
