package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/planehq/contextplane/pkg/catalog"
	"github.com/planehq/contextplane/pkg/presenter"
	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Browse and search the skill catalog",
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog skills, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filters := catalog.SkillFilters{Limit: catalog.DefaultListLimit}
		if limit, err := cmd.Flags().GetInt("limit"); err == nil && limit != 0 {
			filters.Limit = limit
		}
		jsonOut, _ := cmd.Flags().GetBool("json")

		database, skills, _, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		results, err := skills.SearchSkills(ctx, filters)
		if err != nil {
			return err
		}
		return printSkills(results, jsonOut)
	},
}

var skillsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search catalog skills by text, category, or tag",
	Long: `Search the skill catalog. The text query matches title and description
case-insensitively; category is an exact match; tag is a membership test.
All supplied filters combine with AND semantics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filters := getSkillFiltersFromFlags(cmd.Flags())
		jsonOut, _ := cmd.Flags().GetBool("json")

		database, skills, _, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		results, err := skills.SearchSkills(ctx, filters)
		if err != nil {
			return err
		}
		return printSkills(results, jsonOut)
	},
}

func init() {
	skillsListCmd.Flags().Int("limit", 0, fmt.Sprintf("Maximum skills to return (1-%d, default %d)", catalog.MaxSearchLimit, catalog.DefaultListLimit))
	skillsListCmd.Flags().Bool("json", false, "Output raw JSON")

	skillsSearchCmd.Flags().String("query", "", "Text search in title and description")
	skillsSearchCmd.Flags().String("category", "", "Filter by category")
	skillsSearchCmd.Flags().String("tag", "", "Filter by tag")
	skillsSearchCmd.Flags().Int("limit", 0, fmt.Sprintf("Maximum results to return (1-%d, default %d)", catalog.MaxSearchLimit, catalog.DefaultSearchLimit))
	skillsSearchCmd.Flags().Bool("json", false, "Output raw JSON")

	skillsCmd.AddCommand(skillsListCmd)
	skillsCmd.AddCommand(skillsSearchCmd)
}

// getSkillFiltersFromFlags extracts skill search filters from command flags
func getSkillFiltersFromFlags(flags *pflag.FlagSet) catalog.SkillFilters {
	var filters catalog.SkillFilters

	if query, err := flags.GetString("query"); err == nil {
		filters.Query = query
	}
	if category, err := flags.GetString("category"); err == nil {
		filters.Category = category
	}
	if tag, err := flags.GetString("tag"); err == nil {
		filters.Tag = tag
	}
	if limit, err := flags.GetInt("limit"); err == nil {
		filters.Limit = limit
	}

	return filters
}

func printSkills(skills []ctypes.Skill, jsonOut bool) error {
	if jsonOut {
		out, err := json.MarshalIndent(skills, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(skills) == 0 {
		presenter.Info("No matching skills")
		return nil
	}

	presenter.Section(fmt.Sprintf("Skills (%d)", len(skills)))
	for _, skill := range skills {
		fmt.Printf("%s@%s  [%s]  %s\n", skill.SkillID, skill.Version, skill.Category, skill.Title)
		if len(skill.Tags) > 0 {
			fmt.Printf("    tags: %s\n", strings.Join(skill.Tags, ", "))
		}
	}
	return nil
}
