package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/planehq/contextplane/pkg/contexts"
	"github.com/planehq/contextplane/pkg/presenter"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search stored context records",
	Long: `Search context records by structured and free-text filters. All supplied
filters combine with AND semantics; with no filters the most recent records
are returned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		filters := getSearchFiltersFromFlags(cmd.Flags())
		jsonOut, _ := cmd.Flags().GetBool("json")

		database, _, records, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		result, err := records.Search(ctx, filters)
		if err != nil {
			return err
		}

		if jsonOut {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		if result.Count == 0 {
			presenter.Info("No matching context records")
			return nil
		}

		presenter.Section(fmt.Sprintf("Context records (%d)", result.Count))
		for _, record := range result.Records {
			attrs := record.Attributes
			fmt.Printf("%s  %s  repo=%s ticket=%s status=%s\n",
				record.ContextID, record.Timestamp.Format("2006-01-02 15:04"),
				attrs.RepoID, attrs.TicketID, attrs.Status)
			if attrs.Details != "" {
				fmt.Printf("    %s\n", attrs.Details)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("repo", "", "Filter by exact repo ID")
	searchCmd.Flags().String("ticket", "", "Filter by exact ticket ID")
	searchCmd.Flags().String("file", "", "Filter by file path substring")
	searchCmd.Flags().String("level", "", "Filter by context level (global, project, ticket)")
	searchCmd.Flags().String("client", "", "Filter by AI client type")
	searchCmd.Flags().String("status", "", "Filter by workflow status")
	searchCmd.Flags().String("query", "", "Case-insensitive substring match against details")
	searchCmd.Flags().Int("limit", 0, fmt.Sprintf("Maximum records to return (1-%d, default %d)", contexts.MaxLimit, contexts.DefaultLimit))
	searchCmd.Flags().Bool("json", false, "Output raw JSON")
}

// getSearchFiltersFromFlags extracts search filters from command flags
func getSearchFiltersFromFlags(flags *pflag.FlagSet) contexts.Filters {
	var filters contexts.Filters

	if repo, err := flags.GetString("repo"); err == nil {
		filters.RepoID = repo
	}
	if ticket, err := flags.GetString("ticket"); err == nil {
		filters.TicketID = ticket
	}
	if file, err := flags.GetString("file"); err == nil {
		filters.FilePath = file
	}
	if level, err := flags.GetString("level"); err == nil {
		filters.ContextLevel = level
	}
	if client, err := flags.GetString("client"); err == nil {
		filters.AIClient = client
	}
	if status, err := flags.GetString("status"); err == nil {
		filters.Status = status
	}
	if query, err := flags.GetString("query"); err == nil {
		filters.Query = query
	}
	if limit, err := flags.GetInt("limit"); err == nil {
		filters.Limit = limit
	}

	return filters
}
