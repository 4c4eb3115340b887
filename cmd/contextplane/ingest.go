package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planehq/contextplane/pkg/catalog"
	"github.com/planehq/contextplane/pkg/logger"
	"github.com/planehq/contextplane/pkg/presenter"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest SKILL.md files into the skill catalog",
	Long: `Scan skill directories for SKILL.md files and load them into the catalog.
By default ./.contextplane/skills and ~/.contextplane/skills are scanned.

With --embeddings, skills without an embedding vector get one generated via
the configured provider so they become eligible for similarity ranking.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dirs, _ := cmd.Flags().GetStringArray("dir")
		generateEmbeddings, _ := cmd.Flags().GetBool("embeddings")

		database, skills, _, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		opts := []catalog.IngestOption{}
		if len(dirs) > 0 {
			opts = append(opts, catalog.WithSkillDirs(dirs...))
		}
		ingestor, err := catalog.NewIngestor(skills, opts...)
		if err != nil {
			return err
		}

		result, err := ingestor.IngestAll(ctx)
		if err != nil {
			return err
		}

		for _, detail := range result.Details {
			presenter.Info(detail)
		}
		presenter.Success(fmt.Sprintf("Ingested %d skills (%d skipped)", result.Ingested, result.Skipped))

		if !generateEmbeddings {
			return nil
		}

		provider := newEmbeddingProvider()
		all, err := skills.ListSkills(ctx)
		if err != nil {
			return err
		}

		embedded := 0
		for _, skill := range all {
			if skill.HasEmbedding() {
				continue
			}
			vector, err := provider.Embed(ctx, skill.SearchText())
			if err != nil {
				// Keyword matching still covers skills without vectors
				logger.G(ctx).WithError(err).WithField("skillId", skill.SkillID).
					Warn("failed to generate embedding")
				continue
			}
			skill.Embedding = vector
			if err := skills.SaveSkill(ctx, skill); err != nil {
				return err
			}
			embedded++
		}
		presenter.Success(fmt.Sprintf("Generated embeddings for %d skills", embedded))
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringArray("dir", nil, "Skill directory to scan (repeatable, overrides defaults)")
	ingestCmd.Flags().Bool("embeddings", false, "Generate embeddings for skills that lack them")
}
