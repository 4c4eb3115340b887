package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/planehq/contextplane/pkg/logger"
	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

const skillFileName = "SKILL.md"

// Ingestor loads skill documents from configured directories into the
// catalog. Each skill is a directory containing a SKILL.md with YAML
// frontmatter describing its metadata.
type Ingestor struct {
	store     Store
	skillDirs []string
}

// IngestOption configures an Ingestor.
type IngestOption func(*Ingestor) error

// WithSkillDirs sets custom skill directories.
func WithSkillDirs(dirs ...string) IngestOption {
	return func(ing *Ingestor) error {
		ing.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs initializes with the default skill directories.
func WithDefaultDirs() IngestOption {
	return func(ing *Ingestor) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		ing.skillDirs = []string{
			"./.contextplane/skills",
			filepath.Join(homeDir, ".contextplane", "skills"),
		}
		return nil
	}
}

// NewIngestor creates a skill ingestor writing to the given store.
func NewIngestor(store Store, opts ...IngestOption) (*Ingestor, error) {
	ing := &Ingestor{store: store}

	if len(opts) == 0 {
		opts = []IngestOption{WithDefaultDirs()}
	}
	for _, opt := range opts {
		if err := opt(ing); err != nil {
			return nil, err
		}
	}

	return ing, nil
}

// IngestResult summarizes an ingestion run.
type IngestResult struct {
	Ingested int      `json:"skillsIngested"`
	Skipped  int      `json:"skillsSkipped"`
	Details  []string `json:"details"`
}

// skillMeta is the recognized YAML frontmatter of a SKILL.md file.
type skillMeta struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Version     string   `mapstructure:"version"`
	Category    string   `mapstructure:"category"`
	Tags        []string `mapstructure:"tags"`
	Visibility  string   `mapstructure:"visibility"`
}

// IngestAll discovers and ingests every skill under the configured
// directories. Parse failures skip the offending skill rather than aborting
// the run.
func (ing *Ingestor) IngestAll(ctx context.Context) (*IngestResult, error) {
	result := &IngestResult{}

	for _, dir := range ing.skillDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			entryPath := filepath.Join(dir, entry.Name())
			info, err := os.Stat(entryPath)
			if err != nil || !info.IsDir() {
				continue
			}

			skill, err := ing.parseSkillFile(filepath.Join(entryPath, skillFileName))
			if err != nil {
				result.Skipped++
				result.Details = append(result.Details, fmt.Sprintf("Skipped: %s - %v", entry.Name(), err))
				logger.G(ctx).WithError(err).WithField("skill", entry.Name()).Warn("skipping skill")
				continue
			}

			if err := ing.store.SaveSkill(ctx, skill); err != nil {
				result.Skipped++
				result.Details = append(result.Details, fmt.Sprintf("Failed: %s - %v", skill.SkillID, err))
				logger.G(ctx).WithError(err).WithField("skillId", skill.SkillID).Error("failed to save skill")
				continue
			}

			result.Ingested++
			result.Details = append(result.Details, fmt.Sprintf("Ingested: %s", skill.SkillID))
		}
	}

	logger.G(ctx).WithField("ingested", result.Ingested).WithField("skipped", result.Skipped).Info("skill ingestion complete")
	return result, nil
}

// parseSkillFile loads a single skill from its SKILL.md file.
func (ing *Ingestor) parseSkillFile(path string) (ctypes.Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return ctypes.Skill{}, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))

	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return ctypes.Skill{}, errors.Wrap(err, "failed to parse markdown")
	}

	metaData := meta.Get(pctx)
	if metaData == nil {
		return ctypes.Skill{}, errors.New("missing frontmatter")
	}

	var sm skillMeta
	if err := mapstructure.WeakDecode(metaData, &sm); err != nil {
		return ctypes.Skill{}, errors.Wrap(err, "failed to decode frontmatter")
	}

	if sm.Name == "" {
		return ctypes.Skill{}, errors.New("skill name is required in frontmatter")
	}
	if sm.Description == "" {
		return ctypes.Skill{}, errors.New("skill description is required in frontmatter")
	}

	version := sm.Version
	if version == "" {
		version = "1.0.0"
	}
	if _, err := ctypes.ParseVersion(version); err != nil {
		return ctypes.Skill{}, errors.Wrapf(err, "invalid version in frontmatter")
	}

	body := extractBodyContent(string(content))

	category := sm.Category
	if category == "" {
		category = categorizeSkill(sm.Name, body)
	}

	tags := sm.Tags
	if len(tags) == 0 {
		tags = extractTags(sm.Name, body)
	}

	visibility := ctypes.VisibilityScope(sm.Visibility)
	if visibility == "" {
		visibility = ctypes.VisibilityGlobal
	}

	return ctypes.Skill{
		SkillID:     sm.Name,
		Title:       titleFromBody(body, sm.Name),
		Description: sm.Description,
		Content:     body,
		Category:    category,
		Tags:        tags,
		Version:     version,
		Visibility:  visibility,
	}, nil
}

// extractBodyContent removes YAML frontmatter and returns the body.
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}
	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}

// titleFromBody returns the first level-one heading, falling back to a
// title-cased version of the skill name.
func titleFromBody(body, name string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}

	words := strings.Split(name, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// categorizeSkill derives a category from the skill name and content.
func categorizeSkill(name, content string) string {
	contentLower := strings.ToLower(content)

	switch {
	case strings.Contains(name, "doc") || strings.Contains(contentLower, "documentation"):
		return "documentation"
	case strings.Contains(name, "test") || strings.Contains(contentLower, "testing"):
		return "testing"
	case strings.Contains(name, "design") || strings.Contains(name, "frontend"):
		return "design"
	case strings.Contains(name, "pdf") || strings.Contains(name, "xlsx") ||
		strings.Contains(name, "pptx") || strings.Contains(name, "docx"):
		return "file-processing"
	case strings.Contains(name, "web"):
		return "web-development"
	default:
		return "general"
	}
}

// tagKeywords are content keywords promoted to tags when present.
var tagKeywords = []string{
	"documentation", "testing", "design", "frontend", "backend",
	"api", "database", "deployment", "security", "performance",
}

// extractTags derives tags from the skill name parts and content keywords.
func extractTags(name, content string) []string {
	seen := make(map[string]struct{})
	for _, part := range strings.Split(name, "-") {
		if part != "" {
			seen[part] = struct{}{}
		}
	}

	contentLower := strings.ToLower(content)
	for _, kw := range tagKeywords {
		if strings.Contains(contentLower, kw) {
			seen[kw] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
