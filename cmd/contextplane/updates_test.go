package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

func TestParseInstalledSkills(t *testing.T) {
	installed, err := parseInstalledSkills([]string{"pdf@0.8.0", "webapp-testing@1.2.0"})
	require.NoError(t, err)
	assert.Equal(t, []ctypes.InstalledSkill{
		{SkillID: "pdf", Version: "0.8.0"},
		{SkillID: "webapp-testing", Version: "1.2.0"},
	}, installed)
}

func TestParseInstalledSkillsInvalid(t *testing.T) {
	for _, spec := range []string{"pdf", "pdf@", "@1.0.0"} {
		t.Run(spec, func(t *testing.T) {
			_, err := parseInstalledSkills([]string{spec})
			assert.ErrorContains(t, err, "invalid --installed")
		})
	}
}

func TestParseInstalledSkillsEmpty(t *testing.T) {
	installed, err := parseInstalledSkills(nil)
	require.NoError(t, err)
	assert.Empty(t, installed)
}
