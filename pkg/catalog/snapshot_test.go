package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

func TestTakeSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	embedded := testSkill("webapp-testing")
	require.NoError(t, store.SaveSkill(ctx, embedded))

	plain := testSkill("lucky-number-generator")
	plain.Embedding = nil
	require.NoError(t, store.SaveSkill(ctx, plain))

	require.NoError(t, store.UpsertLastCheck(ctx, "user-1", "webapp-testing", "1.0.0", time.Now()))

	snap, err := TakeSnapshot(ctx, store, "user-1")
	require.NoError(t, err)

	assert.Len(t, snap.Skills, 2)
	assert.True(t, snap.IsInstalled("webapp-testing"))
	assert.False(t, snap.IsInstalled("lucky-number-generator"))
	assert.False(t, snap.TakenAt.IsZero())

	skill, ok := snap.Skill("webapp-testing")
	require.True(t, ok)
	assert.Equal(t, "webapp-testing", skill.SkillID)

	_, ok = snap.Skill("missing")
	assert.False(t, ok)

	// Only skills with embeddings are eligible for similarity ranking
	eligible := snap.Embedded()
	require.Len(t, eligible, 1)
	assert.Equal(t, "webapp-testing", eligible[0].SkillID)

	// The keyword path covers the whole catalog
	assert.Len(t, snap.Keywords(), 2)
}

func TestSnapshotRefresh(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap, err := TakeSnapshot(ctx, store, "user-1")
	require.NoError(t, err)
	assert.Empty(t, snap.Skills)

	require.NoError(t, store.SaveSkill(ctx, testSkill("new-skill")))
	require.NoError(t, snap.Refresh(ctx, store, "user-1"))
	assert.Len(t, snap.Skills, 1)
}

func TestSnapshotCatalogOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSkill(ctx, testSkill("some-skill")))

	snap, err := TakeSnapshot(ctx, store, "")
	require.NoError(t, err)
	assert.Len(t, snap.Skills, 1)
	assert.False(t, snap.IsInstalled("some-skill"))

	var _ ctypes.Skill = snap.Skills[0]
}
