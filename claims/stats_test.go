package claims_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/invite-bot/claims"
)

func TestStats(t *testing.T) {
	f := newFixture(t, "code,userid\nA,u1\nB,\nC,\nD,\n")
	require.NoError(t, f.quota.IncreaseBy(context.Background(), 3, "admin"))
	_, err := f.eligibility.AddRole(context.Background(), "r1")
	require.NoError(t, err)

	stats, err := claims.Stats(context.Background(), f.invites, f.quota, f.eligibility)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Claimed)
	assert.Equal(t, 3, stats.Limit)
	assert.Equal(t, 2, stats.Available)
	assert.Equal(t, "admin", stats.LastUpdatedBy)
	assert.Equal(t, []string{"r1"}, stats.WhitelistedRoles)
}

func TestStatsLoadError(t *testing.T) {
	f := newFixture(t, "")
	_, err := claims.Stats(context.Background(), &failingInvites{loadErr: errors.New("disk gone")}, f.quota, f.eligibility)
	assert.EqualError(t, err, "loading invite table: disk gone")
}
