package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuphat-bit/Eco-Hero/core"
)

func TestTopIndividuals(t *testing.T) {
	depts, users := fixture()
	current := []core.LogEntry{
		logFor(t, "u1", "d1", core.Digital, 10),     // 20
		logFor(t, "u3", "d2", core.Digital, 20),     // 40
		logFor(t, "u5", "d3", core.Reuse, 5),        // 5
		logFor(t, "u6", "d3", core.SingleSided, 10), // -20
		logFor(t, "u5", "d3", core.Digital, 5),      // u5 total 15
	}
	top := TopIndividuals(users, depts, current, DefaultTopIndividuals)
	require.Len(t, top, 3)
	assert.Equal(t, core.UserID("u3"), top[0].UserID)
	assert.Equal(t, "Cat", top[0].Name)
	assert.Equal(t, "Library", top[0].DepartmentName)
	assert.Equal(t, int64(40), top[0].EcoPoints)
	assert.Equal(t, core.UserID("u1"), top[1].UserID)
	assert.Equal(t, core.UserID("u5"), top[2].UserID)
	assert.Equal(t, 3, top[2].Rank)

	all := TopIndividuals(users, depts, current, 0)
	assert.Len(t, all, 4, "only users with logs are ranked")
}

func TestTopIndividualsTieBreakByUserID(t *testing.T) {
	depts, users := fixture()
	// encounter order u4, u2, u3 with equal points
	current := []core.LogEntry{
		logFor(t, "u4", "d2", core.Reuse, 3),
		logFor(t, "u2", "d1", core.Reuse, 3),
		logFor(t, "u3", "d2", core.Reuse, 3),
	}
	for i := 0; i < 20; i++ {
		top := TopIndividuals(users, depts, current, 2)
		require.Len(t, top, 2)
		assert.Equal(t, core.UserID("u2"), top[0].UserID)
		assert.Equal(t, core.UserID("u3"), top[1].UserID)
	}
}

func TestTopIndividualsUnknownUser(t *testing.T) {
	current := []core.LogEntry{logFor(t, "ghost", "d9", core.Digital, 1)}
	top := TopIndividuals(nil, nil, current, 3)
	require.Len(t, top, 1)
	assert.Equal(t, "ghost", top[0].Name)
	assert.Empty(t, TopIndividuals(nil, nil, nil, 3))
}
