package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuphat-bit/Eco-Hero/core"
)

func TestDefaultRoster(t *testing.T) {
	r, err := Default()
	require.NoError(t, err)
	assert.Len(t, r.Departments, 5)
	assert.Len(t, r.Users, 27)

	perDept := map[core.DepartmentID]int{}
	for _, u := range r.Users {
		perDept[u.DepartmentID]++
		assert.NoError(t, core.ValidatePIN(u.PIN))
	}
	assert.Equal(t, map[core.DepartmentID]int{"d1": 2, "d2": 5, "d3": 9, "d4": 8, "d5": 3}, perDept)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	doc := `{"departments":[{"id":"x","name":"X"}],"users":[{"id":"a","name":"A","department_id":"x","pin":"0000","total_points":99}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	r, err := Load(path)
	require.NoError(t, err)
	require.Len(t, r.Users, 1)
	assert.Zero(t, r.Users[0].TotalPoints)

	r, err = Load("")
	require.NoError(t, err)
	assert.Len(t, r.Users, 27)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseRejectsBadRoster(t *testing.T) {
	_, err := Parse([]byte(`{`))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = Parse([]byte(`{"departments":[],"users":[{"id":"a","name":"A","department_id":"x","pin":"0000"}]}`))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
