package bigquery

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_second.sql":       {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (x INT64);")},
		"0001_first.sql":        {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (x INT64);")},
		"001_invalid.sql":       {Data: []byte("wrong number format")},
		"0003_missing_ext":      {Data: []byte("missing .sql")},
		"invalid_0004_test.sql": {Data: []byte("wrong order")},
		"README.md":             {Data: []byte("docs")},
	}

	migrations, err := LoadMigrations(fsys, "proj", "ds")
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.ds.a` (x INT64);", migrations[0].SQL)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Len(t, migrations[0].Checksum, 64)
}

func TestLoadMigrations_ChecksumIgnoresTarget(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_first.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (x INT64);")},
	}

	a, err := LoadMigrations(fsys, "proj-a", "ds")
	require.NoError(t, err)
	b, err := LoadMigrations(fsys, "proj-b", "other")
	require.NoError(t, err)

	assert.Equal(t, a[0].Checksum, b[0].Checksum)
	assert.NotEqual(t, a[0].SQL, b[0].SQL)
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_first.sql": {Data: []byte("SELECT 1")},
		"0001_again.sql": {Data: []byte("SELECT 2")},
	}

	_, err := LoadMigrations(fsys, "p", "d")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrations(EmbeddedMigrations(), "proj", "statements")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "versions are contiguous")
		assert.NotContains(t, m.SQL, "{{")
		assert.True(t, strings.Contains(m.SQL, "`proj.statements."), m.Filename)
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}

	tests := []struct {
		name    string
		applied []AppliedMigration
		want    []int
	}{
		{name: "fresh dataset", want: []int{1, 2, 3}},
		{name: "partly applied", applied: []AppliedMigration{{Version: 1}}, want: []int{2, 3}},
		{name: "gap", applied: []AppliedMigration{{Version: 1}, {Version: 3}}, want: []int{2}},
		{name: "up to date", applied: []AppliedMigration{{Version: 1}, {Version: 2}, {Version: 3}}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, m := range PendingMigrations(all, tt.applied) {
				got = append(got, m.Version)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
