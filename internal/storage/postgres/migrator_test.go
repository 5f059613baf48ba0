package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_more.up.sql":   {Data: []byte("CREATE TABLE b (id INT);")},
		"sql/migrations/0002_more.down.sql": {Data: []byte("DROP TABLE IF EXISTS b;")},
		"sql/migrations/0001_init.up.sql":   {Data: []byte("CREATE TABLE a (id INT);")},
		"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS a;")},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, int64(1), migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Equal(t, int64(2), migrations[1].Version)
	assert.Equal(t, "DROP TABLE IF EXISTS b;", migrations[1].DownSQL)
}

func TestLoadMigrationsFromFS_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		fsys    fstest.MapFS
		wantErr string
	}{
		"missing down": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "both up and down",
		},
		"invalid name": {
			fsys: fstest.MapFS{
				"sql/migrations/not_a_migration.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "invalid migration file name",
		},
		"empty body": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   {Data: []byte("   \n")},
				"sql/migrations/0001_init.down.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "empty",
		},
		"name mismatch": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":    {Data: []byte("SELECT 1;")},
				"sql/migrations/0001_other.down.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "name mismatch",
		},
		"no files": {
			fsys:    fstest.MapFS{},
			wantErr: "no migration files",
		},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := loadMigrationsFromFS(tc.fsys)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Contains(t, migrations[0].UpSQL, "CREATE TABLE IF NOT EXISTS orders")
	assert.Contains(t, migrations[0].UpSQL, "outbox_messages")
	assert.Equal(t, "promotion_scope", migrations[1].Name)
}

func testMigrations() []migration {
	return []migration{
		{Version: 1, Name: "init", UpSQL: "CREATE TABLE a (id INT);", DownSQL: "DROP TABLE a;", Checksum: checksum("CREATE TABLE a (id INT);")},
		{Version: 2, Name: "more", UpSQL: "CREATE TABLE b (id INT);", DownSQL: "DROP TABLE b;", Checksum: checksum("CREATE TABLE b (id INT);")},
		{Version: 3, Name: "last", UpSQL: "CREATE TABLE c (id INT);", DownSQL: "DROP TABLE c;", Checksum: checksum("CREATE TABLE c (id INT);")},
	}
}

func stepVersions(plan []migrationStep) []int64 {
	versions := make([]int64, 0, len(plan))
	for _, step := range plan {
		versions = append(versions, step.Version)
	}
	return versions
}

func TestPlanMigrations(t *testing.T) {
	t.Parallel()

	all := testMigrations()
	applied1 := []appliedMigration{{Version: 1, Checksum: all[0].Checksum}}
	applied12 := append(applied1, appliedMigration{Version: 2, Checksum: all[1].Checksum})

	cases := map[string]struct {
		applied   []appliedMigration
		direction migrationDirection
		steps     int
		want      []int64
	}{
		"up all from empty":   {direction: migrationUp, want: []int64{1, 2, 3}},
		"up one step":         {direction: migrationUp, steps: 1, want: []int64{1}},
		"up skips applied":    {applied: applied1, direction: migrationUp, want: []int64{2, 3}},
		"down defaults to 1":  {applied: applied12, direction: migrationDown, want: []int64{2}},
		"down newest first":   {applied: applied12, direction: migrationDown, steps: 5, want: []int64{2, 1}},
		"down on empty":       {direction: migrationDown, steps: 1, want: []int64{}},
		"legacy row no check": {applied: []appliedMigration{{Version: 1}}, direction: migrationUp, want: []int64{2, 3}},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			plan, err := planMigrations(all, tc.applied, tc.direction, tc.steps)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stepVersions(plan))
			for _, step := range plan {
				assert.Equal(t, tc.direction, step.direction)
			}
		})
	}
}

func TestPlanMigrations_Errors(t *testing.T) {
	t.Parallel()

	all := testMigrations()

	_, err := planMigrations(all, []appliedMigration{{Version: 1, Checksum: "edited"}}, migrationUp, 0)
	require.ErrorIs(t, err, ErrMigrationDrift)
	assert.Contains(t, err.Error(), "1_init")

	_, err = planMigrations(all, []appliedMigration{{Version: 9}}, migrationDown, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migration version 9")

	_, err = planMigrations(all, nil, migrationDirection("sideways"), 0)
	require.Error(t, err)
}

func TestMigrationState(t *testing.T) {
	t.Parallel()

	all := testMigrations()

	assert.Equal(t, MigrationState{Pending: 3}, migrationState(all, nil))

	state := migrationState(all, []appliedMigration{{Version: 1}, {Version: 2}})
	assert.Equal(t, MigrationState{Version: 2, Applied: 2, Pending: 1}, state)
	assert.False(t, state.Current())
}

func TestLoadMigrationsFromFS_Checksum(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0001_init.up.sql":   {Data: []byte("  CREATE TABLE a (id INT);\n")},
		"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE a;")},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	require.NoError(t, err)
	require.Len(t, migrations, 1)
	assert.Equal(t, checksum("CREATE TABLE a (id INT);"), migrations[0].Checksum)
	assert.Len(t, migrations[0].Checksum, 64)
}
