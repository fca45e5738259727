package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filterchain/internal/config"
	"github.com/roach88/filterchain/internal/testutil"
)

// seededDB creates a people database file and returns its path.
func seededDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.db")
	testutil.SeedPeople(t, testutil.OpenStoreAt(t, path))
	return path
}

func TestRun_Rows(t *testing.T) {
	db := seededDB(t)

	for _, driver := range []string{config.DriverSQLite, config.DriverGorm} {
		t.Run(driver, func(t *testing.T) {
			stdout, stderr, err := execute(t, "run", chainPath("bobs.yaml"), "--db-driver", driver, "--db-dsn", db)
			require.NoError(t, err)

			assert.Equal(t,
				"email=bob@berkeley.edu id=1 name=Bob\n"+
					"email=bob1@berkeley.edu id=4 name=Bob\n"+
					"email=bob1@berkeley.edu id=5 name=Bob\n"+
					"3 row(s)\n",
				stdout)
			assert.Contains(t, stderr, "running filter chain")
			assert.Contains(t, stderr, "run_id=")
		})
	}
}

func TestRun_Count(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "run", chainPath("high_bob.cue"), "--db-dsn", db, "--count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout)
}

func TestRun_JSON(t *testing.T) {
	db := seededDB(t)

	stdout, _, err := execute(t, "run", chainPath("high_bob.cue"), "--db-dsn", db, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		RunID  string    `json:"run_id"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(1), resp.Data.Count)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, float64(5), resp.Data.Rows[0]["id"])

	id, err := uuid.Parse(resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestRun_DSNFromEnv(t *testing.T) {
	t.Setenv("FILTERCHAIN_DB_DSN", seededDB(t))

	stdout, _, err := execute(t, "run", chainPath("high_bob.cue"), "--count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout)
}

func TestRun_Errors(t *testing.T) {
	db := seededDB(t)

	testCases := []struct {
		name     string
		args     []string
		exitCode int
		errCode  string
	}{
		{
			name:     "no dsn",
			args:     []string{"run", chainPath("bobs.yaml")},
			exitCode: ExitCommandError,
			errCode:  ErrCodeDatabase,
		},
		{
			name:     "missing database",
			args:     []string{"run", chainPath("bobs.yaml"), "--db-dsn", filepath.Join(t.TempDir(), "missing.db")},
			exitCode: ExitCommandError,
			errCode:  ErrCodeDatabase,
		},
		{
			name:     "malformed fragment",
			args:     []string{"run", chainPath("malformed.yaml"), "--db-dsn", db},
			exitCode: ExitFailure,
			errCode:  ErrCodeExecFailed,
		},
		{
			name:     "missing chain file",
			args:     []string{"run", chainPath("gone.yaml"), "--db-dsn", db},
			exitCode: ExitCommandError,
			errCode:  "E005",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, _, err := execute(t, append(tc.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, tc.exitCode, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.errCode, resp.Error.Code)
			assert.NotEmpty(t, resp.RunID)
		})
	}
}

func TestRun_InvalidDriver(t *testing.T) {
	_, _, err := execute(t, "run", chainPath("bobs.yaml"), "--db-driver", "mysql", "--db-dsn", "x")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid db driver")
}

func TestFormatRow(t *testing.T) {
	assert.Equal(t, "a=1 b=NULL c=x", formatRow(map[string]any{"c": "x", "a": int64(1), "b": nil}))
	assert.Equal(t, "", formatRow(map[string]any{}))
}
