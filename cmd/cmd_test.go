package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	rows map[string][]map[string]interface{}
}

func (f *fakeDB) ListSchools(string, string) ([]SchoolData, error)                { return nil, nil }
func (f *fakeDB) SearchSchools(string, string, string, int) ([]SchoolData, error) { return nil, nil }
func (f *fakeDB) GetSchoolByID(int64) (*SchoolData, error)                        { return nil, nil }
func (f *fakeDB) Close() error                                                    { return nil }

func (f *fakeDB) ExecuteQuery(query string) ([]map[string]interface{}, error) {
	return f.rows[query], nil
}

func TestGetTableSchema(t *testing.T) {
	db := &fakeDB{rows: map[string][]map[string]interface{}{
		// DuckDB reports notnull as a bool
		"PRAGMA table_info('schools')": {
			{"cid": int32(0), "name": "id", "type": "BIGINT", "notnull": true},
			{"cid": int32(1), "name": "name", "type": "VARCHAR", "notnull": true},
			{"cid": int32(2), "name": "name_cn", "type": "VARCHAR", "notnull": false},
		},
		// SQLite reports it as an integer
		"PRAGMA table_info('ingest_runs')": {
			{"cid": int64(0), "name": "id", "type": "TEXT", "notnull": int64(0)},
			{"cid": int64(1), "name": "report", "type": "TEXT", "notnull": int64(1)},
		},
	}}

	schema, err := getTableSchema(db, "schools")
	require.NoError(t, err)
	require.Equal(t, 3, schema.ColumnCount)
	require.Equal(t, ColumnInfo{Name: "name", Type: "VARCHAR", Nullable: "NO"}, schema.Columns[1])
	require.Equal(t, "YES", schema.Columns[2].Nullable)

	schema, err = getTableSchema(db, "ingest_runs")
	require.NoError(t, err)
	require.Equal(t, "YES", schema.Columns[0].Nullable)
	require.Equal(t, "NO", schema.Columns[1].Nullable)

	_, err = getTableSchema(db, "missing")
	require.Error(t, err)
}

func TestIngestSettingsFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ingest.json5")
	require.NoError(t, os.WriteFile(path, []byte(`{
		source: "edb",
		districts: ["Wan Chai"],
		delay: "2s",
		attempts: 5,
	}`), 0644))

	flags := ingestCmd.Flags()
	require.NoError(t, flags.Set("config", path))
	require.NoError(t, flags.Set("district", "Sha Tin,Islands"))
	require.NoError(t, flags.Set("delay", "250ms"))
	require.NoError(t, flags.Set("trust", "directory"))

	run, err := ingestSettings(ingestCmd)
	require.NoError(t, err)
	require.Equal(t, "edb", run.Source)
	require.Equal(t, []string{"Sha Tin", "Islands"}, run.Districts)
	require.Equal(t, "250ms", run.Delay)
	require.Equal(t, "directory", run.Trust)
	require.Equal(t, 5, run.Attempts)

	cfg, err := run.Pipeline()
	require.NoError(t, err)
	require.Len(t, cfg.Units, 2)
	require.Equal(t, "Islands", cfg.Units[1].District)

	require.NoError(t, flags.Set("config", filepath.Join(t.TempDir(), "none.json5")))
	_, err = ingestSettings(ingestCmd)
	require.ErrorContains(t, err, "not found")
}
