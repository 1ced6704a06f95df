package cmd

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scerrors "github.com/addls/scout/internal/errors"
	"github.com/addls/scout/pkg/version"
)

const projectConfig = `search:
  driver: bleve
  per_page: 2
bleve:
  path: idx.bleve
elasticsearch:
  password: hunter2
repository:
  driver: sqlite
  dsn: people.db
  table: people
  key: id
`

// newProject creates a project directory with a config file and a small
// people table.
func newProject(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SCOUT_DRIVER", "bleve")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".scout.yaml"), []byte(projectConfig), 0o644))

	db, err := sql.Open("sqlite", filepath.Join(dir, "people.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`
		CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, city TEXT, age INTEGER);
		INSERT INTO people VALUES
			(1, 'Alice Smith', 'Berlin', 34),
			(2, 'Bob Jones', 'Paris', 27),
			(3, 'Carol Alison', 'Berlin', 45),
			(4, 'Dave Brown', 'Madrid', 19);
	`)
	require.NoError(t, err)
	return dir
}

// run executes one CLI invocation against dir and releases its resources.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	defer a.close()

	buf := &bytes.Buffer{}
	root := newRootCmd(a)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"--dir", dir}, args...))
	err := root.ExecuteContext(t.Context())
	return buf.String(), err
}

type jsonResult struct {
	Total     int              `json:"total"`
	Page      int              `json:"page"`
	PageCount float64          `json:"page_count"`
	Records   []map[string]any `json:"records"`
}

func searchJSON(t *testing.T, dir string, args ...string) jsonResult {
	t.Helper()
	out, err := run(t, dir, append([]string{"search", "--json"}, args...)...)
	require.NoError(t, err, out)

	var res jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func names(res jsonResult) []string {
	out := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		out = append(out, r["name"].(string))
	}
	return out
}

func imported(t *testing.T) string {
	t.Helper()
	dir := newProject(t)
	out, err := run(t, dir, "import")
	require.NoError(t, err, out)
	require.Contains(t, out, "Imported 4 records from people")
	return dir
}

func TestSearch_FreeText(t *testing.T) {
	dir := imported(t)

	res := searchJSON(t, dir, "ali", "--sort", "id")

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{"Alice Smith", "Carol Alison"}, names(res))
}

func TestSearch_Conditions(t *testing.T) {
	dir := imported(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"where", []string{"--where", "city=Berlin", "--sort", "age"}, []string{"Alice Smith", "Carol Alison"}},
		{"range", []string{"--op", "age>=30", "--sort", "age:desc"}, []string{"Carol Alison", "Alice Smith"}},
		{"not equal", []string{"--op", "city!=Berlin", "--sort", "age"}, []string{"Dave Brown", "Bob Jones"}},
		{"or", []string{"--or", "city=Paris", "--or", "city=Madrid", "--sort", "age"}, []string{"Dave Brown", "Bob Jones"}},
		{"in", []string{"--in", "id=2,4", "--sort", "id"}, []string{"Bob Jones", "Dave Brown"}},
		{"limit", []string{"--sort", "age", "--limit", "1"}, []string{"Dave Brown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(searchJSON(t, dir, tt.args...)))
		})
	}
}

func TestSearch_Paginate(t *testing.T) {
	dir := imported(t)

	res := searchJSON(t, dir, "--sort", "id", "--page", "2")

	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 2.0, res.PageCount)
	assert.Equal(t, []string{"Carol Alison", "Dave Brown"}, names(res))
}

func TestSearch_Table(t *testing.T) {
	dir := imported(t)

	out, err := run(t, dir, "search", "bob")

	require.NoError(t, err)
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "Bob Jones")
	assert.Contains(t, out, "1 of 1 matches")
}

func TestSearch_Explain(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, dir, "search", "ali", "--explain")

	require.NoError(t, err)
	assert.Contains(t, out, "*ali*")
}

func TestSearch_NullDriver(t *testing.T) {
	dir := imported(t)

	out, err := run(t, dir, "search", "alice", "--driver", "null")

	require.NoError(t, err)
	assert.Contains(t, out, "No records found")
}

func TestSearch_InvalidCondition(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, dir, "search", "--op", "age")

	require.Error(t, err)
	assert.Equal(t, scerrors.ErrCodeInvalidInput, scerrors.GetCode(err))
}

func TestSearch_UnknownDriver(t *testing.T) {
	dir := newProject(t)

	_, err := run(t, dir, "search", "x", "--driver", "solr")

	assert.Equal(t, scerrors.ErrCodeDriverUnknown, scerrors.GetCode(err))
}

func TestDelete(t *testing.T) {
	dir := imported(t)

	out, err := run(t, dir, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 records")

	res := searchJSON(t, dir, "ali")
	assert.Equal(t, []string{"Carol Alison"}, names(res))
}

func TestDrivers(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, dir, "drivers")

	require.NoError(t, err)
	var bleveLine string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "bleve") {
			bleveLine = line
		}
	}
	assert.Contains(t, bleveLine, "*")
	assert.Contains(t, out, "elasticsearch")
	assert.Contains(t, out, "null")
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	dir := newProject(t)

	out, err := run(t, dir, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "driver: bleve")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigInit(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	out, err := run(t, dir, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created project configuration")
	assert.FileExists(t, filepath.Join(dir, ".scout.yaml"))

	out, err = run(t, dir, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, t.TempDir(), "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(out))

	out, err = run(t, t.TempDir(), "version", "--json")
	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in           string
		col, op, val string
	}{
		{"age>=30", "age", ">=", "30"},
		{"age <= 30", "age", "<=", "30"},
		{"age>30", "age", ">", "30"},
		{"name=Bob", "name", "=", "Bob"},
		{"name!=Bob", "name", "!=", "Bob"},
		{"name<>Bob", "name", "<>", "Bob"},
		{"name like ali", "name", "like", "ali"},
		{"name LIKE ali", "name", "like", "ali"},
		{"note=a>b", "note", "=", "a>b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			col, op, val, err := parseCondition(tt.in)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.col, tt.op, tt.val}, []string{col, op, val})
		})
	}

	_, _, _, err := parseCondition("=5")
	assert.Error(t, err)
}

func TestProfileFlags(t *testing.T) {
	dir := newProject(t)
	cpu := filepath.Join(t.TempDir(), "cpu.prof")

	_, err := run(t, dir, "--profile-cpu", cpu, "drivers")

	require.NoError(t, err)
	assert.FileExists(t, cpu)
}
