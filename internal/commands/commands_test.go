package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedash/internal/records/recordstest"
)

func runDashctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T) string {
	t.Helper()
	raw, err := json.Marshal(recordstest.Dataset())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "dash.db"))
	t.Setenv("AMQP_URL", "")
}

func TestMigrate(t *testing.T) {
	useSQLite(t)

	out, err := runDashctl(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrations applied (sqlite)\n", out)

	_, err = runDashctl(t, "migrate")
	require.NoError(t, err, "migrating twice is a no-op")
}

func TestMigrate_MemoryBackendRejected(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	_, err := runDashctl(t, "migrate")
	assert.ErrorContains(t, err, "memory backend")
}

func TestLoadThenReport(t *testing.T) {
	useSQLite(t)
	fixture := writeFixture(t)

	out, err := runDashctl(t, "load", fixture)
	require.NoError(t, err)
	assert.Equal(t, "loaded 4 vendors, 1 customers, 5 invoices, 4 line items, 1 payments\n", out)

	out, err = runDashctl(t, "report", "vendors")
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"v-1","name":"Acme Corp","totalSpend":100.1},
		{"id":"v-2","name":"Globex","totalSpend":0},
		{"id":"v-3","name":"Initech","totalSpend":0},
		{"id":"v-4","name":"Zeta Supplies","totalSpend":0}
	]`, out)

	out, err = runDashctl(t, "report", "invoices", "--limit", "2", "--status", "PENDING", "--sort-by", "total", "--sort-order", "asc")
	require.NoError(t, err)
	var page struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
		Pagination struct {
			Total      int `json:"total"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "inv-4", page.Data[0].ID)
	assert.Equal(t, "inv-2", page.Data[1].ID)

	out, err = runDashctl(t, "report", "outflow", "--start", "2024-03-01", "--end", "2024-03-31")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"date":"2024-03-10","amount":250.2}]`, out)
}

func TestReport_MemoryBackendFromFixture(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("FIXTURE_PATH", writeFixture(t))

	out, err := runDashctl(t, "report", "categories")
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"category":"Hardware","total":300.3},
		{"category":"Software","total":200.2},
		{"category":"Uncategorized","total":200.2},
		{"category":"Consulting","total":50}
	]`, out)
}

func TestReport_Errors(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("FIXTURE_PATH", "")

	_, err := runDashctl(t, "report", "profits")
	assert.Error(t, err)

	_, err = runDashctl(t, "report", "invoices", "--sort-by", "password")
	assert.ErrorContains(t, err, "invoices report")

	_, err = runDashctl(t, "report", "outflow", "--start", "tomorrow")
	assert.Error(t, err)
}

func TestNotify_RequiresAMQP(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("AMQP_URL", "")

	_, err := runDashctl(t, "notify", "invoices")
	assert.ErrorContains(t, err, "AMQP_URL")
}

func TestInvalidConfigFailsBeforeRunning(t *testing.T) {
	t.Setenv("DATA_BACKEND", "oracle")
	_, err := runDashctl(t, "report", "stats")
	assert.ErrorContains(t, err, "invalid data backend")
}
