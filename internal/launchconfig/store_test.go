package launchconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// The test binary doubles as a separate writer process when STORE_WRITER_DIR is set.
func TestMain(m *testing.M) {
	if dir := os.Getenv("STORE_WRITER_DIR"); dir != "" {
		cfg := LaunchConfig{"configId": os.Getenv("STORE_WRITER_ID")}
		if _, err := Update(NewDirStore(dir, nil), cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func TestUpsert(t *testing.T) {
	lj := NewLaunchJSON()
	lj.Configurations = []LaunchConfig{
		{"configId": "A", "v": "1"},
		{"configId": "C"},
	}

	assert.Equal(t, 0, lj.Upsert(LaunchConfig{"configId": "A", "v": "2"}))
	assert.Equal(t, 2, lj.Upsert(LaunchConfig{"configId": "B"}))

	assert.Equal(t, []LaunchConfig{
		{"configId": "A", "v": "2"},
		{"configId": "C"},
		{"configId": "B"},
	}, lj.Configurations)
}

func TestUpsert_ReplacesWithoutMerging(t *testing.T) {
	lj := NewLaunchJSON()
	lj.Upsert(LaunchConfig{"configId": "A", "old": true})
	lj.Upsert(LaunchConfig{"configId": "A", "new": true})

	assert.Equal(t, []LaunchConfig{{"configId": "A", "new": true}}, lj.Configurations)
}

func TestParseLaunchJSON(t *testing.T) {
	lj, ok := ParseLaunchJSON([]byte(`{"version":"0.2.0","configurations":[{"configId":"a","port":3333}],"compounds":[]}`))
	require.True(t, ok)
	assert.Equal(t, json.Number("3333"), lj.Configurations[0]["port"])
	assert.Contains(t, lj.Extra, "compounds")

	for _, raw := range []string{
		``,
		`[]`,
		`{"configurations":[]}`,
		`{"version":"0.1.0","configurations":[]}`,
		`{"version":"0.2.0"}`,
		`{"version":"0.2.0","configurations":null}`,
		`{"version":"0.2.0","configurations":{}}`,
		`{"version":"0.2.0","configurations":"nope"}`,
	} {
		_, ok := ParseLaunchJSON([]byte(raw))
		assert.False(t, ok, raw)
	}
}

func TestParseLaunchJSON_SkipsNonObjects(t *testing.T) {
	lj, ok := ParseLaunchJSON([]byte(`{"version":"0.2.0","configurations":[{"configId":"A"},1,null,"oops",[],{"configId":"B"}]}`))
	require.True(t, ok)
	assert.Equal(t, []LaunchConfig{{"configId": "A"}, {"configId": "B"}}, lj.Configurations)
	assert.Equal(t, 4, lj.Skipped)
}

func TestDirStore_UpdateKeepsValidEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LaunchJSONFileName),
		[]byte(`{"version":"0.2.0","configurations":[{"configId":"A","name":"keep me"},"oops"]}`), 0o644))

	var logs bytes.Buffer
	store := NewDirStore(dir, log.New(&logs, "", 0))
	_, err := Update(store, LaunchConfig{"configId": "B"})
	require.NoError(t, err)

	lj, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []LaunchConfig{
		{"configId": "A", "name": "keep me"},
		{"configId": "B"},
	}, lj.Configurations)
	assert.Contains(t, logs.String(), "Skipping 1 configurations")
}

func TestEncode(t *testing.T) {
	lj := NewLaunchJSON()
	lj.Upsert(LaunchConfig{"configId": "a:b:c", "cwd": "${workspaceRoot}", "gdbTarget": "<host>:3333"})

	data, err := lj.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{
  "configurations": [
    {
      "configId": "a:b:c",
      "cwd": "${workspaceRoot}",
      "gdbTarget": "<host>:3333"
    }
  ],
  "version": "0.2.0"
}`, string(data))
}

func TestDirStore_LoadMissing(t *testing.T) {
	store := NewDirStore(filepath.Join(t.TempDir(), "not", "yet"), quietLogger())

	lj, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, NewLaunchJSON(), lj)
}

func TestDirStore_LoadMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LaunchJSONFileName), []byte(`{"version":"1"}`), 0o644))

	var logs bytes.Buffer
	lj, err := NewDirStore(dir, log.New(&logs, "", 0)).Load()
	require.NoError(t, err)
	assert.Equal(t, NewLaunchJSON(), lj)
	assert.Contains(t, logs.String(), "malformed")
}

func TestDirStore_UpdateCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "launch", "configs")
	store := NewDirStore(dir, quietLogger())

	cfg := LaunchConfig{"configId": "a:b:c:programmer=p", "executable": "e"}
	_, err := Update(store, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, LaunchJSONFileName))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"0.2.0","configurations":[{"configId":"a:b:c:programmer=p","executable":"e"}]}`, string(data))
	assert.Contains(t, string(data), "\n  \"configurations\"", "2-space indentation")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	assert.ElementsMatch(t, []string{LaunchJSONFileName, LaunchJSONFileName + LockFileSuffix}, names, "no temp files are left behind")
}

func TestDirStore_UpdatePreservesOrderAndExtras(t *testing.T) {
	dir := t.TempDir()
	existing := `{
		"version": "0.2.0",
		"configurations": [
			{"configId": "A", "name": "first"},
			{"configId": "B", "name": "second"}
		],
		"inputs": [{"id": "port", "type": "promptString"}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, LaunchJSONFileName), []byte(existing), 0o644))

	store := NewDirStore(dir, quietLogger())
	_, err := Update(store, LaunchConfig{"configId": "A", "name": "replaced"})
	require.NoError(t, err)

	lj, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []LaunchConfig{
		{"configId": "A", "name": "replaced"},
		{"configId": "B", "name": "second"},
	}, lj.Configurations)
	assert.JSONEq(t, `[{"id":"port","type":"promptString"}]`, string(lj.Extra["inputs"]))
}

func TestSettingsStore_KeepsOtherSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	settings := `{
		// user settings
		"editor.fontSize": 14,
		"cortex-debug.armToolchainPath": "/tc",
	}`
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o644))

	store := NewSettingsStore(path, quietLogger())
	_, err := Update(store, LaunchConfig{"configId": "a:b:c"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(14), gjson.GetBytes(data, "editor\\.fontSize").Int())
	assert.Equal(t, "/tc", gjson.GetBytes(data, "cortex-debug\\.armToolchainPath").String())
	assert.Equal(t, "0.2.0", gjson.GetBytes(data, "launch.version").String())
	assert.Equal(t, "a:b:c", gjson.GetBytes(data, "launch.configurations.0.configId").String())

	lj, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []LaunchConfig{{"configId": "a:b:c"}}, lj.Configurations)
}

func TestSettingsStore_MissingAndMalformed(t *testing.T) {
	dir := t.TempDir()

	lj, err := NewSettingsStore(filepath.Join(dir, "missing.json"), quietLogger()).Load()
	require.NoError(t, err)
	assert.Equal(t, NewLaunchJSON(), lj)

	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"launch": {"version": "0.2.0", "configurations": "nope"}}`), 0o644))
	store := NewSettingsStore(path, quietLogger())
	lj, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, NewLaunchJSON(), lj)

	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = Update(store, LaunchConfig{"configId": "x"})
	require.NoError(t, err)
	lj, err = store.Load()
	require.NoError(t, err)
	assert.Len(t, lj.Configurations, 1)
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	store := NewMemoryStore()
	lj, err := Update(store, LaunchConfig{"configId": "A", "nested": map[string]any{"k": "v"}})
	require.NoError(t, err)

	// Mutating the returned document does not leak into the store
	lj.Configurations[0]["nested"].(map[string]any)["k"] = "changed"

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "v", loaded.Configurations[0]["nested"].(map[string]any)["k"])
}

// TestUpdate_Concurrent verifies that concurrent updates of one store do not lose writes.
func TestUpdate_Concurrent(t *testing.T) {
	store := NewDirStore(t.TempDir(), quietLogger())

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := Update(store, LaunchConfig{"configId": fmt.Sprintf("cfg-%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	lj, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, lj.Configurations, n)
}

func TestUpdate_SeparateStoresSameDirectory(t *testing.T) {
	dir := t.TempDir()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := Update(NewDirStore(dir, quietLogger()), LaunchConfig{"configId": fmt.Sprintf("cfg-%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	lj, err := NewDirStore(dir, quietLogger()).Load()
	require.NoError(t, err)
	assert.Len(t, lj.Configurations, n)
}

func TestUpdate_SeparateProcesses(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)
	dir := t.TempDir()

	const n = 4
	cmds := make([]*exec.Cmd, n)
	for i := range cmds {
		cmd := exec.Command(exe)
		cmd.Env = append(os.Environ(), "STORE_WRITER_DIR="+dir, fmt.Sprintf("STORE_WRITER_ID=proc-%d", i))
		require.NoError(t, cmd.Start())
		cmds[i] = cmd
	}
	for _, cmd := range cmds {
		require.NoError(t, cmd.Wait())
	}

	lj, err := NewDirStore(dir, quietLogger()).Load()
	require.NoError(t, err)
	ids := make([]string, len(lj.Configurations))
	for i, cfg := range lj.Configurations {
		ids[i] = cfg.ConfigID()
	}
	assert.ElementsMatch(t, []string{"proc-0", "proc-1", "proc-2", "proc-3"}, ids)
}

func TestSettingsStore_UpdateSeparateStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := Update(NewSettingsStore(path, quietLogger()), LaunchConfig{"configId": fmt.Sprintf("cfg-%d", i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	lj, err := NewSettingsStore(path, quietLogger()).Load()
	require.NoError(t, err)
	assert.Len(t, lj.Configurations, 5)
}
