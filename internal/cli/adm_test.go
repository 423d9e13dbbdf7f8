package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var admEnvKeys = []string{
	"LIFEHUB_CONFIG", "DB_PATH", "BACKUP_DIR", "BACKUP_RETAIN", "STORE_LOCK_TIMEOUT",
	"MUSIC_LIBRARY_PATH", "BOOK_LIBRARY_PATH", "IMAGE_LIBRARY_PATH", "PROJECTS_PATH",
	"MAX_UPLOAD_MB", "API_PORT", "LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	"LLM_BASE_URL", "LLM_API_KEY", "LLM_MODEL",
}

// setupAdmEnv points the admin CLI at a fresh store in a temp directory.
func setupAdmEnv(t *testing.T) string {
	t.Helper()
	for _, key := range admEnvKeys {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
	dir := t.TempDir()
	if wd, err := os.Getwd(); err == nil {
		t.Cleanup(func() { _ = os.Chdir(wd) })
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DB_PATH", filepath.Join(dir, "data", "LocalDB.db"))
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

// runAdm executes the admin root command with flags reset to their defaults.
func runAdm(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	dbPathFlag = ""
	tablesJSON, ingestJSON = false, false
	backupSnapshotPrune, backupLsJSON = false, false
	backupPruneRetain = -1

	var out bytes.Buffer
	rootAdmCmd.SetOut(&out)
	rootAdmCmd.SetErr(io.Discard)
	rootAdmCmd.SetIn(strings.NewReader(stdin))
	rootAdmCmd.SetArgs(args)
	err := rootAdmCmd.Execute()
	return out.String(), err
}

func TestMigrateAdm(t *testing.T) {
	dir := setupAdmEnv(t)

	out, err := runAdm(t, "", "migrate")
	if err != nil {
		t.Fatalf("migrate error = %v", err)
	}
	if !strings.Contains(out, "Schema up to date") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "LocalDB.db")); err != nil {
		t.Errorf("store not created: %v", err)
	}

	other := filepath.Join(dir, "other", "Other.db")
	out, err = runAdm(t, "", "--db", other, "migrate")
	if err != nil {
		t.Fatalf("migrate --db error = %v", err)
	}
	if !strings.Contains(out, other) {
		t.Errorf("output = %q, want %s", out, other)
	}
	if _, err := os.Stat(filepath.Join(dir, "other", "backups")); err != nil {
		t.Errorf("backup directory for --db not created: %v", err)
	}
}

func TestIngestAdm(t *testing.T) {
	dir := setupAdmEnv(t)

	path := filepath.Join(dir, "habits.json")
	records := `[
		{"date": "2024-05-01", "habitKey": "water", "value": 3},
		{"date": "2024-05-01", "habitKey": "water", "value": 4}
	]`
	if err := os.WriteFile(path, []byte(records), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runAdm(t, "", "ingest", "QuantifiableHabits", path)
	if err != nil {
		t.Fatalf("ingest error = %v", err)
	}
	if !strings.Contains(out, "1 inserted, 1 skipped or failed") {
		t.Errorf("output = %q", out)
	}

	out, err = runAdm(t, `{"records": [{"date": "2024-05-02", "habitKey": "water", "value": 1}]}`,
		"ingest", "QuantifiableHabits", "-", "--json")
	if err != nil {
		t.Fatalf("ingest from stdin error = %v", err)
	}
	var report ingestReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("ingest --json output %q: %v", out, err)
	}
	if report.Succeeded != 1 || len(report.Records) != 1 || report.Records[0].Outcome != "inserted" {
		t.Errorf("report = %+v", report)
	}

	out, err = runAdm(t, "", "tables", "--json")
	if err != nil {
		t.Fatalf("tables error = %v", err)
	}
	var rows []tableRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("tables --json output %q: %v", out, err)
	}
	found := false
	for _, r := range rows {
		if r.Name == "QuantifiableHabits" {
			found = true
			if r.Count != 2 {
				t.Errorf("QuantifiableHabits count = %d, want 2", r.Count)
			}
		}
	}
	if !found {
		t.Errorf("QuantifiableHabits missing from %s", out)
	}
}

func TestIngestAdm_Errors(t *testing.T) {
	dir := setupAdmEnv(t)

	path := filepath.Join(dir, "records.json")
	if err := os.WriteFile(path, []byte(`[{"name": "x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{name: "unknown table", args: []string{"ingest", "Nope", path}},
		{name: "missing file", args: []string{"ingest", "Pillars", filepath.Join(dir, "absent.json")}},
		{name: "malformed json", stdin: `[{`, args: []string{"ingest", "Pillars", "-"}},
		{name: "object without records", stdin: `{"rows": []}`, args: []string{"ingest", "Pillars", "-"}},
		{name: "missing argument", args: []string{"ingest", "Pillars"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runAdm(t, tt.stdin, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBackupAdm(t *testing.T) {
	dir := setupAdmEnv(t)

	if _, err := runAdm(t, "", "migrate"); err != nil {
		t.Fatal(err)
	}

	out, err := runAdm(t, "", "backup", "snapshot")
	if err != nil {
		t.Fatalf("backup snapshot error = %v", err)
	}
	if !strings.Contains(out, "Created backup") {
		t.Errorf("output = %q", out)
	}

	// A file that does not look like a backup is never listed or pruned.
	stray := filepath.Join(dir, "data", "backups", "notes.txt")
	if err := os.WriteFile(stray, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = runAdm(t, "", "backup", "ls", "--json")
	if err != nil {
		t.Fatalf("backup ls error = %v", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(out), &names); err != nil {
		t.Fatalf("backup ls --json output %q: %v", out, err)
	}
	if len(names) != 1 || !strings.HasPrefix(names[0], "LocalDB_") || !strings.HasSuffix(names[0], ".db") {
		t.Errorf("backups = %v", names)
	}

	out, err = runAdm(t, "", "backup", "prune", "--retain", "0")
	if err != nil {
		t.Fatalf("backup prune error = %v", err)
	}
	if !strings.Contains(out, "Pruned 1 backups") {
		t.Errorf("output = %q", out)
	}

	out, err = runAdm(t, "", "backup", "ls")
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("backups after prune = %q", out)
	}
	if _, err := os.Stat(stray); err != nil {
		t.Errorf("stray file removed: %v", err)
	}
}

func TestLibraryAdm(t *testing.T) {
	dir := setupAdmEnv(t)

	music := filepath.Join(dir, "music")
	for _, p := range []string{"Album/track.mp3", "Album/.cover.jpg", "Live/set.flac"} {
		full := filepath.Join(music, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("MUSIC_LIBRARY_PATH", music)

	out, err := runAdm(t, "", "library", "ls", "music")
	if err != nil {
		t.Fatalf("library ls error = %v", err)
	}
	if out != "Album\nLive\n" {
		t.Errorf("collections = %q", out)
	}

	out, err = runAdm(t, "", "library", "ls", "music", "Album")
	if err != nil {
		t.Fatalf("library ls collection error = %v", err)
	}
	if out != "track.mp3\n" {
		t.Errorf("files = %q", out)
	}

	if _, err := runAdm(t, "", "library", "ls", "books"); err == nil {
		t.Error("expected error for unconfigured library")
	}
	if _, err := runAdm(t, "", "library", "ls", "music", ".."); err == nil {
		t.Error("expected error for traversal")
	}
}
