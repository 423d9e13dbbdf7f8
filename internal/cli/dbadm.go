package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lifehub/internal/service"
	"lifehub/internal/storage"
)

var migrateAdmCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create any missing tables and key indexes",
	Long: `Migrate creates every registry table that does not exist yet, together with
the index on its natural key. It is safe to run multiple times.`,
	Args: cobra.NoArgs,
	RunE: runMigrateAdm,
}

var tablesAdmCmd = &cobra.Command{
	Use:   "tables",
	Short: "List registry tables with their natural keys and row counts",
	Args:  cobra.NoArgs,
	RunE:  runTablesAdm,
}

var ingestAdmCmd = &cobra.Command{
	Use:   "ingest <table> <file.json>",
	Short: "Upsert exported records into a table",
	Long: `Ingest reads a JSON array of records, or an object with a "records" array,
and syncs it into the named table exactly like POST /api/sync/{table}.
Records whose natural key already exists are skipped. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: runIngestAdm,
}

var (
	tablesJSON bool
	ingestJSON bool
)

func init() {
	rootAdmCmd.AddCommand(migrateAdmCmd)
	rootAdmCmd.AddCommand(tablesAdmCmd)
	rootAdmCmd.AddCommand(ingestAdmCmd)

	tablesAdmCmd.Flags().BoolVar(&tablesJSON, "json", false, "Output JSON")
	ingestAdmCmd.Flags().BoolVar(&ingestJSON, "json", false, "Output per-record outcomes as JSON")
}

func runMigrateAdm(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Schema up to date: %s (%d tables)\n", env.cfg.DBPath, len(env.registry.Tables()))
	return nil
}

type tableRow struct {
	Name  string   `json:"name"`
	Key   []string `json:"key"`
	Count int      `json:"count"`
}

func runTablesAdm(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	svc := service.NewSyncService(env.db, env.registry, storage.NewRecordRepo(), nil)
	infos, err := svc.Tables(env.context(cmd))
	if err != nil {
		return err
	}

	rows := make([]tableRow, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, tableRow{Name: info.Name, Key: info.Key, Count: info.Count})
	}

	out := cmd.OutOrStdout()
	if tablesJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%-28s %8d  %s\n", r.Name, r.Count, strings.Join(r.Key, ","))
	}
	return nil
}

type ingestRecord struct {
	Index   int    `json:"index"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type ingestReport struct {
	Table           string         `json:"table"`
	Succeeded       int            `json:"succeeded"`
	SkippedOrFailed int            `json:"skippedOrFailed"`
	Records         []ingestRecord `json:"records"`
}

func runIngestAdm(cmd *cobra.Command, args []string) error {
	table, path := args[0], args[1]

	records, err := readRecords(cmd, path)
	if err != nil {
		return err
	}

	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	svc := service.NewSyncService(env.db, env.registry, storage.NewRecordRepo(), nil)
	res, err := svc.SyncTable(env.context(cmd), table, records)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ingestJSON {
		report := ingestReport{
			Table:           res.Table,
			Succeeded:       res.Succeeded,
			SkippedOrFailed: res.SkippedOrFailed,
			Records:         make([]ingestRecord, 0, len(res.Results)),
		}
		for _, r := range res.Results {
			rec := ingestRecord{Index: r.Index, Outcome: r.Outcome.String()}
			if r.Err != nil {
				rec.Error = r.Err.Error()
			}
			report.Records = append(report.Records, rec)
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	fmt.Fprintf(out, "✓ %s: %d inserted, %d skipped or failed\n", res.Table, res.Succeeded, res.SkippedOrFailed)
	for _, r := range res.Results {
		if r.Err != nil {
			fmt.Fprintf(out, "  record %d: %v\n", r.Index, r.Err)
		}
	}
	return nil
}

// readRecords decodes the records at path ("-" for stdin). Numbers are kept
// as json.Number so integers survive unchanged.
func readRecords(cmd *cobra.Command, path string) ([]map[string]any, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Records []map[string]any `json:"records"`
		}
		if err := dec.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if wrapped.Records == nil {
			return nil, fmt.Errorf("%s has no records array", path)
		}
		return wrapped.Records, nil
	}

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}
