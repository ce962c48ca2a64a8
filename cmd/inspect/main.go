package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sreemahi-code/abbhack/internal/catalog"
	"github.com/sreemahi-code/abbhack/internal/dataset"
	"github.com/sreemahi-code/abbhack/internal/logging"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the server's sqlite database")
	last := flag.Int("last", 20, "show N most recent entries")
	runs := flag.Bool("runs", false, "list simulation runs instead of dataset versions")
	version := flag.String("version", "", "show single version detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/abbhack.db [--last N] [--runs | --version id] [--json]")
		os.Exit(2)
	}
	if *runs && *version != "" {
		fmt.Fprintln(os.Stderr, "--runs and --version are mutually exclusive")
		os.Exit(2)
	}

	store, err := catalog.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *version != "":
		err = runDetailMode(store, *version, *jsonOut)
	case *runs:
		err = runRunsMode(store, *last, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

func runListMode(store *catalog.Store, last int, jsonOut bool) error {
	versions, err := store.ListVersions(last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}
	if jsonOut {
		return printJSON(versions)
	}

	fmt.Printf("%-10s  %-10s  %-24s  %8s  %-6s  %s\n", "Version", "Parent", "Name", "Rows", "Active", "Created")
	fmt.Printf("%-10s+-%-10s+-%-24s+-%8s+-%-6s+-%s\n",
		"----------", "----------", "------------------------", "--------", "------", "--------------------")
	// store returns newest first, print chronologically
	for i := len(versions) - 1; i >= 0; i-- {
		v := versions[i]
		active := ""
		if v.Active {
			active = "*"
		}
		parent := "-"
		if v.ParentID != "" {
			parent = shortID(v.ParentID)
		}
		fmt.Printf("%-10s  %-10s  %-24s  %8d  %-6s  %s\n",
			shortID(v.VersionID), parent, truncate(v.Name, 24), v.RowCount, active,
			v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	catalog.Version
	Indexed   int                   `json:"indexed"`
	FirstSeen string                `json:"firstSeen,omitempty"`
	LastSeen  string                `json:"lastSeen,omitempty"`
	Monthly   []dataset.MonthBucket `json:"monthly,omitempty"`
}

func runDetailMode(store *catalog.Store, versionID string, jsonOut bool) error {
	v, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}
	tbl, err := store.LoadTable(versionID)
	if err != nil {
		return err
	}
	snap := dataset.NewStore(dataset.DefaultSchema()).Load(v.Meta(), tbl)

	out := detailOutput{Version: v, Indexed: snap.Indexed()}
	if lo, hi, ok := snap.Bounds(); ok {
		out.FirstSeen = lo.Format(dataset.SyntheticLayout)
		out.LastSeen = hi.Format(dataset.SyntheticLayout)
		out.Monthly = snap.MonthlyBuckets([]dataset.Window{{Tag: "all", Start: lo, End: hi}})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Version:    %s\n", v.VersionID)
	fmt.Printf("Parent:     %s\n", v.ParentID)
	fmt.Printf("Name:       %s\n", v.Name)
	fmt.Printf("Created:    %s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Active:     %v\n", v.Active)
	fmt.Printf("Rows:       %d (%d indexed)\n", v.RowCount, out.Indexed)
	fmt.Printf("Columns:    %s\n", strings.Join(v.Columns, ", "))
	if out.FirstSeen != "" {
		fmt.Printf("Range:      %s .. %s\n", out.FirstSeen, out.LastSeen)
	}
	if len(out.Monthly) > 0 {
		fmt.Printf("\nRows per month:\n")
		for _, b := range out.Monthly {
			fmt.Printf("  %-10s %d\n", b.Month, b.Count)
		}
	}
	return nil
}

// #endregion detail-mode

// #region runs-mode

func runRunsMode(store *catalog.Store, last int, jsonOut bool) error {
	db := store.DB()
	if err := logging.EnsureSchema(db); err != nil {
		return err
	}
	entries, err := logging.ListRuns(context.Background(), db, last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}
	if jsonOut {
		return printJSON(entries)
	}

	fmt.Printf("%-10s  %-10s  %-10s  %6s  %6s  %6s  %8s  %s\n",
		"Run", "Dataset", "State", "Count", "Pass", "Fail", "AvgConf", "Started")
	fmt.Printf("%-10s+-%-10s+-%-10s+-%6s+-%6s+-%6s+-%8s+-%s\n",
		"----------", "----------", "----------", "------", "------", "------", "--------", "--------------------")
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		fmt.Printf("%-10s  %-10s  %-10s  %6d  %6d  %6d  %8.4f  %s\n",
			shortID(e.RunID), shortID(e.DatasetID), e.State, e.Count, e.PassCount, e.FailCount,
			e.AvgConfidence, e.StartedAt.Format("2006-01-02T15:04:05Z"))
		if e.Error != "" {
			fmt.Printf("  error: %s\n", e.Error)
		}
	}
	return nil
}

// #endregion runs-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

// #endregion output
