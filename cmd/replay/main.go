package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/logging"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to arena_controller.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	export := flag.String("export", "", "DB mode: write the rebuilt fixture to this path")
	seed := flag.Int64("seed", 1, "DB mode: seed the controller ran with")
	interval := flag.Int("interval", 5, "DB mode: decision interval the controller ran with")
	limit := flag.Int("limit", 10000, "DB mode: number of journal entries to read")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/arena_controller.db [--seed N] [--interval N] [--export out.json]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *seed, *interval, *limit, *export)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region modes

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	return replayAndPrint(f)
}

// runDBMode rebuilds a fixture from the episode journal and the batch history
// and checks that the recorded selections replay identically.
func runDBMode(dbPath string, seed int64, interval, limit int, exportPath string) int {
	store, err := history.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	recent, err := logging.RecentEpisodes(store.DB(), limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read journal: %v\n", err)
		return 2
	}
	if len(recent) == 0 {
		fmt.Fprintln(os.Stderr, "no episodes found in episode_log")
		return 2
	}
	chronological := make([]logging.EpisodeEntry, len(recent))
	for i, e := range recent {
		chronological[len(recent)-1-i] = e
	}

	f, err := replay.FixtureFromJournal(store, chronological, seed, interval)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	if exportPath != "" {
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal fixture: %v\n", err)
			return 2
		}
		if err := os.WriteFile(exportPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "write fixture: %v\n", err)
			return 2
		}
		fmt.Printf("wrote %s (%d batches, %d resets)\n", exportPath, len(f.Batches), len(f.ExpectedIDs))
	}
	return replayAndPrint(f)
}

// #endregion modes

// #region output

func replayAndPrint(f *replay.Fixture) int {
	res, err := replay.Run(f, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	ids := res.IDs()
	fmt.Printf("%-6s| %-9s| %-9s| %s\n", "Reset", "Expected", "Replayed", "Match")
	fmt.Printf("%-6s+%-10s+%-10s+%s\n", "------", "----------", "----------", "------")
	n := len(ids)
	if len(f.ExpectedIDs) > n {
		n = len(f.ExpectedIDs)
	}
	for i := 0; i < n; i++ {
		exp, got := "-", "-"
		if i < len(f.ExpectedIDs) {
			exp = fmt.Sprintf("%d", f.ExpectedIDs[i])
		}
		if i < len(ids) {
			got = fmt.Sprintf("%d", ids[i])
		}
		match := "OK"
		if exp != got {
			match = "DIFF"
		}
		fmt.Printf("%-6d| %-9s| %-9s| %s\n", i, exp, got, match)
	}
	if res.Err != nil {
		fmt.Printf("\nStopped: %v\n", res.Err)
	}

	mismatches := replay.Compare(f, res)
	fmt.Printf("\nSummary: %d resets, %d mismatches\n", len(ids), len(mismatches))
	for _, m := range mismatches {
		fmt.Printf("  %s\n", m)
	}
	if len(mismatches) > 0 {
		return 1
	}
	return 0
}

// #endregion output
