package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/arena-controller/go-controller/internal/history"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/logging"
	"github.com/danielpatrickdp/arena-controller/go-controller/internal/payload"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to arena_controller.db")
	last := flag.Int("last", 20, "show N most recent rows")
	version := flag.String("version", "", "show single batch detail")
	episodes := flag.Bool("episodes", false, "show the episode journal instead of batches")
	rollback := flag.String("rollback", "", "make an earlier batch active (applied at next controller start)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/arena_controller.db [--last N] [--version id] [--episodes] [--rollback id] [--json]")
		os.Exit(2)
	}

	store, err := history.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *rollback != "":
		err = store.Rollback(*rollback)
		if err == nil {
			fmt.Printf("active batch is now %s\n", *rollback)
		}
	case *version != "":
		err = runDetailMode(store, *version, *jsonOut)
	case *episodes:
		err = runEpisodeMode(store, *last, *jsonOut)
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

type listRow struct {
	VersionID  string `json:"version_id"`
	ParentID   string `json:"parent_id,omitempty"`
	Source     string `json:"source"`
	Mode       string `json:"mode"`
	ArenaCount int    `json:"arena_count"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at"`
}

func runListMode(store *history.Store, last int, jsonOut bool) error {
	versions, err := store.ListVersions(last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no batches found")
		return nil
	}
	activeID := ""
	if cur, err := store.GetCurrent(); err == nil {
		activeID = cur.VersionID
	}

	// Store returns newest first, reverse for chronological
	rows := make([]listRow, len(versions))
	for i, v := range versions {
		rows[len(versions)-1-i] = listRow{
			VersionID:  v.VersionID,
			ParentID:   v.ParentID,
			Source:     v.Source,
			Mode:       v.Mode,
			ArenaCount: v.ArenaCount,
			Active:     v.VersionID == activeID,
			CreatedAt:  v.CreatedAt.Format(time.RFC3339),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-10s  %-10s  %-6s  %-7s  %6s  %-6s  %s\n", "Batch", "Parent", "Source", "Mode", "Arenas", "Active", "Created")
	fmt.Printf("%-10s+-%-10s+-%-6s+-%-7s+-%6s+-%-6s+-%s\n", "----------", "----------", "------", "-------", "------", "------", "--------------------")
	for _, r := range rows {
		active := ""
		if r.Active {
			active = "*"
		}
		fmt.Printf("%-10s  %-10s  %-6s  %-7s  %6d  %-6s  %s\n",
			shortID(r.VersionID), shortID(r.ParentID), r.Source, r.Mode, r.ArenaCount, active, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	listRow
	IDs       []int  `json:"ids"`
	Randomize bool   `json:"randomize"`
	Payload   string `json:"payload"`
}

func runDetailMode(store *history.Store, versionID string, jsonOut bool) error {
	v, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}
	out := detailOutput{
		listRow: listRow{
			VersionID:  v.VersionID,
			ParentID:   v.ParentID,
			Source:     v.Source,
			Mode:       v.Mode,
			ArenaCount: v.ArenaCount,
			CreatedAt:  v.CreatedAt.Format(time.RFC3339),
		},
		Payload: string(v.Payload),
	}
	if cur, err := store.GetCurrent(); err == nil {
		out.Active = cur.VersionID == v.VersionID
	}
	if b, err := payload.Decode(v.Payload); err == nil {
		out.IDs = b.IDs()
		out.Randomize = b.RandomizeArenas
	}

	if jsonOut {
		return printJSON(out)
	}
	fmt.Printf("Batch:     %s\n", out.VersionID)
	fmt.Printf("Parent:    %s\n", out.ParentID)
	fmt.Printf("Created:   %s\n", out.CreatedAt)
	fmt.Printf("Source:    %s\n", out.Source)
	fmt.Printf("Mode:      %s\n", out.Mode)
	fmt.Printf("Active:    %v\n", out.Active)
	fmt.Printf("Arena ids: %v (randomize=%v)\n", out.IDs, out.Randomize)
	fmt.Printf("\n%s\n", out.Payload)
	return nil
}

// #endregion detail-mode

// #region episode-mode

func runEpisodeMode(store *history.Store, last int, jsonOut bool) error {
	entries, err := logging.RecentEpisodes(store.DB(), last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no episodes found")
		return nil
	}
	if jsonOut {
		return printJSON(entries)
	}
	fmt.Printf("%7s  %5s  %-10s  %6s  %6s  %-10s  %s\n", "Episode", "Arena", "Reason", "T", "Seed", "Batch", "Created")
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		seed := "-"
		if e.Seed != 0 {
			seed = fmt.Sprintf("%d", e.Seed)
		}
		fmt.Printf("%7d  %5d  %-10s  %6d  %6s  %-10s  %s\n",
			e.Episode, e.ArenaID, e.Reason, e.T, seed, shortID(e.VersionID), e.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// #endregion episode-mode

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

// #endregion output
