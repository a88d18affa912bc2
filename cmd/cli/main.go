// Command total-reclaw-cli is the operator surface for the memory engine
// (spec.md §6): stats, search, lookup, prune, checkpoint, backfill-decay,
// and extract-daily, each a subcommand dispatched off os.Args[1] with its
// own flag.NewFlagSet, matching the donor's plain-main() cmd/ style — no
// CLI framework is grounded anywhere in the retrieval pack (see
// SPEC_FULL.md §10.5).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/TheFrenchOak/total-reclaw/internal/clock"
	"github.com/TheFrenchOak/total-reclaw/internal/config"
	"github.com/TheFrenchOak/total-reclaw/internal/embedding"
	"github.com/TheFrenchOak/total-reclaw/internal/ingest"
	"github.com/TheFrenchOak/total-reclaw/internal/memory"
	"github.com/TheFrenchOak/total-reclaw/internal/models"
	"github.com/TheFrenchOak/total-reclaw/internal/store"
	"github.com/TheFrenchOak/total-reclaw/internal/vectorstore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	clk := clock.SystemClock{}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open database:", err)
		os.Exit(1)
	}
	defer db.Close()

	entries := store.NewEntryStore(db, clk)
	embCache := store.NewEmbeddingCacheStore(db, clk)

	vectors, err := vectorstore.Open(cfg.VectorDir, cfg.VectorDim, clk)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open vector store:", err)
		os.Exit(1)
	}
	defer vectors.Close()

	var rawEmbedder embedding.Provider
	if cfg.EmbedProvider == "none" {
		rawEmbedder = embedding.NoopProvider{}
	} else {
		rawEmbedder = embedding.NewOllamaClient(cfg.EmbedURL, cfg.EmbedModel, logger)
	}
	embedder := embedding.NewCachedEmbedder(rawEmbedder, embCache, cfg.EmbedModel, cfg.VectorDim)

	svc := memory.NewService(entries, vectors, embedder, clk, logger)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "stats":
		runStats(svc)
	case "search":
		runSearch(svc, args)
	case "lookup":
		runLookup(entries, args)
	case "prune":
		runPrune(svc, args)
	case "checkpoint":
		runCheckpoint(svc, args)
	case "backfill-decay":
		runBackfillDecay(svc)
	case "extract-daily":
		runExtractDaily(svc, cfg, args)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: total-reclaw-cli <command> [flags]

commands:
  stats                       print decay-class breakdown
  search -q <query> [-limit N] [-entity E]
  lookup -entity E [-key K]
  prune [-mode hard|soft|both]
  checkpoint -save -intent I -state S [-outcome O]
  checkpoint -restore
  backfill-decay               re-run the decay classifier over stored entries
  extract-daily [-days N]      ingest recent markdown notes`)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func runStats(svc *memory.Service) {
	stats, err := svc.Stats()
	if err != nil {
		fmt.Fprintln(os.Stderr, "stats:", err)
		os.Exit(1)
	}
	printJSON(stats)
}

func runSearch(svc *memory.Service, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("q", "", "search query")
	limit := fs.Int("limit", 5, "max results")
	entity := fs.String("entity", "", "optional entity filter")
	fs.Parse(args)

	if *query == "" {
		fmt.Fprintln(os.Stderr, "search: -q is required")
		os.Exit(1)
	}
	results, err := svc.Recall(*query, *limit, *entity)
	if err != nil {
		fmt.Fprintln(os.Stderr, "search:", err)
		os.Exit(1)
	}
	printJSON(results)
}

func runLookup(entries *store.EntryStore, args []string) {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	entity := fs.String("entity", "", "entity name")
	key := fs.String("key", "", "optional key")
	fs.Parse(args)

	if *entity == "" {
		fmt.Fprintln(os.Stderr, "lookup: -entity is required")
		os.Exit(1)
	}
	results, err := entries.Lookup(*entity, *key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lookup:", err)
		os.Exit(1)
	}
	printJSON(results)
}

func runPrune(svc *memory.Service, args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	mode := fs.String("mode", "both", "hard|soft|both")
	fs.Parse(args)

	result, err := svc.Prune(memory.PruneMode(*mode))
	if err != nil {
		fmt.Fprintln(os.Stderr, "prune:", err)
		os.Exit(1)
	}
	printJSON(result)
}

func runCheckpoint(svc *memory.Service, args []string) {
	fs := flag.NewFlagSet("checkpoint", flag.ExitOnError)
	save := fs.Bool("save", false, "save a checkpoint")
	restore := fs.Bool("restore", false, "restore the latest checkpoint")
	intent := fs.String("intent", "", "checkpoint intent")
	state := fs.String("state", "", "checkpoint state")
	outcome := fs.String("outcome", "", "expected outcome")
	fs.Parse(args)

	if *restore {
		ctx, err := svc.RestoreCheckpoint()
		if err != nil {
			fmt.Fprintln(os.Stderr, "checkpoint restore:", err)
			os.Exit(1)
		}
		printJSON(ctx)
		return
	}
	if *save {
		id, err := svc.SaveCheckpoint(models.CheckpointContext{
			Intent:          *intent,
			State:           *state,
			ExpectedOutcome: *outcome,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "checkpoint save:", err)
			os.Exit(1)
		}
		printJSON(map[string]string{"id": id})
		return
	}
	fmt.Fprintln(os.Stderr, "checkpoint: pass -save or -restore")
	os.Exit(1)
}

func runBackfillDecay(svc *memory.Service) {
	counts, err := svc.BackfillDecayClasses()
	if err != nil {
		fmt.Fprintln(os.Stderr, "backfill-decay:", err)
		os.Exit(1)
	}
	printJSON(counts)
}

func runExtractDaily(svc *memory.Service, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("extract-daily", flag.ExitOnError)
	days := fs.Int("days", cfg.BootstrapDays, "ingest notes modified within the last N days")
	fs.Parse(args)

	count, err := ingest.IngestRecent(cfg.MarkdownPaths, cfg.MemoryFile, *days, func(c ingest.Candidate) error {
		_, err := svc.Store(c.Text, c.Importance, c.Category, "", "", "", "")
		return err
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "extract-daily:", err)
		os.Exit(1)
	}
	printJSON(map[string]int{"ingested": count})
}
