// Package main provides the ThoughtDB CLI entry point.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mindcanvas/thoughtdb/pkg/config"
	"github.com/mindcanvas/thoughtdb/pkg/mirror"
	"github.com/mindcanvas/thoughtdb/pkg/portability"
	"github.com/mindcanvas/thoughtdb/pkg/storage"
	"github.com/mindcanvas/thoughtdb/pkg/thoughtdb"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "thoughtdb",
		Short: "ThoughtDB - Personal thought graph with semantic search",
		Long: `ThoughtDB is a local-first thought graph: positioned notes connected
by edges, searchable by meaning as well as by keyword.

Features:
  • Durable local storage, no server required
  • Semantic search via local embeddings (Ollama)
  • BM25 keyword search when the embedder is offline
  • Spreadsheet mirror sync for capture on the go
  • Chat grounded in your own notes`,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file path (YAML)")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (overrides config)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ThoughtDB v%s (%s)\n", version, commit)
		},
	})

	// Add command
	addCmd := &cobra.Command{
		Use:   "add [label]",
		Short: "Capture a new thought",
		Args:  cobra.ExactArgs(1),
		RunE:  runAdd,
	}
	addCmd.Flags().String("content", "", "Thought body text")
	addCmd.Flags().Float64("x", 0, "Canvas X position")
	addCmd.Flags().Float64("y", 0, "Canvas Y position")
	addCmd.Flags().StringSlice("tags", nil, "Comma-separated tags")
	rootCmd.AddCommand(addCmd)

	// Connect command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "connect [source-id] [target-id] [label]",
		Short: "Connect two thoughts",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runConnect,
	})

	// List command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all thoughts",
		RunE:  runList,
	})

	// Search command
	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search thoughts by meaning",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().Int("limit", 5, "Maximum results")
	searchCmd.Flags().Bool("keyword", false, "Force keyword search (no embeddings)")
	rootCmd.AddCommand(searchCmd)

	// Related command
	relatedCmd := &cobra.Command{
		Use:   "related [thought-id]",
		Short: "Find thoughts related to an existing one",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelated,
	}
	relatedCmd.Flags().Int("limit", 5, "Maximum results")
	rootCmd.AddCommand(relatedCmd)

	// Ask command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question answered from your own thoughts",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	})

	// Stats command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show graph statistics",
		RunE:  runStats,
	})

	// Sync command (pull/push against the spreadsheet mirror)
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync with the spreadsheet mirror",
	}
	syncCmd.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Import unsynced rows from the mirror",
		RunE:  runSyncPull,
	})
	syncCmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Export local thoughts to the mirror",
		RunE:  runSyncPush,
	})
	rootCmd.AddCommand(syncCmd)

	// Export / import commands
	rootCmd.AddCommand(&cobra.Command{
		Use:   "export [file]",
		Short: "Export the graph to a JSON bundle",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "export-markdown [file]",
		Short: "Export thoughts as a ZIP of markdown files",
		Args:  cobra.ExactArgs(1),
		RunE:  runExportMarkdown,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "import [file]",
		Short: "Replace the graph with a JSON bundle",
		RunE:  runImport,
		Args:  cobra.ExactArgs(1),
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves config file, environment, and flags in that order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if dir, _ := cmd.Flags().GetString("data-dir"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	return cfg, nil
}

// openDB opens the graph and rebuilds the session index when asked.
// Mutation-only commands skip the rebuild; anything that queries needs it.
func openDB(cmd *cobra.Command, rebuild bool) (*thoughtdb.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	db, err := thoughtdb.Open(cfg.Storage.DataDir, cfg)
	if err != nil {
		return nil, err
	}

	if rebuild {
		if _, err := db.LoadData(cmd.Context()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	content, _ := cmd.Flags().GetString("content")
	x, _ := cmd.Flags().GetFloat64("x")
	y, _ := cmd.Flags().GetFloat64("y")
	tags, _ := cmd.Flags().GetStringSlice("tags")

	node, err := db.AddThought(cmd.Context(), args[0], content, x, y, tags...)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Added thought %s: %s\n", node.ID, node.Label)
	return nil
}

func runConnect(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	label := ""
	if len(args) == 3 {
		label = args[2]
	}

	edge, err := db.Connect(cmd.Context(), storage.NodeID(args[0]), storage.NodeID(args[1]), label)
	if err != nil {
		return err
	}
	fmt.Printf("✅ Connected %s → %s (%s)\n", edge.Source, edge.Target, edge.ID)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	thoughts, err := db.Thoughts(cmd.Context())
	if err != nil {
		return err
	}
	if len(thoughts) == 0 {
		fmt.Println("No thoughts yet. Capture one with: thoughtdb add")
		return nil
	}

	for _, node := range thoughts {
		line := fmt.Sprintf("%s  %s", node.ID, node.Label)
		if len(node.Tags) > 0 {
			line += "  [" + strings.Join(node.Tags, ", ") + "]"
		}
		fmt.Println(line)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, true)
	if err != nil {
		return err
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	keyword, _ := cmd.Flags().GetBool("keyword")

	var results []thoughtdb.SearchResult
	if keyword {
		results, err = db.SearchKeyword(cmd.Context(), args[0], limit)
	} else {
		results, err = db.Search(cmd.Context(), args[0], limit)
	}
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func runRelated(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, true)
	if err != nil {
		return err
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	results, err := db.RelatedTo(cmd.Context(), storage.NodeID(args[0]), limit)
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func printResults(results []thoughtdb.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		fmt.Printf("%.3f  %s  %s\n", r.Score, r.Thought.ID, r.Thought.Label)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, true)
	if err != nil {
		return err
	}
	defer db.Close()

	answer, err := db.Chat(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, true)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return err
	}
	fmt.Printf("Thoughts:    %d\n", stats.Thoughts)
	fmt.Printf("Connections: %d\n", stats.Connections)
	fmt.Printf("Indexed:     %d\n", stats.Indexed)
	fmt.Printf("Embedded:    %d\n", stats.Embedded)
	return nil
}

func openMirror(cfg *config.Config) (mirror.Mirror, error) {
	return mirror.NewSheetsMirror(mirror.SheetsOptions{
		SpreadsheetID: cfg.Sync.SpreadsheetID,
		Token:         cfg.Sync.Token,
	})
}

func runSyncPull(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := openMirror(cfg)
	if err != nil {
		return err
	}

	db, err := thoughtdb.Open(cfg.Storage.DataDir, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.SyncFromRemote(cmd.Context(), m)
	return err
}

func runSyncPush(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	m, err := openMirror(cfg)
	if err != nil {
		return err
	}

	db, err := thoughtdb.Open(cfg.Storage.DataDir, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.SyncToRemote(cmd.Context(), m)
	return err
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	file, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	if err := portability.ExportJSON(db.Storage(), file); err != nil {
		return err
	}
	fmt.Printf("✅ Exported graph to %s\n", args[0])
	return nil
}

func runExportMarkdown(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	file, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	if err := portability.ExportMarkdown(db.Storage(), file); err != nil {
		return err
	}
	fmt.Printf("✅ Exported markdown archive to %s\n", args[0])
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	db, err := openDB(cmd, false)
	if err != nil {
		return err
	}
	defer db.Close()

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	if err := portability.ImportJSON(db.Storage(), file); err != nil {
		return err
	}

	thoughts, err := db.Thoughts(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("✅ Imported %d thoughts from %s\n", len(thoughts), args[0])
	return nil
}
