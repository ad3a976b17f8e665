package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"library-console/internal/config"
	"library-console/library"

	"github.com/spf13/cobra"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	cmd := &cobra.Command{
		Use:          "import_books LISTING",
		Short:        "Append books from a title,author listing to the library",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return importBooks(cmd, cfg, args[0])
		},
	}
	cmd.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the data files")
	cmd.Flags().StringVar(&cfg.Backend, "backend", cfg.Backend, "storage backend: text or sqlite")
	cmd.Flags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func importBooks(cmd *cobra.Command, cfg *config.Config, listing string) error {
	out := cmd.OutOrStdout()
	lvl, _ := cfg.SlogLevel()
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))

	f, err := os.Open(filepath.Clean(listing))
	if err != nil {
		return fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	backend, err := library.OpenBackend(cfg.Backend, cfg.DataDir, cfg.DBPath)
	if err != nil {
		return err
	}
	store := library.NewStore(backend, log)
	if err := store.Load(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	mgr := library.NewLibraryManager(store, library.WithLogger(log))
	defer mgr.Close()

	fmt.Fprintf(out, "Importing books from %s...\n", listing)
	added, err := mgr.ImportBooks(f)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", len(added))
	if len(added) == 0 {
		return nil
	}

	fmt.Fprintln(out, "\nImported books:")
	fmt.Fprintf(out, "%-6s %-50s %-30s\n", "ID", "Title", "Author")
	fmt.Fprintln(out, strings.Repeat("-", 88))
	for _, b := range added {
		fmt.Fprintf(out, "%-6s %-50s %-30s\n", b.ID, truncateString(b.Title, 50), truncateString(b.Author, 30))
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
