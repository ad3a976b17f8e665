package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"library-console/internal/config"
	"library-console/library"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "library",
		Short:        "Browse, borrow and return library books from the console",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd, cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the data files (LIBRARY_DATA_DIR)")
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "storage backend: text or sqlite (LIBRARY_BACKEND)")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path, default <data-dir>/library.db (LIBRARY_DB)")
	flags.BoolVar(&cfg.LenientReturns, "lenient-returns", cfg.LenientReturns, "allow returning a book without an open loan (LIBRARY_LENIENT_RETURNS)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "diagnostics level: debug, info, warn, error (LIBRARY_LOG_LEVEL)")

	root.AddCommand(
		newSeedCmd(cfg),
		newExportCmd(cfg),
		newMigrateCmd(cfg),
		newAddBookCmd(cfg),
		newHashSecretCmd(),
	)
	return root
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	lvl, _ := cfg.SlogLevel() // validated in PersistentPreRunE
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// openManager opens the configured backend and loads every collection.
func openManager(cmd *cobra.Command, cfg *config.Config, log *slog.Logger) (*library.LibraryManager, error) {
	log.Debug("configuration loaded", "config", cfg.String())
	backend, err := library.OpenBackend(cfg.Backend, cfg.DataDir, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	store := library.NewStore(backend, log)
	if err := store.Load(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	return library.NewLibraryManager(store,
		library.WithLenientReturns(cfg.LenientReturns),
		library.WithLogger(log),
	), nil
}

func runSession(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	log := newLogger(cfg, cmd.ErrOrStderr())

	fmt.Fprintln(out, "===== LIBRARY MANAGEMENT SYSTEM =====")
	mgr, err := openManager(cmd, cfg, log)
	if err != nil {
		return err
	}
	defer mgr.Close()

	in := cmd.InOrStdin()
	console := library.NewConsole(mgr, in, out, secretReader(in, out))
	session, err := console.Login()
	if err != nil {
		fmt.Fprintln(out, "Goodbye!")
		return err
	}

	err = console.Run(session)
	fmt.Fprintln(out, "Goodbye!")
	return err
}

// secretReader masks input when in is a terminal. Otherwise it returns nil
// and the console reads secrets as ordinary lines.
func secretReader(in io.Reader, out io.Writer) library.SecretReader {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	fd := int(f.Fd())
	return func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out) // Add newline after password input
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func newSeedCmd(cfg *config.Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the default users and books to the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := library.OpenBackend(cfg.Backend, cfg.DataDir, cfg.DBPath)
			if err != nil {
				return err
			}
			defer backend.Close()
			if err := library.Seed(backend, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d users and %d books into %s backend.\n",
				len(library.DefaultUsers()), len(library.DefaultBooks()), cfg.Backend)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing data")
	return cmd
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all books, users and transactions as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager(cmd, cfg, newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer mgr.Close()

			if outPath == "" || outPath == "-" {
				return mgr.WriteJSON(cmd.OutOrStdout())
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := mgr.WriteJSON(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newMigrateCmd(cfg *config.Config) *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Copy the text files into the sqlite database (or back with --reverse)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := library.NewTextBackend(cfg.DataDir)
			if err != nil {
				return err
			}
			db, err := library.NewDatabase(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			var src, dst library.Backend = text, db
			from, to := cfg.DataDir, cfg.DBPath
			if reverse {
				src, dst = db, text
				from, to = to, from
			}
			if err := library.Copy(dst, src); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied library data from %s to %s\n", from, to)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reverse, "reverse", false, "copy from sqlite to the text files")
	return cmd
}

func newAddBookCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add-book TITLE AUTHOR",
		Short: "Append an available book to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openManager(cmd, cfg, newLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer mgr.Close()

			b, err := mgr.AddBook(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", library.PrettyBook(b))
			return nil
		},
	}
}

func newHashSecretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-secret",
		Short: "Print a bcrypt hash to paste into the users file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var secret string
			in, out := cmd.InOrStdin(), cmd.OutOrStdout()
			if read := secretReader(in, cmd.ErrOrStderr()); read != nil {
				s, err := read("Secret: ")
				if err != nil {
					return fmt.Errorf("failed to read secret: %w", err)
				}
				secret = s
			} else {
				sc := bufio.NewScanner(in)
				if !sc.Scan() {
					return errors.New("no secret on stdin")
				}
				secret = strings.TrimRight(sc.Text(), "\r")
			}

			hash, err := library.HashSecret(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, hash)
			return nil
		},
	}
}
