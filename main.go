package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/config"
	"library-lending/library"
	"library-lending/logger"
)

type rootFlags struct {
	userFile  string
	catalogDB string
	legacy    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:          "library-lending",
		Short:        "Lend books to users against a credit balance",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, flags, func(mgr *library.LibraryManager) error {
				sh := newShell(mgr, newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()))
				sh.run()
				return nil
			})
		},
	}
	root.PersistentFlags().StringVar(&flags.userFile, "users", "", "encrypted user file (overrides LIBRARY_USER_FILE)")
	root.PersistentFlags().StringVar(&flags.catalogDB, "db", "", "catalog database (overrides LIBRARY_CATALOG_DB)")
	root.PersistentFlags().BoolVar(&flags.legacy, "legacy-borrow", false, "authorize borrows by re-reading the user file")

	root.AddCommand(newRegisterCmd(&flags), newUsersCmd(&flags), newBooksCmd(&flags))
	return root
}

func newRegisterCmd(flags *rootFlags) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "register USERNAME",
		Short: "Register a new user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, *flags, func(mgr *library.LibraryManager) error {
				p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				password, err := p.password("Password: ")
				if err != nil {
					return err
				}
				if err := mgr.Register(args[0], password, library.Role(role)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s.\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", string(library.RoleUser), "user or admin")
	return cmd
}

func newUsersCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "users ADMIN",
		Short: "List users and their credits (admin login required)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, *flags, func(mgr *library.LibraryManager) error {
				p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				password, err := p.password("Password: ")
				if err != nil {
					return err
				}
				admin := mgr.Login(args[0], password)
				if admin == nil {
					return fmt.Errorf("login failed")
				}
				users, err := mgr.ListUsers(admin)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatUsers(users))
				return nil
			})
		},
	}
}

func newBooksCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "books",
		Short: "Show available and borrowed books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, *flags, func(mgr *library.LibraryManager) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Available:")
				fmt.Fprintln(out, mgr.ListBooks())
				fmt.Fprintln(out, "\nBorrowed:")
				fmt.Fprintln(out, mgr.ListBorrowed())
				return nil
			})
		},
	}
}

func withManager(cmd *cobra.Command, flags rootFlags, fn func(*library.LibraryManager) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if flags.userFile != "" {
		cfg.UserFile = flags.userFile
	}
	if flags.catalogDB != "" {
		cfg.CatalogDB = flags.catalogDB
	}
	ciph, err := cfg.Cipher.NewCipher()
	if err != nil {
		return err
	}

	mgr, err := library.NewLibraryManager(ctx, library.ManagerOptions{
		UserFile:  cfg.UserFile,
		CatalogDB: cfg.CatalogDB,
		Cipher:    ciph,
		Legacy:    flags.legacy || cfg.BorrowMode == config.BorrowModeLegacy,
		Logger:    log,
	})
	if err != nil {
		log.Error().Err(err).Msg("open library")
		return err
	}

	runErr := fn(mgr)
	if err := mgr.Close(ctx); err != nil {
		log.Error().Err(err).Msg("close library")
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func formatUsers(users []library.UserSummary) string {
	if len(users) == 0 {
		return "No users registered."
	}
	lines := make([]string, 0, len(users))
	for _, u := range users {
		lines = append(lines, fmt.Sprintf("%s - Credits: %d", u.Username, u.Credits))
	}
	return strings.Join(lines, "\n")
}
