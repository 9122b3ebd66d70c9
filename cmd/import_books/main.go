package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"library-lending/config"
	"library-lending/library"
	"library-lending/logger"
)

func main() {
	var dbPath string
	var reset bool

	cmd := &cobra.Command{
		Use:          "import_books FILE.csv",
		Short:        "Shelve books listed as title,author,year rows",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.CatalogDB
			}
			logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
			return run(cmd.Context(), logger.Get(), dbPath, args[0], reset, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "catalog database (defaults to LIBRARY_CATALOG_DB)")
	cmd.Flags().BoolVar(&reset, "reset", false, "drop the current shelf and loans before importing")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, log zerolog.Logger, dbPath, csvPath string, reset bool, out io.Writer) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	books, err := readBooks(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", csvPath, err)
	}

	db, err := library.NewDatabase(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	catalog := library.NewCatalog(nil)
	if !reset {
		if catalog, err = db.LoadCatalog(ctx, nil); err != nil {
			return err
		}
	}
	for _, b := range books {
		id := catalog.AddBook(b)
		log.Debug().Str("entry", id.String()).Str("title", b.Title).Msg("book imported")
	}
	if err := db.SaveCatalog(ctx, catalog); err != nil {
		return err
	}

	total, err := db.CountBooks(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("imported", len(books)).Int("shelf", total).Str("db", dbPath).Msg("import complete")
	fmt.Fprintf(out, "Imported %d books, %d now on the shelf.\n", len(books), total)
	return nil
}

// readBooks parses title,author,year rows. A first row starting with
// "title" is treated as a header. Missing year becomes the placeholder.
func readBooks(r io.Reader) ([]library.Book, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var books []library.Book
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return books, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" {
			return nil, fmt.Errorf("line %d: want title,author[,year]", line)
		}
		b := library.Book{Title: strings.TrimSpace(rec[0]), Author: strings.TrimSpace(rec[1]), Year: library.UnknownYear}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			b.Year = strings.TrimSpace(rec[2])
		}
		books = append(books, b)
	}
}
