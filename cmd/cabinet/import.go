package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/catalyzer/cabinet"
	"github.com/catalyzer/cabinet/domain/catalog"
	"github.com/catalyzer/cabinet/internal/log"
)

func importCmd() *cobra.Command {
	var (
		envFile     string
		parallelism int
	)

	cmd := &cobra.Command{
		Use:   "import ORG GROUP USER PATH...",
		Short: "Bulk-import markdown documents into a tenant's catalog",
		Long: `Bulk-import markdown documents into a tenant's catalog.

Each PATH is a markdown file or a directory scanned recursively for
.md files. Every document needs a YAML frontmatter block; documents
that fail to parse are reported and skipped.`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), envFile, args[0], args[1], args[2], args[3:], parallelism)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().IntVar(&parallelism, "parallelism", 4, "Concurrent imports")

	return cmd
}

func runImport(ctx context.Context, envFile, org, group, user string, paths []string, parallelism int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	tenant, err := catalog.NewTenant(org, group, user)
	if err != nil {
		return err
	}

	if !cfg.IsRemote() {
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
	}

	logger := log.NewLogger(cfg)
	logger.SetDefault()
	slogger := logger.Slog()

	client, err := cabinet.New(
		cabinet.WithAppConfig(cfg),
		cabinet.WithLogger(slogger),
	)
	if err != nil {
		return fmt.Errorf("create cabinet client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close cabinet client", slog.Any("error", err))
		}
	}()

	files, err := collectMarkdownFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no markdown files found under %s", strings.Join(paths, ", "))
	}

	if parallelism < 1 {
		parallelism = 1
	}

	var imported, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, file := range files {
		g.Go(func() error {
			data, err := os.ReadFile(file)
			if err != nil {
				failed.Add(1)
				slogger.Error("read failed", slog.String("file", file), slog.Any("error", err))
				return nil
			}

			record, err := client.Catalogs.CreateFromMarkdown(ctx, tenant, filepath.Base(file), string(data))
			if err != nil {
				failed.Add(1)
				slogger.Error("import failed", slog.String("file", file), slog.Any("error", err))
				return nil
			}

			imported.Add(1)
			slogger.Info("imported",
				slog.String("file", file),
				slog.String("id", record.ID().String()),
				slog.String("title", record.Title()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Printf("imported %d documents, %d failed\n", imported.Load(), failed.Load())
	if failed.Load() > 0 {
		return fmt.Errorf("%d documents failed to import", failed.Load())
	}
	return nil
}

// collectMarkdownFiles expands the given paths into a flat list of
// markdown files, walking directories recursively.
func collectMarkdownFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			files = append(files, path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".md") {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}
	return files, nil
}
