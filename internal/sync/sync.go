package sync

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/dutchdrill/internal/content"
	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/gitsource"
	"github.com/conorfennell/dutchdrill/internal/parser"
	"github.com/conorfennell/dutchdrill/internal/storage"
)

const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// Report summarizes the reconciliation of one source.
type Report struct {
	SourceID int64
	Path     string
	Parsed   int
	Inserted int
	Updated  int
	Orphaned int
	Errors   []error
}

// InferSourceType decides whether path names a git remote or a local directory.
func InferSourceType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") || strings.HasPrefix(path, "https://") {
		return SourceGit
	}
	return SourceLocal
}

// AddSource registers path as a deck source. Local paths are made absolute
// and must exist.
func AddSource(db *storage.DB, path string) (int64, error) {
	sourceType := InferSourceType(path)
	if sourceType == SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return 0, fmt.Errorf("failed to stat source %s: %w", abs, err)
		}
		if !info.IsDir() {
			return 0, fmt.Errorf("source %s is not a directory", abs)
		}
		path = abs
	}

	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	return db.InsertSource(path, sourceType)
}

// RunSync iterates over all sources and reconciles them. Git sources are
// cloned or pulled below reposDir first.
func RunSync(ctx context.Context, db *storage.DB, reposDir string, progress io.Writer) ([]Report, error) {
	slog.Info("Starting sync process for all sources...")
	sources, err := db.GetAllSources()
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with `dutchdrill sources add <path/or/url.git>`")
		return nil, nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create repos directory: %w", err)
	}

	var reports []Report
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		sourceToReconcile := source

		switch source.Type {
		case SourceLocal:
		case SourceGit:
			localRepoPath, err := gitUrlToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}

			if err := gitsource.Sync(ctx, source.Path, localRepoPath, progress); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}

			sourceToReconcile.Path = localRepoPath
		default:
			slog.Warn("Unknown source type, skipping", "id", source.ID, "type", source.Type)
			continue
		}

		report, err := reconcileLocalSource(db, &sourceToReconcile)
		if err != nil {
			slog.Error("Error reconciling source", "id", source.ID, "error", err)
			continue
		}
		reports = append(reports, report)
	}
	slog.Info("Sync process complete.")
	return reports, nil
}

func itemKey(kind domain.Kind, id string) string {
	return string(kind) + "/" + id
}

func reconcileLocalSource(db *storage.DB, source *storage.Source) (Report, error) {
	report := Report{SourceID: source.ID, Path: source.Path}
	foundItems := make(map[string]bool)

	walkErr := filepath.WalkDir(source.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !content.IsDeck(d.Name()) {
			return nil
		}

		fileItems, parseErr := parser.ParseFile(path, content.KindForFile(d.Name()))
		if parseErr != nil {
			report.Errors = append(report.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, item := range fileItems {
			report.Parsed++
			foundItems[itemKey(item.Kind, item.ID)] = true

			existing, findErr := db.FindItem(item.Kind, item.ID)
			if findErr != nil {
				report.Errors = append(report.Errors, fmt.Errorf("db check for %s: %w", item.ID, findErr))
				continue
			}
			switch {
			case existing == nil:
				slog.Info("New item found, inserting...", "kind", item.Kind, "id", item.ID)
				report.Inserted++
			case existing.Item() != item || !existing.SourceID.Valid || existing.SourceID.Int64 != source.ID:
				report.Updated++
			default:
				continue
			}
			if upsertErr := db.UpsertItem(item, source.ID); upsertErr != nil {
				report.Errors = append(report.Errors, fmt.Errorf("db upsert for %s: %w", item.ID, upsertErr))
			}
		}
		return nil
	})

	if walkErr != nil {
		return report, fmt.Errorf("error walking directory %s: %w", source.Path, walkErr)
	}

	dbItems, err := db.GetItemsBySourceID(source.ID)
	if err != nil {
		return report, fmt.Errorf("error getting items for source %d: %w", source.ID, err)
	}

	for _, row := range dbItems {
		if foundItems[itemKey(domain.Kind(row.Kind), row.ID)] {
			continue
		}
		slog.Info("Orphaned item, deleting", "kind", row.Kind, "id", row.ID)
		report.Orphaned++
		if err := db.DeleteItem(domain.Kind(row.Kind), row.ID); err != nil {
			slog.Warn("Failed to delete orphaned item", "id", row.ID, "error", err)
		}
	}

	if err := db.UpdateSourceLastScanned(source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_items", report.Parsed,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"orphaned_deleted", report.Orphaned,
		"errors", len(report.Errors),
	)
	return report, nil
}

func gitUrlToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
