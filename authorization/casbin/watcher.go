package casbin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchPolicyFile loads rules added to policyFile until ctx is done. The
// parent directory is watched so editors that replace the file are followed.
func (ap *AuthorizationProvider) WatchPolicyFile(ctx context.Context, policyFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create policy watcher: %w", err)
	}

	defer func() {
		err := watcher.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close policy watcher", "error", err)
		}
	}()

	policyFile = filepath.Clean(policyFile)

	err = watcher.Add(filepath.Dir(policyFile))
	if err != nil {
		return fmt.Errorf("failed to watch policy directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != policyFile || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			err := ap.reloadPolicyFile(ctx, policyFile)
			if err != nil {
				slog.ErrorContext(ctx, "failed to reload authorization policy", "file", policyFile, "error", err)

				continue
			}

			slog.InfoContext(ctx, "authorization policy reloaded", "file", policyFile)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			slog.ErrorContext(ctx, "policy watcher error", "error", err)
		}
	}
}

func (ap *AuthorizationProvider) reloadPolicyFile(ctx context.Context, policyFile string) error {
	content, err := os.ReadFile(policyFile) // nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to read policy file: %w", err)
	}

	return ap.AddPolicyFromCSV(ctx, string(content))
}
