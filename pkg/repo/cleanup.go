// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package repo

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
)

// CleanupDirectory removes a directory tree. A missing path, or a path that
// is not a directory, is left alone. With ignoreErrors a failed removal is
// logged instead of returned.
func CleanupDirectory(path string, ignoreErrors bool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logger.Debug("repo.cleanup.missing", "path", path)
		return nil
	}
	if err == nil && !info.IsDir() {
		logger.Warn("repo.cleanup.not_dir", "path", path)
		return nil
	}

	if err == nil {
		logger.Info("repo.cleanup.start", "path", path)
		err = os.RemoveAll(path)
	}
	if err != nil {
		if ignoreErrors {
			logger.Warn("repo.cleanup.error", "path", path, "err", err)
			return nil
		}
		logger.Error("repo.cleanup.error", "path", path, "err", err)
		return errors.Wrapf(err, "failed to clean up directory %s", path)
	}

	logger.Info("repo.cleanup.done", "path", path)
	return nil
}
