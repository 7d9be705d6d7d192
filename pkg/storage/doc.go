// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later


// Package storage is the metadata store for projects found by repository
// search.
//
// The store is a single SQLite file accessed through sqlx and the pure-Go
// modernc.org/sqlite driver, so the binary needs no cgo.
//
// # Quick Start
//
//	store, err := storage.Open(ctx, "data/mb_scanner.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	// Create tables (idempotent)
//	if err := store.EnsureSchema(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	outcome, project, err := store.SaveProject(ctx, storage.RepositoryRecord{
//	    FullName: "facebook/react",
//	    URL:      "https://github.com/facebook/react",
//	    Stars:    220000,
//	    Topics:   []string{"javascript", "ui"},
//	}, false)
//
// # Schema
//
// Three tables hold the data:
//   - projects: one row per repository, keyed by the unique full_name
//   - topics: one row per distinct topic name
//   - project_topics: the many-to-many association, cascading on delete
//
// Databases created before projects.js_lines_count existed are upgraded with
// AddLineCountColumn (or RunAllMigrations), which is safe to run repeatedly.
//
// # Thread Safety
//
// Store is safe for concurrent use, but it holds a single connection: SQLite
// allows one writer, and the CLI runs one workflow per invocation.
package storage
