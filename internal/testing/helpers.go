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

package testing

import (
	"context"
	"testing"
	"time"

	"github.com/kraklabs/mbscanner/pkg/storage"
)

// SetupTestStore creates an in-memory project store for testing.
// The store is automatically closed when the test finishes.
//
// This helper:
//   - Opens a private in-memory SQLite database
//   - Creates the projects and topics schema
//   - Registers cleanup to close the store
//
// Example:
//
//	func TestMyFeature(t *testing.T) {
//	    store := testing.SetupTestStore(t)
//
//	    // Store is ready with the schema created
//	    testing.InsertTestProject(t, store, "facebook/react", 200000)
//
//	    // Run your tests...
//	}
func SetupTestStore(t *testing.T) *storage.Store {
	t.Helper()

	store, err := storage.OpenMemory(context.Background())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// SetupTestStoreFile is like SetupTestStore but backs the store with a file
// under t.TempDir(), for tests that reopen the database by path.
func SetupTestStoreFile(t *testing.T) *storage.Store {
	t.Helper()

	ctx := context.Background()
	store, err := storage.Open(ctx, t.TempDir()+"/mb_scanner.db")
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		t.Fatalf("failed to ensure schema: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// InsertTestProject adds a JavaScript project with a github.com URL.
// This is a convenience helper for seeding test data.
//
// Example:
//
//	store := testing.SetupTestStore(t)
//	p := testing.InsertTestProject(t, store, "facebook/react", 200000)
func InsertTestProject(t *testing.T, store *storage.Store, fullName string, stars int, topics ...string) *storage.Project {
	t.Helper()

	lang := "JavaScript"
	pushed := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	_, p, err := store.SaveProject(context.Background(), storage.RepositoryRecord{
		FullName:       fullName,
		URL:            "https://github.com/" + fullName,
		Stars:          stars,
		Language:       &lang,
		LastCommitDate: &pushed,
		Topics:         topics,
	}, false)
	if err != nil {
		t.Fatalf("failed to insert test project: %v", err)
	}
	return p
}

// SetTestLineCount stores a JavaScript line count for a project.
//
// Example:
//
//	p := testing.InsertTestProject(t, store, "facebook/react", 200000)
//	testing.SetTestLineCount(t, store, p, 350000)
func SetTestLineCount(t *testing.T, store *storage.Store, p *storage.Project, lines int64) {
	t.Helper()

	if err := store.UpdateLineCount(context.Background(), p.ID, lines); err != nil {
		t.Fatalf("failed to set line count: %v", err)
	}
}

// QueryProjects returns every stored project, ordered by ID.
func QueryProjects(t *testing.T, store *storage.Store) []storage.Project {
	t.Helper()

	projects, err := store.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("failed to query projects: %v", err)
	}
	return projects
}
