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

// Package testing provides shared test helpers for the scanner packages.
//
// # Quick Start
//
// Use SetupTestStore to create an in-memory project store with schema:
//
//	func TestMyFeature(t *testing.T) {
//	    store := testing.SetupTestStore(t)
//
//	    testing.InsertTestProject(t, store, "facebook/react", 200000)
//
//	    projects := testing.QueryProjects(t, store)
//	    require.Len(t, projects, 1)
//	}
//
// # Fixtures
//
// File helpers write fixtures below t.TempDir():
//   - WriteFile: Write a text file, creating parent directories
//   - WriteJSON: Write a value as indented JSON
//   - WriteSARIF: Write a single-run SARIF document
//   - FakeTool: Write an executable shell script standing in for git or codeql
//
// The package is named testing to mirror the standard library; import it
// under an alias:
//
//	import mbtest "github.com/kraklabs/mbscanner/internal/testing"
package testing
