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

// Package bootstrap prepares an mbscanner workspace.
//
// A workspace is the set of directories named by the configuration (data,
// repositories, CodeQL databases, query outputs) plus the SQLite metadata
// database.
//
// # Initialization Workflow
//
//	cfg, err := config.Load(config.DefaultPath)
//	if err != nil {
//	    return err
//	}
//	info, err := bootstrap.InitWorkspace(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	fmt.Println("database:", info.DBPath)
//
//	// Later, from any command that reads projects
//	store, err := bootstrap.OpenStore(ctx, cfg, false, logger)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// # Idempotency
//
// InitWorkspace may run any number of times. Tables are created with
// IF NOT EXISTS and migrations skip work that is already done.
package bootstrap
