// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package visualize

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/kraklabs/mbscanner/pkg/summary"
)

// LoadBoxplotData reads every *.json summary in dir, in file name order,
// and returns each query's finding counts keyed by query ID. A later file
// with the same query ID replaces an earlier one.
func LoadBoxplotData(dir string) (map[string][]float64, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("input directory not found: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no JSON files found in %s", dir)
	}
	sort.Strings(files)

	data := make(map[string][]float64, len(files))
	for _, f := range files {
		s, err := summary.Load(f)
		if err != nil {
			return nil, err
		}
		values := make([]float64, 0, len(s.Results))
		for _, e := range s.Entries() {
			values = append(values, float64(e.Count))
		}
		data[s.QueryID] = values
	}
	return data, nil
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
