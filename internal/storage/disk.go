// Package storage holds the chunk payload store and disk accounting for a persisted index.
package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Usage is the on-disk footprint of an index directory, split by its top-level entries.
type Usage struct {
	Total int64            `json:"total"`
	Parts map[string]int64 `json:"parts"`
}

// Names returns the part names in sorted order.
func (u *Usage) Names() []string {
	names := make([]string, 0, len(u.Parts))
	for name := range u.Parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DiskUsage sums the regular files under dir, attributing each to the top-level entry
// that contains it. A missing dir has zero usage.
func DiskUsage(dir string) (*Usage, error) {
	u := &Usage{Parts: map[string]int64{}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return u, nil
		}
		return nil, err
	}
	for _, e := range entries {
		n, err := treeSize(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		u.Parts[e.Name()] = n
		u.Total += n
	}
	return u, nil
}

func treeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
