package schemactx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultPattern = "*.txt"

// DirSource reads fragments from files in Dir matching Pattern.
type DirSource struct {
	Dir     string
	Pattern string
}

func (d DirSource) List(_ context.Context) ([]string, error) {
	info, err := os.Stat(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("stat schema dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema dir %q is not a directory", d.Dir)
	}

	pattern := d.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	// Glob returns matches in lexical order.
	matches, err := filepath.Glob(filepath.Join(d.Dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("match schema files: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		entry, err := os.Stat(match)
		if err == nil && entry.IsDir() {
			continue
		}
		names = append(names, filepath.Base(match))
	}
	return names, nil
}

func (d DirSource) Read(_ context.Context, name string) ([]byte, error) {
	body, err := os.ReadFile(filepath.Join(d.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return body, nil
}
