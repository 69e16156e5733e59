package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/sdkproj/internal/descriptor"
)

// DescriptorExt is the extension of project descriptors.
const DescriptorExt = ".csproj"

// ConvertAll converts paths concurrently. Results keep the input order.
// The first error cancels the remaining conversions.
func (c *Converter) ConvertAll(ctx context.Context, paths []string, mode descriptor.Mode) ([]Result, error) {
	results := make([]Result, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.ConvertFile(gctx, path, mode)
			results[i] = res
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Discover expands directories into the descriptors directly inside them.
// File arguments are kept as given. The result is deduplicated.
func Discover(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if isDescriptor(e) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		for _, p := range found {
			add(p)
		}
	}
	return out, nil
}

func isDescriptor(e fs.DirEntry) bool {
	return !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), DescriptorExt)
}

// IsDescriptorPath reports whether path names a project descriptor.
func IsDescriptorPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), DescriptorExt)
}
