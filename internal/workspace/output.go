// Package workspace manages the build-output directory: the only durable
// thing a pipeline run touches besides the disposable tool environment.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shirou/gopsutil/v3/disk"
)

// Output is the directory the build tool writes artifacts into.
type Output struct {
	Dir string
}

// Clean removes the output directory so the next build starts empty.
// Cleaning a missing directory is not an error; the operation is
// idempotent by construction.
func (o *Output) Clean() error {
	if err := os.RemoveAll(o.Dir); err != nil {
		return fmt.Errorf("cleaning output dir %s: %w", o.Dir, err)
	}
	return nil
}

// Ensure creates the output directory if it does not exist.
func (o *Output) Ensure() error {
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", o.Dir, err)
	}
	return nil
}

// Artifacts lists the regular files in the output directory, sorted by
// name. A missing directory yields an empty list, same as an empty one.
func (o *Output) Artifacts() ([]string, error) {
	entries, err := os.ReadDir(o.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing output dir %s: %w", o.Dir, err)
	}

	var artifacts []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			artifacts = append(artifacts, filepath.Join(o.Dir, e.Name()))
		}
	}
	sort.Strings(artifacts)
	return artifacts, nil
}

// FreeDisk reports the free bytes on the volume holding path. The path
// itself may not exist yet; the nearest existing parent is probed.
func FreeDisk(path string) (uint64, error) {
	probe := path
	for {
		if _, err := os.Stat(probe); err == nil {
			break
		}
		parent := filepath.Dir(probe)
		if parent == probe {
			break
		}
		probe = parent
	}

	usage, err := disk.Usage(probe)
	if err != nil {
		return 0, fmt.Errorf("checking free disk at %s: %w", probe, err)
	}
	return usage.Free, nil
}

// CheckFreeDisk verifies the volume holding path has at least minBytes
// free. With minBytes zero the check is disabled.
func CheckFreeDisk(path string, minBytes uint64) error {
	if minBytes == 0 {
		return nil
	}
	free, err := FreeDisk(path)
	if err != nil {
		return err
	}
	if free < minBytes {
		return fmt.Errorf("insufficient disk space at %s: %d bytes free, need %d",
			path, free, minBytes)
	}
	return nil
}
