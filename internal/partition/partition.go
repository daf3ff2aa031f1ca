// Package partition splits a newline-delimited seed file into per-worker
// chunks. Chunks are materialized on disk so a worker can be restarted
// against the same chunk without rescanning the full seed list.
package partition

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSeedFileMissing is returned when the seed file cannot be opened.
var ErrSeedFileMissing = errors.New("seed file missing")

// Partition splits the seed file at seedPath into n chunk files under
// dir/chunks. Assignment is deterministic: line j (counting only non-blank,
// non-comment lines) goes to chunk j mod n, so chunk sizes differ by at
// most one. Returns the chunk paths in worker order.
func Partition(seedPath string, n int, dir string) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("partition count must be >= 1, got %d", n)
	}

	f, err := os.Open(seedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeedFileMissing, err)
	}
	defer f.Close()

	chunkDir := filepath.Join(dir, "chunks")
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chunk dir: %w", err)
	}

	paths := make([]string, n)
	writers := make([]*bufio.Writer, n)
	files := make([]*os.File, n)
	for i := range n {
		paths[i] = filepath.Join(chunkDir, fmt.Sprintf("chunk_%d.txt", i))
		cf, err := os.Create(paths[i])
		if err != nil {
			return nil, fmt.Errorf("create chunk %d: %w", i, err)
		}
		files[i] = cf
		writers[i] = bufio.NewWriter(cf)
	}
	defer func() {
		for _, cf := range files {
			_ = cf.Close()
		}
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	j := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		w := writers[j%n]
		if _, err := w.WriteString(line + "\n"); err != nil {
			return nil, fmt.Errorf("write chunk: %w", err)
		}
		j++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan seed file: %w", err)
	}

	for i, w := range writers {
		if err := w.Flush(); err != nil {
			return nil, fmt.Errorf("flush chunk %d: %w", i, err)
		}
	}
	return paths, nil
}

// Seeds streams the seeds of one chunk file via the yield callback.
// Iteration stops early if yield returns false.
func Seeds(chunkPath string, yield func(seed string) bool) error {
	f, err := os.Open(chunkPath)
	if err != nil {
		return fmt.Errorf("open chunk: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !yield(line) {
			return nil
		}
	}
	return scanner.Err()
}
