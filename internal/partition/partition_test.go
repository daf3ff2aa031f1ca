package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSeedFile(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seeds.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestPartitionBalance(t *testing.T) {
	var seeds []string
	for i := 0; i < 10; i++ {
		seeds = append(seeds, fmt.Sprintf("https://site%d.example/", i))
	}
	seedPath := writeSeedFile(t, seeds)

	paths, err := Partition(seedPath, 3, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d chunks, want 3", len(paths))
	}

	sizes := make([]int, len(paths))
	total := 0
	for i, p := range paths {
		sizes[i] = len(readLines(t, p))
		total += sizes[i]
	}
	if total != len(seeds) {
		t.Errorf("total lines = %d, want %d", total, len(seeds))
	}
	min, max := sizes[0], sizes[0]
	for _, s := range sizes[1:] {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	if max-min > 1 {
		t.Errorf("chunk sizes differ by more than 1: %v", sizes)
	}
}

func TestPartitionDeterministic(t *testing.T) {
	seeds := []string{"https://a.example/", "https://b.example/", "https://c.example/"}
	seedPath := writeSeedFile(t, seeds)

	first, err := Partition(seedPath, 2, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Partition(seedPath, 2, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		a := strings.Join(readLines(t, first[i]), "\n")
		b := strings.Join(readLines(t, second[i]), "\n")
		if a != b {
			t.Errorf("chunk %d differs across runs:\n%s\nvs\n%s", i, a, b)
		}
	}
}

func TestPartitionSkipsBlanksAndComments(t *testing.T) {
	seedPath := writeSeedFile(t, []string{"https://a.example/", "", "# comment", "https://b.example/"})
	paths, err := Partition(seedPath, 1, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	got := readLines(t, paths[0])
	if len(got) != 2 {
		t.Fatalf("got %d seeds, want 2: %v", len(got), got)
	}
}

func TestPartitionMissingSeedFile(t *testing.T) {
	_, err := Partition(filepath.Join(t.TempDir(), "nope.txt"), 2, t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "seed file missing") {
		t.Errorf("error %q does not wrap ErrSeedFileMissing", err)
	}
}

func TestSeedsStream(t *testing.T) {
	seedPath := writeSeedFile(t, []string{"https://a.example/", "https://b.example/", "https://c.example/"})
	paths, err := Partition(seedPath, 1, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	err = Seeds(paths[0], func(s string) bool {
		got = append(got, s)
		return len(got) < 2 // stop early
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("early stop returned %d seeds, want 2", len(got))
	}
}
