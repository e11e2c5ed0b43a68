package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"top-lab-exporter/internal/collada"
	"top-lab-exporter/internal/lab"
)

// Config holds the shared settings for one batch run.
type Config struct {
	// OutputDir receives the .dae files; empty means next to each input.
	OutputDir string
	Workers   int
}

// Result holds the outcome of converting one file.
type Result struct {
	Path    string
	Out     string
	Success bool
	Error   string
}

// Scan returns every .lab file under dir, sorted for stable run order.
func Scan(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".lab") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Run converts the listed files using a worker pool and returns one Result
// per input, in input order. Failed conversions never leave partial output.
func Run(cfg Config, paths []string) []Result {
	total := len(paths)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				fmt.Printf("  %d/%d converted (%.1fs)\n", p, total, time.Since(start).Seconds())
			}
		}
	}()

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = convertOne(cfg, paths[i])
				processed.Add(1)
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(done)

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	fmt.Printf("  %d/%d converted in %.1fs\n", ok, total, time.Since(start).Seconds())
	return results
}

func convertOne(cfg Config, path string) Result {
	res := Result{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	ds, err := lab.Decode(data)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	out, err := (&collada.Exporter{}).ExportDataset(ds)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := cfg.OutputDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	res.Out = filepath.Join(dir, stem+".dae")

	if err := os.WriteFile(res.Out, out, 0o644); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	return res
}
