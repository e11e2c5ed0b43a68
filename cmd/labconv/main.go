package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"top-lab-exporter/internal/batch"
	"top-lab-exporter/internal/collada"
	"top-lab-exporter/internal/config"
	"top-lab-exporter/internal/lab"
)

func main() {
	cmd := &cli.Command{
		Name:  "labconv",
		Usage: "Convert .lab skeletal animation files to COLLADA documents",
		Commands: []*cli.Command{
			{
				Name:      "export",
				Usage:     "Convert one .lab file to a .dae document",
				ArgsUsage: "<file.lab>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "out",
						Aliases:     []string{"o"},
						Usage:       "Output path",
						DefaultText: "input stem + .dae",
					},
				},
				Action: runExport,
			},
			{
				Name:      "import",
				Usage:     "Convert a COLLADA document back to .lab (not supported)",
				ArgsUsage: "<file.dae>",
				Action:    runImport,
			},
			{
				Name:      "batch",
				Usage:     "Convert every .lab file under a directory",
				ArgsUsage: "<dir>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to config.json file",
					},
					&cli.StringFlag{
						Name:        "out",
						Aliases:     []string{"o"},
						Usage:       "Output directory",
						DefaultText: "next to each input",
					},
					&cli.IntFlag{
						Name:        "workers",
						Usage:       "Number of worker goroutines",
						DefaultText: "NumCPU",
					},
				},
				Action: runBatch,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("conversion failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("missing input file argument")
	}
	if !strings.EqualFold(filepath.Ext(path), ".lab") {
		return fmt.Errorf("%s: input must be a .lab file", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ds, err := lab.Decode(data)
	if err != nil {
		return err
	}
	out, err := (&collada.Exporter{}).ExportDataset(ds)
	if err != nil {
		return err
	}

	// Output is written in one shot only after the whole pipeline
	// succeeded; a failed run leaves no partial file behind.
	dst := cmd.String("out")
	if dst == "" {
		dst = strings.TrimSuffix(path, filepath.Ext(path)) + ".dae"
	}
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote %s (%d bones, %d frames, %s keys)\n",
		dst, ds.Header.BoneCount, ds.Header.FrameCount, ds.Header.Encoding)
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	_, err := collada.Import(nil)
	return err
}

func runBatch(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("missing input directory argument")
	}

	var cfg config.Config
	if path := cmd.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
	}
	cfg.Resolve(config.Flags{
		OutputDir: cmd.String("out"),
		Workers:   int(cmd.Int("workers")),
	})

	paths, err := batch.Scan(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no .lab files under %s", dir)
	}

	results := batch.Run(batch.Config{OutputDir: cfg.OutputDir, Workers: cfg.Workers}, paths)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			fmt.Fprintf(os.Stderr, "  %s: %s\n", r.Path, r.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(results))
	}
	return nil
}
