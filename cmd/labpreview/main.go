package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"

	"top-lab-exporter/internal/config"
	"top-lab-exporter/internal/gltfexport"
	"top-lab-exporter/internal/lab"
	"top-lab-exporter/internal/preview"
	"top-lab-exporter/internal/skeleton"
	"top-lab-exporter/internal/transform"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	frame := flag.Int("frame", 0, "Frame to render")
	size := flag.Int("size", 0, "Output image size in pixels (default: 512)")
	output := flag.String("out", "", "Output path (default: input stem + .webp)")
	glb := flag.Bool("glb", false, "Also write a GLB line skeleton next to the image")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: labpreview [flags] <file.lab>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	cfg.Resolve(config.Flags{PreviewSize: *size})

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read error %s: %v\n", path, err)
		os.Exit(1)
	}
	ds, err := lab.Decode(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decode error %s: %v\n", path, err)
		os.Exit(1)
	}

	eng := transform.New(ds)
	rest, err := eng.RestPoses()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transform error %s: %v\n", path, err)
		os.Exit(1)
	}
	tree, err := skeleton.Build(ds, rest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hierarchy error %s: %v\n", path, err)
		os.Exit(1)
	}

	img, err := preview.Render(eng, tree, *frame, cfg.PreviewSize, cfg.Supersample)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Render error %s: %v\n", path, err)
		os.Exit(1)
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	dst := *output
	if dst == "" {
		dst = stem + ".webp"
	}
	f, err := os.Create(dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", dst, err)
		os.Exit(1)
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "WebP encode error: %v\n", err)
		os.Exit(1)
	}
	f.Close()
	fmt.Printf("wrote %s (frame %d)\n", dst, *frame)

	if *glb {
		blob, err := gltfexport.Skeleton(tree)
		if err != nil {
			fmt.Fprintf(os.Stderr, "GLB export error: %v\n", err)
			os.Exit(1)
		}
		glbPath := stem + ".glb"
		if err := os.WriteFile(glbPath, blob, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", glbPath, err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", glbPath)
	}
}
