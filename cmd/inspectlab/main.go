package main

import (
	"fmt"
	"os"

	"top-lab-exporter/internal/lab"
	"top-lab-exporter/internal/skeleton"
	"top-lab-exporter/internal/transform"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: inspectlab <file.lab> [...]")
		os.Exit(1)
	}

	for _, arg := range os.Args[1:] {
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read error %s: %v\n", arg, err)
			continue
		}
		ds, err := lab.Decode(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Decode error %s: %v\n", arg, err)
			continue
		}

		h := ds.Header
		fmt.Printf("\n=== %s (bones=%d frames=%d dummies=%d keys=%s) ===\n",
			arg, h.BoneCount, h.FrameCount, h.DummyCount, h.Encoding)

		lengths := boneLengths(ds)

		fmt.Println("--- BONES ---")
		for i, b := range ds.Bones {
			parent := fmt.Sprintf("parent=%d", b.ParentID)
			if b.ParentID == lab.RootSentinel {
				parent = "parent=<root>"
			}
			if lengths != nil && lengths[i] > 0 {
				fmt.Printf("  [%3d] %-32s %-14s len=%.2f\n", b.ID, b.Name, parent, lengths[i])
			} else {
				fmt.Printf("  [%3d] %-32s %s\n", b.ID, b.Name, parent)
			}
		}

		if len(ds.Dummies) > 0 {
			fmt.Println("--- DUMMIES ---")
			for _, b := range ds.Bones {
				for _, d := range ds.Dummies[b.ID] {
					t := d.Local.Translation()
					fmt.Printf("  Dummy %d on bone %d at (%.2f, %.2f, %.2f)\n",
						d.ID, d.ParentBoneID, t[0], t[1], t[2])
				}
			}
		}
	}
}

// boneLengths is the rest-pose distance from each bone to its parent, nil
// when the file's keys or hierarchy don't resolve (the table dump still works).
func boneLengths(ds *lab.Dataset) []float64 {
	rest, err := transform.New(ds).RestPoses()
	if err != nil {
		return nil
	}
	tree, err := skeleton.Build(ds, rest)
	if err != nil {
		return nil
	}

	worlds := tree.WorldRest()
	lengths := make([]float64, len(tree.Joints))
	for i, j := range tree.Joints {
		if j.Parent >= 0 {
			lengths[i] = worlds[i].Translation().Sub(worlds[j.Parent].Translation()).Len()
		}
	}
	return lengths
}
