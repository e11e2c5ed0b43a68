package gltfexport

import (
	"bytes"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"top-lab-exporter/internal/mathutil"
	"top-lab-exporter/internal/skeleton"
)

// Skeleton encodes the rest-pose joint hierarchy as a GLB line set: one
// vertex per joint at its world rest position, one segment per parent→child
// link and one per attached dummy marker. Meant as a quick-look artifact for
// tools that read glTF but not COLLADA.
func Skeleton(tree *skeleton.Tree) ([]byte, error) {
	if len(tree.Joints) == 0 {
		return nil, fmt.Errorf("gltfexport: empty joint tree")
	}

	worlds := tree.WorldRest()
	positions := make([][3]float32, 0, len(worlds))
	for _, w := range worlds {
		positions = append(positions, vtx(w.Translation()))
	}

	var indices []uint32
	for i, j := range tree.Joints {
		if j.Parent >= 0 {
			indices = append(indices, uint32(j.Parent), uint32(i))
		}
	}
	for i, j := range tree.Joints {
		for _, d := range j.Dummies {
			p := mathutil.Mat4Mul(worlds[i], d.Local).Translation()
			positions = append(positions, vtx(p))
			indices = append(indices, uint32(i), uint32(len(positions)-1))
		}
	}
	if len(indices) == 0 {
		// Single root with no children still gets a degenerate segment so
		// viewers have something to show.
		indices = []uint32{0, 0}
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "top-lab-exporter"

	posAccessor := modeler.WritePosition(doc, positions)
	indicesAccessor := modeler.WriteIndices(doc, indices)
	prim := &gltf.Primitive{
		Attributes: map[string]int{
			gltf.POSITION: posAccessor,
		},
		Indices: gltf.Index(indicesAccessor),
		Mode:    gltf.PrimitiveLines,
	}
	doc.Meshes = []*gltf.Mesh{{Name: "Skeleton", Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: tree.Joints[tree.Root].Name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("gltfexport: encode: %w", err)
	}
	return out.Bytes(), nil
}

func vtx(v mathutil.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}
