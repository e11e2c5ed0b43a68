package collada

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"top-lab-exporter/internal/lab"
	"top-lab-exporter/internal/mathutil"
	"top-lab-exporter/internal/skeleton"
	"top-lab-exporter/internal/transform"
)

const (
	// Namespace and SchemaVersion pin the interchange format revision.
	Namespace     = "http://www.collada.org/2005/11/COLLADASchema"
	SchemaVersion = "1.4.1"

	Author = "Perseus"
	UpAxis = "Z_UP"

	// SamplesPerSecond is the keyframe rate baked into the source format;
	// it is a convention, not a field of the input file.
	SamplesPerSecond = 25.0
)

const xmlDeclaration = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"

// Exporter emits COLLADA documents from a joint tree and its per-frame
// transforms. The zero value is ready to use.
type Exporter struct {
	// Now supplies the asset creation timestamp; nil means time.Now.
	Now func() time.Time
}

// ExportDataset runs the dataset through the whole pipeline: rest poses,
// joint tree, frame transform table, document. Nothing is written anywhere;
// the returned bytes are the complete document.
func (ex *Exporter) ExportDataset(ds *lab.Dataset) ([]byte, error) {
	eng := transform.New(ds)

	rest, err := eng.RestPoses()
	if err != nil {
		return nil, err
	}
	tree, err := skeleton.Build(ds, rest)
	if err != nil {
		return nil, err
	}
	table, err := eng.Table()
	if err != nil {
		return nil, err
	}
	return ex.Export(tree, table)
}

// Export builds the document from an already-assembled tree and table.
func (ex *Exporter) Export(tree *skeleton.Tree, table *transform.Table) ([]byte, error) {
	now := time.Now
	if ex.Now != nil {
		now = ex.Now
	}

	doc := document{
		Xmlns:   Namespace,
		Version: SchemaVersion,
		Asset: asset{
			Contributor: contributor{Author: Author},
			Created:     now().UTC().Format(time.RFC3339),
			UpAxis:      UpAxis,
		},
	}

	doc.VisualScenes.Scene = visualScene{
		ID:   "Scene",
		Name: "Scene",
		Nodes: []node{{
			ID:    "Skeleton",
			Name:  "Skeleton",
			Type:  "NODE",
			Nodes: []node{jointNode(tree, tree.Root)},
		}},
	}

	doc.Animations.Animations = make([]animation, 0, table.Bones)
	for b := 0; b < table.Bones; b++ {
		doc.Animations.Animations = append(doc.Animations.Animations,
			animationBlock(tree.Joints[b].Name, table.Row(b)))
	}

	doc.Scene.Instance.URL = "#Scene"

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("collada: marshal document: %w", err)
	}
	return append([]byte(xmlDeclaration), append(body, '\n')...), nil
}

// jointNode emits one joint and, recursively, its dummy markers and children.
func jointNode(tree *skeleton.Tree, i int) node {
	j := tree.Joints[i]
	sanitized := sanitize(j.Name)

	n := node{
		ID:     sanitized,
		SID:    sanitized,
		Name:   j.Name,
		Type:   "JOINT",
		Matrix: &matrixElem{SID: "transform", Text: matrixText(j.Rest)},
	}
	for _, d := range j.Dummies {
		n.Nodes = append(n.Nodes, dummyNode(d))
	}
	for _, c := range j.Children {
		n.Nodes = append(n.Nodes, jointNode(tree, c))
	}
	return n
}

func dummyNode(d lab.DummyMarker) node {
	return node{
		ID:     fmt.Sprintf("Dummy_%d", d.ID),
		Name:   fmt.Sprintf("Dummy %d", d.ID),
		Type:   "NODE",
		Matrix: &matrixElem{SID: "transform", Text: matrixText(d.Local)},
	}
}

// animationBlock is one bone's animation: time input, flattened matrix
// output, interpolation names, the sampler binding them and the channel
// routing the sampler to the joint's transform.
func animationBlock(boneName string, frames []mathutil.Mat4) animation {
	base := sanitize(boneName) + "_pose_matrix"
	frameCount := len(frames)

	times := make([]string, frameCount)
	for i := range times {
		times[i] = ftoa(float64(i) / SamplesPerSecond)
	}

	outputs := make([]string, frameCount)
	for i, m := range frames {
		outputs[i] = matrixText(m)
	}

	return animation{
		ID:   base,
		Name: base,
		Sources: []source{
			{
				ID: base + "-input",
				FloatArray: &floatArray{
					ID:    base + "-input-array",
					Count: frameCount,
					Text:  strings.Join(times, " "),
				},
				Technique: techniqueCommon{Accessor: accessor{
					Source: "#" + base + "-input-array",
					Count:  frameCount,
					Stride: 1,
					Params: []param{{Name: "TIME", Type: "float"}},
				}},
			},
			{
				ID: base + "-output",
				FloatArray: &floatArray{
					ID:    base + "-output-array",
					Count: 16 * frameCount,
					Text:  strings.Join(outputs, " "),
				},
				Technique: techniqueCommon{Accessor: accessor{
					Source: "#" + base + "-output-array",
					Count:  frameCount,
					Stride: 16,
					Params: []param{{Name: "TRANSFORM", Type: "float4x4"}},
				}},
			},
			{
				ID: base + "-interpolation",
				NameArray: &nameArray{
					ID:    base + "-interpolation-array",
					Count: frameCount,
					Text:  strings.TrimSpace(strings.Repeat("LINEAR ", frameCount)),
				},
				Technique: techniqueCommon{Accessor: accessor{
					Source: "#" + base + "-interpolation-array",
					Count:  frameCount,
					Stride: 1,
					Params: []param{{Name: "INTERPOLATION", Type: "name"}},
				}},
			},
		},
		Sampler: sampler{
			ID: base + "-sampler",
			Inputs: []input{
				{Semantic: "INPUT", Source: "#" + base + "-input"},
				{Semantic: "OUTPUT", Source: "#" + base + "-output"},
				{Semantic: "INTERPOLATION", Source: "#" + base + "-interpolation"},
			},
		},
		Channel: channel{
			Source: "#" + base + "-sampler",
			Target: sanitize(boneName) + "/transform",
		},
	}
}

// sanitize maps a bone name to an XML id. Colliding source names collide in
// the output too; deduplication is deliberately not attempted.
func sanitize(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// matrixText flattens a matrix to 16 space-separated floats, row-major.
func matrixText(m mathutil.Mat4) string {
	parts := make([]string, len(m))
	for i, v := range m {
		parts[i] = ftoa(v)
	}
	return strings.Join(parts, " ")
}

// ftoa prints the shortest representation that survives a float32
// round-trip, matching the precision of the decoded input.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 32)
}
