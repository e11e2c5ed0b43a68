package skeleton

import (
	"fmt"
	"strings"

	"top-lab-exporter/internal/lab"
	"top-lab-exporter/internal/mathutil"
)

// Joint is one node in the arena-allocated joint tree. Joints reference each
// other by arena index, never by pointer.
type Joint struct {
	ID       uint32
	Name     string
	Parent   int   // arena index, -1 at the root
	Children []int // arena indices, bone-table order
	Rest     mathutil.Mat4
	Dummies  []lab.DummyMarker
}

// Tree is the immutable joint hierarchy of one animation file. Arena index i
// corresponds to bone-table position i.
type Tree struct {
	Joints []Joint
	Root   int
}

// UnresolvedParent records a bone whose parent id matches no bone in the table.
type UnresolvedParent struct {
	BoneID   uint32
	ParentID uint32
}

// HierarchyError reports structural defects in the bone table: dangling
// parent references and a root count other than one. All defects found in a
// single build are aggregated.
type HierarchyError struct {
	Unresolved []UnresolvedParent
	Roots      []uint32 // ids of bones carrying the sentinel parent
}

func (e *HierarchyError) Error() string {
	var parts []string
	switch len(e.Roots) {
	case 1:
	case 0:
		parts = append(parts, "no root bone with sentinel parent")
	default:
		parts = append(parts, fmt.Sprintf("multiple root bones %v", e.Roots))
	}
	for _, u := range e.Unresolved {
		parts = append(parts, fmt.Sprintf("bone %d references missing parent %d", u.BoneID, u.ParentID))
	}
	return "skeleton: " + strings.Join(parts, "; ")
}

// Build assembles the joint tree from the decoded bone table. rest[i] is
// bone i's frame-0 local matrix. The build is two-phase: all nodes are
// constructed first, then every parent link is resolved, so the returned
// HierarchyError names every offending bone rather than the first one hit.
func Build(ds *lab.Dataset, rest []mathutil.Mat4) (*Tree, error) {
	joints := make([]Joint, len(ds.Bones))
	index := make(map[uint32]int, len(ds.Bones))
	for i, b := range ds.Bones {
		joints[i] = Joint{
			ID:      b.ID,
			Name:    b.Name,
			Parent:  -1,
			Rest:    rest[i],
			Dummies: ds.Dummies[b.ID],
		}
		index[b.ID] = i
	}

	herr := &HierarchyError{}
	for i, b := range ds.Bones {
		if b.ParentID == lab.RootSentinel {
			herr.Roots = append(herr.Roots, b.ID)
			continue
		}
		p, ok := index[b.ParentID]
		if !ok {
			herr.Unresolved = append(herr.Unresolved, UnresolvedParent{BoneID: b.ID, ParentID: b.ParentID})
			continue
		}
		joints[i].Parent = p
		joints[p].Children = append(joints[p].Children, i)
	}
	if len(herr.Unresolved) > 0 || len(herr.Roots) != 1 {
		return nil, herr
	}

	return &Tree{Joints: joints, Root: index[herr.Roots[0]]}, nil
}

// WorldRest returns the rest-pose world matrix per joint, composing local
// matrices from the root down.
func (t *Tree) WorldRest() []mathutil.Mat4 {
	worlds := make([]mathutil.Mat4, len(t.Joints))
	var walk func(i int, parent mathutil.Mat4)
	walk = func(i int, parent mathutil.Mat4) {
		worlds[i] = mathutil.Mat4Mul(parent, t.Joints[i].Rest)
		for _, c := range t.Joints[i].Children {
			walk(c, worlds[i])
		}
	}
	walk(t.Root, mathutil.Mat4Identity())
	return worlds
}
