package collada

import "encoding/xml"

// Element layout of a COLLADA 1.4.1 document, limited to what a skeletal
// animation export needs: asset metadata, one visual scene of JOINT nodes,
// an animation library, and the scene instantiation.

type document struct {
	XMLName      xml.Name            `xml:"COLLADA"`
	Xmlns        string              `xml:"xmlns,attr"`
	Version      string              `xml:"version,attr"`
	Asset        asset               `xml:"asset"`
	VisualScenes libraryVisualScenes `xml:"library_visual_scenes"`
	Animations   libraryAnimations   `xml:"library_animations"`
	Scene        sceneElem           `xml:"scene"`
}

type asset struct {
	Contributor contributor `xml:"contributor"`
	Created     string      `xml:"created"`
	UpAxis      string      `xml:"up_axis"`
}

type contributor struct {
	Author string `xml:"author"`
}

type libraryVisualScenes struct {
	Scene visualScene `xml:"visual_scene"`
}

type visualScene struct {
	ID    string `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Nodes []node `xml:"node"`
}

type node struct {
	ID     string      `xml:"id,attr"`
	SID    string      `xml:"sid,attr,omitempty"`
	Name   string      `xml:"name,attr"`
	Type   string      `xml:"type,attr"`
	Matrix *matrixElem `xml:"matrix"`
	Nodes  []node      `xml:"node"`
}

type matrixElem struct {
	SID  string `xml:"sid,attr"`
	Text string `xml:",chardata"`
}

type libraryAnimations struct {
	Animations []animation `xml:"animation"`
}

type animation struct {
	ID      string   `xml:"id,attr"`
	Name    string   `xml:"name,attr"`
	Sources []source `xml:"source"`
	Sampler sampler  `xml:"sampler"`
	Channel channel  `xml:"channel"`
}

type source struct {
	ID         string          `xml:"id,attr"`
	FloatArray *floatArray     `xml:"float_array"`
	NameArray  *nameArray      `xml:"Name_array"`
	Technique  techniqueCommon `xml:"technique_common"`
}

type floatArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Text  string `xml:",chardata"`
}

type nameArray struct {
	ID    string `xml:"id,attr"`
	Count int    `xml:"count,attr"`
	Text  string `xml:",chardata"`
}

type techniqueCommon struct {
	Accessor accessor `xml:"accessor"`
}

type accessor struct {
	Source string  `xml:"source,attr"`
	Count  int     `xml:"count,attr"`
	Stride int     `xml:"stride,attr"`
	Params []param `xml:"param"`
}

type param struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type sampler struct {
	ID     string  `xml:"id,attr"`
	Inputs []input `xml:"input"`
}

type input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
}

type channel struct {
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

type sceneElem struct {
	Instance instanceVisualScene `xml:"instance_visual_scene"`
}

type instanceVisualScene struct {
	URL string `xml:"url,attr"`
}
