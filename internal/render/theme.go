package render

// Theme holds colors for graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors.
	EdgeTaken       string // conditional jump taken
	EdgeFallthrough string // conditional jump not taken
	EdgeDirect      string // unconditional flow, calls, inheritance

	// Node accents.
	EntryBorder     string // function entry block
	TermFill        string // blocks that leave the function
	PlaceholderFill string // classes no package provides
	ExternalText    string // counts, subtitles

	// Cluster styling.
	ClusterBorder string // per-package subgraph border
	ClusterLabel  string // subgraph label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeTaken:       "#0B3D91", // NASA blue
	EdgeFallthrough: "#FC3D21", // NASA red
	EdgeDirect:      "#424242", // dark gray

	EntryBorder:     "#0B3D91",
	TermFill:        "#ECEFF1", // blue-gray 50
	PlaceholderFill: "#FFF3E0", // orange 50
	ExternalText:    "#9E9E9E",

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
