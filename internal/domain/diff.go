package domain

// DiffLineKind is the classification of a single line in a SnapshotDiff.
type DiffLineKind string

const (
	DiffAdded     DiffLineKind = "added"
	DiffRemoved   DiffLineKind = "removed"
	DiffUnchanged DiffLineKind = "unchanged"
)

// DiffLine is one comparable-string line with its classification.
type DiffLine struct {
	Kind DiffLineKind `json:"kind"`
	Text string       `json:"text"`
}

// DiffSummary is the closure invariant surface: additions+unchanged ==
// |current| and removals+unchanged == |previous|.
type DiffSummary struct {
	Additions int `json:"additions"`
	Removals  int `json:"removals"`
	Unchanged int `json:"unchanged"`
}

// SnapshotDiff is the unified add/remove/unchanged partition between two
// snapshots' comparable-string projections.
type SnapshotDiff struct {
	Lines   []DiffLine  `json:"lines"`
	Summary DiffSummary `json:"summary"`
}
