package session

// Reason explains why a detection entry was rejected during load.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotObject
	ReasonMissingID
	ReasonMalformedBBox
	ReasonMalformedScore
	ReasonDegenerate
	ReasonDuplicateID
	ReasonIDOutOfRange
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "valid"
	case ReasonNotObject:
		return "entry is not an object"
	case ReasonMissingID:
		return "id is missing or not an integer"
	case ReasonMalformedBBox:
		return "bbox is not four numbers"
	case ReasonMalformedScore:
		return "score is not a number"
	case ReasonDegenerate:
		return "bbox has xmin >= xmax or ymin >= ymax"
	case ReasonDuplicateID:
		return "id already used by an earlier entry"
	case ReasonIDOutOfRange:
		return "id leaves no room for new ids"
	}
	return "unknown"
}

// Rejection records one dropped entry whose id was readable.
type Rejection struct {
	ID     int
	Reason Reason
}

// LoadReport summarizes the repairs performed while opening a session. It is
// diagnostic output only and is never persisted.
type LoadReport struct {
	CreatedNewRecord  bool
	ParseFailed       bool
	DroppedInvalidIDs []int
	ClampedCount      int

	Rejections []Rejection
	// SkippedEntries counts entries dropped without a usable id.
	SkippedEntries int
	// MetadataRepaired is set when format_version, image or the detections
	// container had to be rewritten.
	MetadataRepaired bool
}

// NeedsSave reports whether the loaded session differs from what is on disk.
func (r *LoadReport) NeedsSave() bool {
	return r.ParseFailed || len(r.DroppedInvalidIDs) > 0 || r.SkippedEntries > 0 ||
		r.ClampedCount > 0 || r.MetadataRepaired
}

func (r *LoadReport) reject(id int, reason Reason) {
	r.DroppedInvalidIDs = append(r.DroppedInvalidIDs, id)
	r.Rejections = append(r.Rejections, Rejection{ID: id, Reason: reason})
}
