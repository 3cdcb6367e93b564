package model

// Image lifecycle states. An image starts pending and is flipped to
// processed exactly once, by the worker.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
)

// Classification is one (label, confidence) pair produced by the classifier.
// Confidence is in [0, 1].
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Image represents one webcam capture in the system.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage, worker) without
// coupling to persistence.
type Image struct {
	ID              string           `json:"id"`
	CapturedAt      int64            `json:"captured_at"`
	FormattedTime   string           `json:"formatted_time"`
	StoragePath     string           `json:"storage_path"`
	Status          string           `json:"status"`
	Classifications []Classification `json:"classifications,omitempty"`
	Definition      string           `json:"definition,omitempty"`
	ProcessedAt     int64            `json:"processed_at,omitempty"`
}
