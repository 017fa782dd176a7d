package analyze

import (
	"context"

	"github.com/snapsight/snapsight/internal/storage"
	"github.com/snapsight/snapsight/internal/vision"
)

// Analysis modes.
const (
	ModeLabels = "labels"
	ModeText   = "text"
)

// ObjectStore persists an image payload and returns its reference.
type ObjectStore interface {
	Store(ctx context.Context, imageBytes []byte, filename string) (storage.Ref, error)
}

// Analyzer runs vision detection against a stored object.
type Analyzer interface {
	DetectLabels(ctx context.Context, ref storage.Ref, minConfidence float64) ([]vision.Label, error)
	DetectTextLines(ctx context.Context, ref storage.Ref, minConfidence float64) ([]vision.TextLine, error)
}

// Input is one analysis request after decoding and validation. It lives only
// for the duration of the request.
type Input struct {
	Image         []byte
	Filename      string
	Mode          string
	MinConfidence float64
}

// Result is the success payload. QuotaRemaining is omitted when the caller
// bypassed the quota.
type Result struct {
	StorageRef     string            `json:"storage_ref"`
	Mode           string            `json:"mode"`
	Labels         []vision.Label    `json:"labels,omitempty"`
	Texts          []vision.TextLine `json:"texts,omitempty"`
	QuotaRemaining *int              `json:"quota_remaining,omitempty"`
}
