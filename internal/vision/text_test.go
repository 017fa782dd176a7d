package vision

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(left, top, width, height float64) BoundingBox {
	return BoundingBox{Left: left, Top: top, Width: width, Height: height}
}

func TestGroupWordsIntoLines_JoinsByRow(t *testing.T) {
	words := []TextLine{
		{Text: "WORLD", Confidence: 90, Box: box(0.4, 0.10, 0.2, 0.05)},
		{Text: "HELLO", Confidence: 80, Box: box(0.1, 0.11, 0.2, 0.05)},
		{Text: "BYE", Confidence: 70, Box: box(0.1, 0.50, 0.2, 0.05)},
	}

	lines := GroupWordsIntoLines(words)

	require.Len(t, lines, 2)
	assert.Equal(t, "HELLO WORLD", lines[0].Text)
	assert.InDelta(t, 85, lines[0].Confidence, 0.001, "line confidence is the word mean")
	assert.Equal(t, "BYE", lines[1].Text)

	// Union box spans both words.
	assert.InDelta(t, 0.1, lines[0].Box.Left, 1e-9)
	assert.InDelta(t, 0.5, lines[0].Box.Width, 1e-9)
}

func TestGroupWordsIntoLines_Empty(t *testing.T) {
	assert.Nil(t, GroupWordsIntoLines(nil))
}

func TestDedupeLines_CollapsesOverlappingSameText(t *testing.T) {
	lines := []TextLine{
		{Text: "STOP", Confidence: 95, Box: box(0.1, 0.1, 0.3, 0.1)},
		{Text: "stop ", Confidence: 80, Box: box(0.11, 0.1, 0.3, 0.1)}, // same text, heavy overlap
		{Text: "STOP", Confidence: 90, Box: box(0.6, 0.7, 0.3, 0.1)},  // same text, elsewhere
	}

	got := DedupeLines(lines)

	require.Len(t, got, 2)
	assert.Equal(t, 95.0, got[0].Confidence, "first occurrence kept")
	assert.Equal(t, 90.0, got[1].Confidence)
}

func TestIoU(t *testing.T) {
	a := box(0, 0, 1, 1)
	assert.InDelta(t, 1.0, IoU(a, a), 1e-6)
	assert.Equal(t, 0.0, IoU(a, box(2, 2, 1, 1)))

	// Half overlap: intersection 0.5, union 1.5.
	assert.InDelta(t, 1.0/3.0, IoU(a, box(0.5, 0, 1, 1)), 1e-6)
}

func TestDetectTextLines_PrefersServiceLines(t *testing.T) {
	fake := &fakeRekognition{
		textOut: &rekognition.DetectTextOutput{
			TextDetections: []*rekognition.TextDetection{
				{
					Type:         aws.String(rekognition.TextTypesLine),
					DetectedText: aws.String("OPEN 24H"),
					Confidence:   aws.Float64(92),
					Geometry:     geometry(0.1, 0.1, 0.5, 0.08),
				},
				{
					Type:         aws.String(rekognition.TextTypesWord),
					DetectedText: aws.String("OPEN"),
					Confidence:   aws.Float64(92),
					Geometry:     geometry(0.1, 0.1, 0.2, 0.08),
				},
				{
					Type:         aws.String(rekognition.TextTypesLine),
					DetectedText: aws.String("faint sign"),
					Confidence:   aws.Float64(30),
					Geometry:     geometry(0.1, 0.5, 0.5, 0.08),
				},
			},
		},
	}
	c := NewClient(fake, 100)

	got, err := c.DetectTextLines(context.Background(), testRef, 55)
	require.NoError(t, err)
	require.Len(t, got, 1, "low-confidence line dropped, words ignored when lines exist")
	assert.Equal(t, "OPEN 24H", got[0].Text)
}

func TestDetectTextLines_FallsBackToWordGrouping(t *testing.T) {
	fake := &fakeRekognition{
		textOut: &rekognition.DetectTextOutput{
			TextDetections: []*rekognition.TextDetection{
				{
					Type:         aws.String(rekognition.TextTypesWord),
					DetectedText: aws.String("NO"),
					Confidence:   aws.Float64(88),
					Geometry:     geometry(0.1, 0.2, 0.1, 0.05),
				},
				{
					Type:         aws.String(rekognition.TextTypesWord),
					DetectedText: aws.String("PARKING"),
					Confidence:   aws.Float64(86),
					Geometry:     geometry(0.25, 0.2, 0.2, 0.05),
				},
			},
		},
	}
	c := NewClient(fake, 100)

	got, err := c.DetectTextLines(context.Background(), testRef, 55)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "NO PARKING", got[0].Text)
}

func geometry(left, top, width, height float64) *rekognition.Geometry {
	return &rekognition.Geometry{
		BoundingBox: &rekognition.BoundingBox{
			Left:   aws.Float64(left),
			Top:    aws.Float64(top),
			Width:  aws.Float64(width),
			Height: aws.Float64(height),
		},
	}
}
