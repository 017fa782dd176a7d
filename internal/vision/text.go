package vision

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/rekognition"

	"github.com/snapsight/snapsight/internal/storage"
)

// TextLine is one detected line of text with its normalized bounding box
// (coordinates are fractions of the image dimensions).
type TextLine struct {
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// lineBand is the vertical slice height used to group words that sit on the
// same visual row.
const lineBand = 0.04

// DetectTextLines runs text detection on the stored object and returns
// deduplicated lines at or above minConfidence. When the service reports no
// LINE detections, WORD detections are regrouped into lines by vertical band
// and left-to-right order.
func (c *Client) DetectTextLines(ctx context.Context, ref storage.Ref, minConfidence float64) ([]TextLine, error) {
	var out *rekognition.DetectTextOutput
	err := c.withRetry(ctx, func() error {
		var callErr error
		out, callErr = c.rek.DetectTextWithContext(ctx, &rekognition.DetectTextInput{
			Image: &rekognition.Image{
				S3Object: &rekognition.S3Object{
					Bucket: aws.String(ref.Bucket),
					Name:   aws.String(ref.Key),
				},
			},
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("detecting text for %s: %w", ref, err)
	}

	var lines, words []TextLine
	for _, det := range out.TextDetections {
		if aws.Float64Value(det.Confidence) < minConfidence {
			continue
		}
		tl := TextLine{
			Text:       aws.StringValue(det.DetectedText),
			Confidence: aws.Float64Value(det.Confidence),
			Box:        boxFromGeometry(det.Geometry),
		}
		switch aws.StringValue(det.Type) {
		case rekognition.TextTypesLine:
			lines = append(lines, tl)
		case rekognition.TextTypesWord:
			words = append(words, tl)
		}
	}

	if len(lines) == 0 {
		lines = GroupWordsIntoLines(words)
	}

	return DedupeLines(lines), nil
}

func boxFromGeometry(g *rekognition.Geometry) BoundingBox {
	if g == nil || g.BoundingBox == nil {
		return BoundingBox{}
	}
	return BoundingBox{
		Left:   aws.Float64Value(g.BoundingBox.Left),
		Top:    aws.Float64Value(g.BoundingBox.Top),
		Width:  aws.Float64Value(g.BoundingBox.Width),
		Height: aws.Float64Value(g.BoundingBox.Height),
	}
}

// GroupWordsIntoLines buckets words into horizontal bands by the vertical
// center of their boxes, then joins each band left to right. The line's
// confidence is the mean of its words; its box is the union of theirs.
func GroupWordsIntoLines(words []TextLine) []TextLine {
	if len(words) == 0 {
		return nil
	}

	rows := make(map[int][]TextLine)
	for _, w := range words {
		band := int(centerY(w.Box) / lineBand)
		rows[band] = append(rows[band], w)
	}

	bands := make([]int, 0, len(rows))
	for b := range rows {
		bands = append(bands, b)
	}
	sort.Ints(bands)

	out := make([]TextLine, 0, len(bands))
	for _, b := range bands {
		ws := rows[b]
		sort.Slice(ws, func(i, j int) bool { return ws[i].Box.Left < ws[j].Box.Left })

		parts := make([]string, len(ws))
		var confSum float64
		box := ws[0].Box
		for i, w := range ws {
			parts[i] = w.Text
			confSum += w.Confidence
			box = union(box, w.Box)
		}
		out = append(out, TextLine{
			Text:       strings.Join(parts, " "),
			Confidence: confSum / float64(len(ws)),
			Box:        box,
		})
	}
	return out
}

// DedupeLines removes near-duplicate lines: same normalized text with boxes
// overlapping more than half (IoU > 0.5). First occurrence wins.
func DedupeLines(lines []TextLine) []TextLine {
	out := make([]TextLine, 0, len(lines))
	for _, l := range lines {
		norm := normalizeText(l.Text)
		dup := false
		for _, kept := range out {
			if normalizeText(kept.Text) == norm && IoU(l.Box, kept.Box) > 0.5 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out
}

// IoU is intersection-over-union of two boxes; 0 when they do not overlap.
func IoU(a, b BoundingBox) float64 {
	ix := maxf(0, minf(a.Left+a.Width, b.Left+b.Width)-maxf(a.Left, b.Left))
	iy := maxf(0, minf(a.Top+a.Height, b.Top+b.Height)-maxf(a.Top, b.Top))
	inter := ix * iy
	if inter == 0 {
		return 0
	}
	union := a.Width*a.Height + b.Width*b.Height - inter
	return inter / (union + 1e-9)
}

var spaceRe = regexp.MustCompile(`\s+`)

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(spaceRe.ReplaceAllString(s, " ")))
}

func centerY(b BoundingBox) float64 {
	return b.Top + b.Height/2
}

func union(a, b BoundingBox) BoundingBox {
	left := minf(a.Left, b.Left)
	top := minf(a.Top, b.Top)
	right := maxf(a.Left+a.Width, b.Left+b.Width)
	bottom := maxf(a.Top+a.Height, b.Top+b.Height)
	return BoundingBox{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
