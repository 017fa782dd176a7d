package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/rekognition/rekognitioniface"

	"github.com/snapsight/snapsight/internal/storage"
)

const (
	maxRetries     = 2
	initialBackoff = 200 * time.Millisecond
)

// Label is a normalized classification tag. Confidence is 0-100.
type Label struct {
	Name       string   `json:"name"`
	Confidence float64  `json:"confidence"`
	Parents    []string `json:"parents,omitempty"`
}

// Client wraps Rekognition calls against already-stored S3 objects.
type Client struct {
	rek       rekognitioniface.RekognitionAPI
	maxLabels int
}

func NewClient(rek rekognitioniface.RekognitionAPI, maxLabels int) *Client {
	if maxLabels <= 0 {
		maxLabels = 100
	}
	return &Client{rek: rek, maxLabels: maxLabels}
}

// DetectLabels runs label detection on the stored object and normalizes the
// result: below-threshold labels dropped, duplicate names collapsed keeping
// the highest confidence, ordered by confidence descending.
func (c *Client) DetectLabels(ctx context.Context, ref storage.Ref, minConfidence float64) ([]Label, error) {
	var out *rekognition.DetectLabelsOutput
	err := c.withRetry(ctx, func() error {
		var callErr error
		out, callErr = c.rek.DetectLabelsWithContext(ctx, &rekognition.DetectLabelsInput{
			Image: &rekognition.Image{
				S3Object: &rekognition.S3Object{
					Bucket: aws.String(ref.Bucket),
					Name:   aws.String(ref.Key),
				},
			},
			MaxLabels:     aws.Int64(int64(c.maxLabels)),
			MinConfidence: aws.Float64(minConfidence),
		})
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("detecting labels for %s: %w", ref, err)
	}

	raw := make([]Label, 0, len(out.Labels))
	for _, l := range out.Labels {
		lab := Label{
			Name:       aws.StringValue(l.Name),
			Confidence: aws.Float64Value(l.Confidence),
		}
		for _, p := range l.Parents {
			if name := aws.StringValue(p.Name); name != "" {
				lab.Parents = append(lab.Parents, name)
			}
		}
		raw = append(raw, lab)
	}

	return NormalizeLabels(raw, minConfidence), nil
}

// withRetry runs op, retrying throttling and transient service errors with
// exponential backoff up to maxRetries extra attempts.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !isTransient(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func isTransient(err error) bool {
	return request.IsErrorThrottle(err) || request.IsErrorRetryable(err)
}
