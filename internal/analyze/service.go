package analyze

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/snapsight/snapsight/internal/api"
	"github.com/snapsight/snapsight/internal/auth"
	"github.com/snapsight/snapsight/internal/events"
	"github.com/snapsight/snapsight/internal/metrics"
	"github.com/snapsight/snapsight/internal/quota"
	"github.com/snapsight/snapsight/internal/storage"
)

// Per-step timeouts. Steps run on a context detached from the client
// connection: a disconnect must not leave the charge/refund pair half
// applied, so in-flight calls always run to completion.
const (
	quotaTimeout   = 5 * time.Second
	storeTimeout   = 20 * time.Second
	analyzeTimeout = 25 * time.Second
)

// Service drives one analysis request through gate, store, analyze, and
// respond. It holds no per-request state; concurrency correctness is entirely
// delegated to the quota store's atomic conditional increment.
type Service struct {
	quota     quota.Store
	store     ObjectStore
	vision    Analyzer
	publisher *events.Publisher

	limit        int
	quotaEnabled bool
}

func NewService(q quota.Store, store ObjectStore, vision Analyzer, publisher *events.Publisher, limit int, quotaEnabled bool) *Service {
	return &Service{
		quota:        q,
		store:        store,
		vision:       vision,
		publisher:    publisher,
		limit:        limit,
		quotaEnabled: quotaEnabled,
	}
}

// QuotaLimit reports the configured daily limit for response headers.
func (s *Service) QuotaLimit() int {
	return s.limit
}

// QuotaEnabled reports whether daily quotas are being enforced.
func (s *Service) QuotaEnabled() bool {
	return s.quotaEnabled
}

// Process runs the request state machine. Every failure maps to exactly one
// *api.AppError so no internal error kind leaks to the formatter.
func (s *Service) Process(ctx context.Context, caller auth.CallerContext, in Input) (*Result, *api.AppError) {
	// External calls survive client disconnects; see timeout comment above.
	ctx = context.WithoutCancel(ctx)

	bypassed := caller.Privileged || !s.quotaEnabled

	// Gate
	var remaining int
	if !bypassed {
		decision, err := s.tryConsume(ctx, caller.Identity)
		if err != nil {
			// Ambiguous consumption must not be retried or double-charged.
			slog.Error("quota check failed", "scope", caller.Identity, "error", err)
			s.publish(ctx, caller, in.Mode, "quota_error", bypassed, nil)
			return nil, api.ErrQuotaBackend
		}
		if !decision.Allowed {
			metrics.QuotaDenialsTotal.Inc()
			s.publish(ctx, caller, in.Mode, "quota_exceeded", bypassed, nil)
			return nil, api.NewQuotaExceededError(
				fmt.Sprintf("daily limit reached (%d/day), try again tomorrow", s.limit))
		}
		remaining = decision.Remaining
	}

	// Store
	ref, err := s.storeImage(ctx, in)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyPayload) || errors.Is(err, storage.ErrTooLarge) {
			// Client error; the consumed unit stays consumed (rare: the
			// handler validates payloads before gating).
			s.publish(ctx, caller, in.Mode, "validation", bypassed, nil)
			return nil, api.NewValidationError(err.Error())
		}
		slog.Error("storing image failed", "scope", caller.Identity, "error", err)
		metrics.AnalysesTotal.WithLabelValues(in.Mode, "storage_error").Inc()
		s.publish(ctx, caller, in.Mode, "storage_error", bypassed, nil)
		return nil, api.ErrStorage
	}

	// Analyze
	result, err := s.runAnalysis(ctx, ref, in)
	if err != nil {
		slog.Error("analysis failed", "scope", caller.Identity, "ref", ref.String(), "error", err)
		if !bypassed {
			s.refund(ctx, caller.Identity)
		}
		metrics.AnalysesTotal.WithLabelValues(in.Mode, "analysis_error").Inc()
		s.publish(ctx, caller, in.Mode, "analysis_error", bypassed, &ref)
		return nil, api.ErrAnalysis
	}

	// Respond
	if !bypassed {
		result.QuotaRemaining = &remaining
	}
	metrics.AnalysesTotal.WithLabelValues(in.Mode, "ok").Inc()
	s.publishResult(ctx, caller, in.Mode, bypassed, result)
	return result, nil
}

func (s *Service) tryConsume(ctx context.Context, scope string) (quota.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, quotaTimeout)
	defer cancel()
	return s.quota.TryConsume(ctx, scope, s.limit)
}

func (s *Service) storeImage(ctx context.Context, in Input) (storage.Ref, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.store.Store(ctx, in.Image, in.Filename)
}

func (s *Service) runAnalysis(ctx context.Context, ref storage.Ref, in Input) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	result := &Result{StorageRef: ref.String(), Mode: in.Mode}
	switch in.Mode {
	case ModeText:
		texts, err := s.vision.DetectTextLines(ctx, ref, in.MinConfidence)
		if err != nil {
			return nil, err
		}
		result.Texts = texts
	default:
		labels, err := s.vision.DetectLabels(ctx, ref, in.MinConfidence)
		if err != nil {
			return nil, err
		}
		result.Labels = labels
	}
	return result, nil
}

// refund returns the unit consumed for an analysis that never happened.
// A failed refund is logged and absorbed: losing one unit is better than
// blocking the response or double-refunding on retry.
func (s *Service) refund(ctx context.Context, scope string) {
	ctx, cancel := context.WithTimeout(ctx, quotaTimeout)
	defer cancel()

	if err := s.quota.Refund(ctx, scope); err != nil {
		slog.Warn("quota refund failed", "scope", scope, "error", err)
		return
	}
	metrics.QuotaRefundsTotal.Inc()
}

func (s *Service) publish(ctx context.Context, caller auth.CallerContext, mode, outcome string, bypassed bool, ref *storage.Ref) {
	event := events.AnalysisEvent{
		Scope:     caller.Identity,
		Mode:      mode,
		Outcome:   outcome,
		Bypassed:  bypassed,
		Timestamp: time.Now().UTC(),
	}
	if ref != nil {
		event.StoredRef = ref.String()
	}
	if err := s.publisher.PublishAnalysis(ctx, event); err != nil {
		slog.Warn("publishing analysis event failed", "error", err)
	}
}

func (s *Service) publishResult(ctx context.Context, caller auth.CallerContext, mode string, bypassed bool, result *Result) {
	event := events.AnalysisEvent{
		Scope:     caller.Identity,
		Mode:      mode,
		Outcome:   "ok",
		Bypassed:  bypassed,
		Labels:    len(result.Labels) + len(result.Texts),
		StoredRef: result.StorageRef,
		Timestamp: time.Now().UTC(),
	}
	if err := s.publisher.PublishAnalysis(ctx, event); err != nil {
		slog.Warn("publishing analysis event failed", "error", err)
	}
}
