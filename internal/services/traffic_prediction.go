package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fleet-route-optimizer/internal/domain"
	"fleet-route-optimizer/internal/platform/obs"
	"fleet-route-optimizer/internal/ports"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultOracleTimeout = 10 * time.Second

	defaultAIDelay      = 0.0
	defaultAICongestion = 0.5
	defaultAIConfidence = 0.7

	fallbackConfidence = 0.6
)

// PredictOptions overrides the clock. Nil fields use the predictor's clock.
type PredictOptions struct {
	TimeOfDay *int
	DayOfWeek *int
}

// TrafficPredictor estimates traffic delay for a waypoint list.
//
// It asks the oracle first and collapses every failure (not configured,
// transport, timeout, malformed answer) into the deterministic fallback, so
// callers always receive a complete prediction.
type TrafficPredictor struct {
	oracle  ports.TrafficOracle
	timeout time.Duration
	now     func() time.Time
}

// NewTrafficPredictor builds a predictor. oracle may be nil.
func NewTrafficPredictor(oracle ports.TrafficOracle, timeout time.Duration) *TrafficPredictor {
	if timeout <= 0 {
		timeout = defaultOracleTimeout
	}
	return &TrafficPredictor{
		oracle:  oracle,
		timeout: timeout,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for timestamps and default hour/day.
func (p *TrafficPredictor) WithClock(now func() time.Time) *TrafficPredictor {
	p.now = now
	return p
}

// Predict returns a prediction for waypoints. The only error it returns is a
// ValidationError for out-of-range overrides or waypoints.
func (p *TrafficPredictor) Predict(
	ctx context.Context,
	waypoints []domain.Coordinates,
	opts PredictOptions,
) (domain.TrafficPrediction, error) {
	now := p.now()
	hour, day := now.Hour(), int(now.Weekday())
	if opts.TimeOfDay != nil {
		hour = *opts.TimeOfDay
	}
	if opts.DayOfWeek != nil {
		day = *opts.DayOfWeek
	}

	for i, wp := range waypoints {
		if err := wp.Validate(fmt.Sprintf("waypoints[%d]", i)); err != nil {
			return domain.TrafficPrediction{}, fmt.Errorf("predict traffic: %w", err)
		}
	}

	tc, err := BuildTrafficContext(waypoints, hour, day)
	if err != nil {
		return domain.TrafficPrediction{}, fmt.Errorf("predict traffic: %w", err)
	}

	ctx, span := obs.Tracer().Start(ctx, "traffic.predict", trace.WithAttributes(
		attribute.Int("waypoints", len(waypoints)),
		attribute.Int("hour", hour),
		attribute.Int("day_of_week", day),
		attribute.Bool("rush_hour", tc.IsRushHour),
	))
	defer span.End()

	pred, err := p.predictWithOracle(ctx, tc, now)
	if err != nil {
		errType := obs.ErrorTypeNetwork
		switch {
		case errors.Is(err, ports.ErrOracleNotConfigured):
			errType = obs.ErrorTypeValidation
		case errors.Is(err, context.DeadlineExceeded):
			errType = obs.ErrorTypeTimeout
		case errors.Is(err, errMalformedPrediction):
			errType = obs.ErrorTypeParse
		}
		obs.RecordError(span, err, errType, true)

		entry := logrus.WithFields(logrus.Fields{
			"req_id":    obs.RequestID(ctx),
			"waypoints": len(waypoints),
			"rush_hour": tc.IsRushHour,
		}).WithError(err)
		if errors.Is(err, ports.ErrOracleNotConfigured) {
			entry.Debug("traffic oracle unavailable, using fallback prediction")
		} else {
			entry.Warn("traffic oracle failed, using fallback prediction")
		}

		fb := FallbackPrediction(tc, now)
		span.SetAttributes(attribute.String("source", string(fb.Source)))
		return fb, nil
	}

	span.SetAttributes(attribute.String("source", string(pred.Source)))
	obs.SetSpanOk(span)
	return pred, nil
}

type oracleAnswer struct {
	text string
	err  error
}

// predictWithOracle is the fallible half of Predict.
func (p *TrafficPredictor) predictWithOracle(
	ctx context.Context,
	tc TrafficContext,
	now time.Time,
) (domain.TrafficPrediction, error) {
	if p.oracle == nil {
		return domain.TrafficPrediction{}, ports.ErrOracleNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// The oracle runs in its own goroutine so a client that ignores ctx
	// cannot hold the caller past the deadline.
	answers := make(chan oracleAnswer, 1)
	go func() {
		text, err := p.oracle.Generate(ctx, tc.Prompt())
		answers <- oracleAnswer{text: text, err: err}
	}()

	var ans oracleAnswer
	select {
	case ans = <-answers:
	case <-ctx.Done():
		return domain.TrafficPrediction{}, fmt.Errorf("query traffic oracle: %w", ctx.Err())
	}
	if ans.err != nil {
		return domain.TrafficPrediction{}, fmt.Errorf("query traffic oracle: %w", ans.err)
	}

	pred, err := ParseOraclePrediction(ans.text, tc.coordinates(), now)
	if err != nil {
		return domain.TrafficPrediction{}, fmt.Errorf("parse traffic oracle answer: %w", err)
	}
	return pred, nil
}

var errMalformedPrediction = errors.New("malformed prediction")

type oracleResponse struct {
	OverallDelay    *float64          `json:"overallDelay"`
	CongestionLevel *float64          `json:"congestionLevel"`
	Confidence      *float64          `json:"confidence"`
	Recommendations []json.RawMessage `json:"recommendations"`
}

// stripCodeFence removes a surrounding Markdown code fence, which generative
// models commonly add even when asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ParseOraclePrediction turns an oracle answer into a prediction with
// source=ai. Absent fields take their defaults; anything that is not a JSON
// object is rejected.
func ParseOraclePrediction(raw string, waypoints []domain.Coordinates, now time.Time) (domain.TrafficPrediction, error) {
	body := stripCodeFence(raw)
	if !strings.HasPrefix(body, "{") {
		return domain.TrafficPrediction{}, fmt.Errorf("%w: answer is not a JSON object", errMalformedPrediction)
	}

	var resp oracleResponse
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&resp); err != nil {
		return domain.TrafficPrediction{}, fmt.Errorf("%w: %v", errMalformedPrediction, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return domain.TrafficPrediction{}, fmt.Errorf("%w: trailing data after JSON object", errMalformedPrediction)
	}

	delay := defaultAIDelay
	if resp.OverallDelay != nil {
		delay = *resp.OverallDelay
		if delay < 0 {
			delay = 0
		}
	}
	congestion := defaultAICongestion
	if resp.CongestionLevel != nil {
		congestion = clamp01(*resp.CongestionLevel)
	}
	confidence := defaultAIConfidence
	if resp.Confidence != nil {
		confidence = clamp01(*resp.Confidence)
	}

	recs := make([]string, 0, len(resp.Recommendations))
	for _, r := range resp.Recommendations {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			recs = append(recs, s)
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, r); err == nil {
			recs = append(recs, compact.String())
		}
	}

	perSegment := 0.0
	if len(waypoints) > 0 {
		perSegment = delay / float64(len(waypoints))
	}

	return domain.TrafficPrediction{
		OverallDelay:    delay,
		CongestionLevel: congestion,
		Confidence:      confidence,
		Segments:        buildSegments(waypoints, perSegment, congestion, confidence),
		Recommendations: recs,
		Source:          domain.SourceAI,
		Timestamp:       now,
	}, nil
}

// FallbackPrediction is the deterministic, table-driven estimate.
func FallbackPrediction(tc TrafficContext, now time.Time) domain.TrafficPrediction {
	delay, congestion, perSegment := 5.0, 0.3, 1.0
	rec := "Normal traffic conditions expected"
	if tc.IsRushHour {
		delay, congestion, perSegment = 20.0, 0.8, 3.0
		rec = "Consider departing 20 minutes earlier due to rush hour traffic"
	}

	return domain.TrafficPrediction{
		OverallDelay:    delay,
		CongestionLevel: congestion,
		Confidence:      fallbackConfidence,
		Segments:        buildSegments(tc.coordinates(), perSegment, congestion, fallbackConfidence),
		Recommendations: []string{rec},
		Source:          domain.SourceFallback,
		Timestamp:       now,
	}
}

// buildSegments emits one segment per waypoint; the first segment is the
// degenerate start->start segment.
func buildSegments(waypoints []domain.Coordinates, delay, congestion, confidence float64) []domain.SegmentPrediction {
	out := make([]domain.SegmentPrediction, 0, len(waypoints))
	for i, wp := range waypoints {
		start := wp
		if i > 0 {
			start = waypoints[i-1]
		}
		out = append(out, domain.SegmentPrediction{
			SegmentID:       fmt.Sprintf("segment_%d", i),
			StartPoint:      start,
			EndPoint:        wp,
			PredictedDelay:  delay,
			CongestionLevel: congestion,
			Confidence:      confidence,
		})
	}
	return out
}
