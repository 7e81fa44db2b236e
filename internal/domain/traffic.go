package domain

import "time"

type PredictionSource string

const (
	SourceAI       PredictionSource = "ai"
	SourceFallback PredictionSource = "fallback"
)

type SegmentPrediction struct {
	SegmentID       string      `json:"segment_id"`
	StartPoint      Coordinates `json:"start_point"`
	EndPoint        Coordinates `json:"end_point"`
	PredictedDelay  float64     `json:"predicted_delay_min"`
	CongestionLevel float64     `json:"congestion_level"`
	Confidence      float64     `json:"confidence"`
}

// TrafficPrediction is always fully populated; Source tells whether the
// generative oracle or the deterministic table produced it.
type TrafficPrediction struct {
	OverallDelay    float64             `json:"overall_delay_min"`
	CongestionLevel float64             `json:"congestion_level"`
	Confidence      float64             `json:"confidence"`
	Segments        []SegmentPrediction `json:"segments"`
	Recommendations []string            `json:"recommendations"`
	Source          PredictionSource    `json:"source"`
	Timestamp       time.Time           `json:"timestamp"`
}

func (p TrafficPrediction) Clone() TrafficPrediction {
	p.Segments = append([]SegmentPrediction(nil), p.Segments...)
	p.Recommendations = append([]string(nil), p.Recommendations...)
	return p
}
