package services

import (
	"fleet-route-optimizer/internal/domain"
	"fmt"
)

type TimeContext string

const (
	TimeMorning   TimeContext = "morning"
	TimeAfternoon TimeContext = "afternoon"
	TimeEvening   TimeContext = "evening"
	TimeNight     TimeContext = "night"
)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// HistoricalPattern is the typical congestion (0-1) and delay (minutes) for a
// time bucket.
type HistoricalPattern struct {
	Congestion   float64 `json:"congestion"`
	AverageDelay float64 `json:"average_delay_min"`
}

var historicalPatterns = map[bool]map[TimeContext]HistoricalPattern{
	false: {
		TimeMorning:   {Congestion: 0.8, AverageDelay: 25},
		TimeAfternoon: {Congestion: 0.6, AverageDelay: 15},
		TimeEvening:   {Congestion: 0.9, AverageDelay: 30},
		TimeNight:     {Congestion: 0.2, AverageDelay: 5},
	},
	true: {
		TimeMorning:   {Congestion: 0.3, AverageDelay: 8},
		TimeAfternoon: {Congestion: 0.5, AverageDelay: 12},
		TimeEvening:   {Congestion: 0.4, AverageDelay: 10},
		TimeNight:     {Congestion: 0.1, AverageDelay: 3},
	},
}

type WaypointContext struct {
	ID          int                `json:"id"`
	Coordinates domain.Coordinates `json:"coordinates"`
	Type        string             `json:"type"`
}

// TrafficContext is everything the predictor knows about a request before
// asking anyone: the waypoints and the temporal bucket they fall in.
type TrafficContext struct {
	Waypoints   []WaypointContext `json:"waypoints"`
	Hour        int               `json:"hour"`
	DayOfWeek   int               `json:"day_of_week"`
	DayName     string            `json:"day_name"`
	TimeContext TimeContext       `json:"time_context"`
	IsWeekend   bool              `json:"is_weekend"`
	IsRushHour  bool              `json:"is_rush_hour"`
	Historical  HistoricalPattern `json:"historical"`
}

// TimeContextFor buckets an hour of day (0-23).
func TimeContextFor(hour int) TimeContext {
	switch {
	case hour >= 6 && hour < 12:
		return TimeMorning
	case hour >= 12 && hour < 17:
		return TimeAfternoon
	case hour >= 17 && hour < 21:
		return TimeEvening
	default:
		return TimeNight
	}
}

// IsRushHour is true for 7-9 and 17-19, both ends inclusive.
func IsRushHour(hour int) bool {
	return (hour >= 7 && hour <= 9) || (hour >= 17 && hour <= 19)
}

// IsWeekend is true for Sunday (0) and Saturday (6).
func IsWeekend(dayOfWeek int) bool {
	return dayOfWeek == 0 || dayOfWeek == 6
}

func HistoricalPatternFor(hour, dayOfWeek int) HistoricalPattern {
	return historicalPatterns[IsWeekend(dayOfWeek)][TimeContextFor(hour)]
}

// BuildTrafficContext derives the temporal context for hour (0-23) and
// dayOfWeek (0=Sunday .. 6=Saturday).
func BuildTrafficContext(waypoints []domain.Coordinates, hour, dayOfWeek int) (TrafficContext, error) {
	if hour < 0 || hour > 23 {
		return TrafficContext{}, &domain.ValidationError{Field: "time_of_day", Reason: fmt.Sprintf("hour %d out of range [0, 23]", hour)}
	}
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return TrafficContext{}, &domain.ValidationError{Field: "day_of_week", Reason: fmt.Sprintf("day %d out of range [0, 6]", dayOfWeek)}
	}

	wps := make([]WaypointContext, 0, len(waypoints))
	for i, wp := range waypoints {
		kind := "delivery"
		if i == 0 {
			kind = "start"
		}
		wps = append(wps, WaypointContext{ID: i, Coordinates: wp, Type: kind})
	}

	return TrafficContext{
		Waypoints:   wps,
		Hour:        hour,
		DayOfWeek:   dayOfWeek,
		DayName:     dayNames[dayOfWeek],
		TimeContext: TimeContextFor(hour),
		IsWeekend:   IsWeekend(dayOfWeek),
		IsRushHour:  IsRushHour(hour),
		Historical:  HistoricalPatternFor(hour, dayOfWeek),
	}, nil
}

// Prompt renders the natural-language request sent to the traffic oracle.
func (tc TrafficContext) Prompt() string {
	return fmt.Sprintf(`Analyze traffic conditions and predict delays for a delivery route with the following context:

Route Details:
- Number of waypoints: %d
- Day: %s
- Time: %d:00 (%s)
- Is Weekend: %t
- Is Rush Hour: %t

Historical Patterns:
- Average congestion level: %g
- Average delay: %g minutes

Respond with a single JSON object with these fields:
- "overallDelay": overall route delay estimate in minutes
- "congestionLevel": congestion level on a 0-1 scale
- "confidence": confidence score on a 0-1 scale
- "recommendations": array of short strings (departure time adjustments, alternative routes)

Format the response as valid JSON only, no additional text.
`,
		len(tc.Waypoints), tc.DayName, tc.Hour, tc.TimeContext, tc.IsWeekend, tc.IsRushHour,
		tc.Historical.Congestion, tc.Historical.AverageDelay,
	)
}

func (tc TrafficContext) coordinates() []domain.Coordinates {
	out := make([]domain.Coordinates, 0, len(tc.Waypoints))
	for _, wp := range tc.Waypoints {
		out = append(out, wp.Coordinates)
	}
	return out
}
