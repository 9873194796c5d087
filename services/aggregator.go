package services

import (
	"errors"
	"sort"
	"time"

	"dietica/models"
)

// WindowDays is the trailing lookback used by every prompt and report.
const WindowDays = 7

type LogKind string

const (
	KindFood     LogKind = "food"
	KindWater    LogKind = "water"
	KindExercise LogKind = "exercise"
)

// Measures is the set of numeric fields a log entry can carry. Fields a kind
// does not use stay zero.
type Measures struct {
	Calories        float64
	Fat             float64
	SaturatedFat    float64
	UnsaturatedFat  float64
	TransFat        float64
	Cholesterol     float64
	Sodium          float64
	Carbs           float64
	Protein         float64
	Sugar           float64
	Fiber           float64
	WaterML         float64
	ExerciseMinutes float64
}

func (m *Measures) Add(o Measures) {
	m.Calories += o.Calories
	m.Fat += o.Fat
	m.SaturatedFat += o.SaturatedFat
	m.UnsaturatedFat += o.UnsaturatedFat
	m.TransFat += o.TransFat
	m.Cholesterol += o.Cholesterol
	m.Sodium += o.Sodium
	m.Carbs += o.Carbs
	m.Protein += o.Protein
	m.Sugar += o.Sugar
	m.Fiber += o.Fiber
	m.WaterML += o.WaterML
	m.ExerciseMinutes += o.ExerciseMinutes
}

// LogEntry is a single user-submitted food, water or exercise record.
type LogEntry interface {
	OccurredAt() time.Time
	Values() Measures
	Label() string
}

type foodEntry struct{ *models.FoodLog }

func (e foodEntry) OccurredAt() time.Time { return e.LoggedAt }
func (e foodEntry) Label() string         { return e.Name }
func (e foodEntry) Values() Measures {
	return Measures{
		Calories:       orZero(e.Calories),
		Fat:            orZero(e.Fat),
		SaturatedFat:   orZero(e.SaturatedFat),
		UnsaturatedFat: orZero(e.UnsaturatedFat),
		TransFat:       orZero(e.TransFat),
		Cholesterol:    orZero(e.Cholesterol),
		Sodium:         orZero(e.Sodium),
		Carbs:          orZero(e.Carbs),
		Protein:        orZero(e.Protein),
		Sugar:          orZero(e.Sugar),
		Fiber:          orZero(e.Fiber),
	}
}

type waterEntry struct{ *models.WaterLog }

func (e waterEntry) OccurredAt() time.Time { return e.LoggedAt }
func (e waterEntry) Label() string         { return "" }
func (e waterEntry) Values() Measures      { return Measures{WaterML: e.AmountML} }

type exerciseEntry struct{ *models.ExerciseLog }

func (e exerciseEntry) OccurredAt() time.Time { return e.LoggedAt }
func (e exerciseEntry) Label() string         { return e.Name }
func (e exerciseEntry) Values() Measures      { return Measures{ExerciseMinutes: e.DurationMinutes} }

func FoodEntries(logs []models.FoodLog) []LogEntry {
	out := make([]LogEntry, len(logs))
	for i := range logs {
		out[i] = foodEntry{&logs[i]}
	}
	return out
}

func WaterEntries(logs []models.WaterLog) []LogEntry {
	out := make([]LogEntry, len(logs))
	for i := range logs {
		out[i] = waterEntry{&logs[i]}
	}
	return out
}

func ExerciseEntries(logs []models.ExerciseLog) []LogEntry {
	out := make([]LogEntry, len(logs))
	for i := range logs {
		out[i] = exerciseEntry{&logs[i]}
	}
	return out
}

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// DailySummary is the same-day aggregation of entries of one kind.
type DailySummary struct {
	Date    time.Time // midnight in the aggregator's zone
	Entries int
	Totals  Measures
	Labels  []string
}

// Window is a trailing time range: Start is exclusive, End inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

func TrailingWindow(now time.Time, days int) Window {
	return Window{Start: now.AddDate(0, 0, -days), End: now}
}

func (w Window) Contains(t time.Time) bool {
	return t.After(w.Start) && !t.After(w.End)
}

// Aggregator buckets entries by calendar day in a fixed zone.
type Aggregator struct {
	loc *time.Location
}

func NewAggregator(loc *time.Location) (*Aggregator, error) {
	if loc == nil {
		return nil, errors.New("aggregator: time zone is required")
	}
	return &Aggregator{loc: loc}, nil
}

// DayStart returns midnight of t's calendar day in the aggregator's zone.
func (a *Aggregator) DayStart(t time.Time) time.Time {
	tt := t.In(a.loc)
	return time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, a.loc)
}

// Aggregate returns one summary per calendar day that has at least one entry,
// in chronological order. The input slice is not modified.
func (a *Aggregator) Aggregate(entries []LogEntry) []DailySummary {
	sorted := make([]LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt().Before(sorted[j].OccurredAt())
	})

	out := make([]DailySummary, 0)
	index := make(map[string]int)
	for _, e := range sorted {
		day := a.DayStart(e.OccurredAt())
		key := day.Format(time.DateOnly)
		i, ok := index[key]
		if !ok {
			out = append(out, DailySummary{Date: day})
			i = len(out) - 1
			index[key] = i
		}
		out[i].Entries++
		out[i].Totals.Add(e.Values())
		if l := e.Label(); l != "" {
			out[i].Labels = append(out[i].Labels, l)
		}
	}
	return out
}
