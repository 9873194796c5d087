package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"dietica/models"
)

type AssessmentContext struct {
	AgeYears      int
	CalorieTarget float64 // 0 means 2000 kcal
}

type WarningSeverity string

const (
	Info    WarningSeverity = "info"
	Caution WarningSeverity = "caution"
	High    WarningSeverity = "high"
)

// Warning is one finding about a logged food item.
type Warning struct {
	Code           string          `json:"code"`
	Severity       WarningSeverity `json:"severity"`
	Message        string          `json:"message"`
	PercentOfLimit float64         `json:"percent_of_limit,omitempty"`
}

// AgeOn returns whole years between birthdate and now; 0 when unknown.
func AgeOn(birthdate *time.Time, now time.Time) int {
	if birthdate == nil || birthdate.IsZero() || birthdate.After(now) {
		return 0
	}
	age := now.Year() - birthdate.Year()
	if now.YearDay() < birthdate.YearDay() {
		age--
	}
	return age
}

// AssessFoodLog applies rule-of-thumb dietary limits to one serving. Nutrients
// the log does not carry are skipped.
func AssessFoodLog(f *models.FoodLog, ctx AssessmentContext) []Warning {
	var ws []Warning
	add := func(code string, sev WarningSeverity, pct float64, format string, args ...any) {
		ws = append(ws, Warning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...), PercentOfLimit: round2(pct)})
	}

	kcal := value(f.Calories)
	carb, prot, fat := value(f.Carbs), value(f.Protein), value(f.Fat)
	if kcal <= 0 {
		kcal = 4*carb + 4*prot + 9*fat
	}
	kcalTarget := ctx.CalorieTarget
	if kcalTarget <= 0 {
		kcalTarget = 2000
	}

	// Sugars: <10% of the item's calories, <10% of daily calories overall.
	if sugar := value(f.Sugar); sugar > 0 && kcal > 0 {
		if pct := sugar * 4 / kcal; pct >= 0.10 {
			add("sugars_high_item", Caution, 0, "High sugars for this item (%.0f%% of its calories).", pct*100)
		}
		if share := sugar / (0.10 * kcalTarget / 4); share >= 0.20 {
			add("sugars_high_daily_share", severityFor(share), share*100,
				"This serving provides ~%.0f%% of the daily sugar limit.", share*100)
		}
	}

	if sat := value(f.SaturatedFat); sat > 0 {
		if kcal > 0 {
			if pct := sat * 9 / kcal; pct >= 0.10 {
				add("sat_fat_high_item", Caution, 0, "High saturated fat for this item (%.0f%% of its calories).", pct*100)
			}
		}
		if share := sat / (0.10 * kcalTarget / 9); share >= 0.20 {
			add("sat_fat_high_daily_share", severityFor(share), share*100,
				"This serving provides ~%.0f%% of the daily saturated-fat limit.", share*100)
		}
	} else if looksHighSatSource(strings.ToLower(f.Name)) {
		add("sat_fat_source_heuristic", Info, 0, "Likely high in saturated fat; consider leaner cuts or plant oils.")
	}

	if trans := value(f.TransFat); trans > 0 {
		sev := Caution
		if trans >= 0.5 {
			sev = High
		}
		add("trans_fat_present", sev, 0, "Contains trans fat (%.2fg); keep intake as low as possible.", trans)
	}

	if sodium := value(f.Sodium); sodium > 0 {
		if share := sodium / sodiumLimitByAge(ctx.AgeYears); share >= 0.20 {
			add("sodium_high", severityFor(share), share*100,
				"High sodium for one serving (~%.0f%% of the daily limit).", share*100)
		}
		if kcal > 0 && sodium/kcal*100 >= 400 {
			add("sodium_dense", Info, 0, "High sodium density relative to calories; consider lower-sodium alternatives.")
		}
	}

	if chol := value(f.Cholesterol); chol >= 100 {
		add("cholesterol_high", Caution, chol/300*100, "High dietary cholesterol for one serving (%.0fmg).", chol)
	}

	if fiber := value(f.Fiber); kcal > 0 && carb >= 15 && fiber > 0 {
		if fiber/kcal*100 < 1.0 {
			add("fiber_low_nudge", Info, 0, "Low dietary fiber for a carbohydrate food; consider whole grains, fruits or vegetables.")
		}
	}

	if isLikelyRefinedGrain(strings.ToLower(f.Name)) {
		add("refined_grain_nudge", Info, 0, "Refined-grain item; consider a whole-grain option.")
	}
	return ws
}

// WarningMessages flattens warnings for storage on the log row.
func WarningMessages(ws []Warning) string {
	msgs := make([]string, len(ws))
	for i, w := range ws {
		msgs[i] = w.Message
	}
	return strings.Join(msgs, "\n")
}

func severityFor(share float64) WarningSeverity {
	if share >= 0.40 {
		return High
	}
	return Caution
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func sodiumLimitByAge(age int) float64 {
	switch {
	case age > 0 && age <= 3:
		return 1200 // mg/day
	case age >= 4 && age <= 8:
		return 1500
	case age >= 9 && age <= 13:
		return 1800
	default:
		return 2300
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func isLikelyRefinedGrain(name string) bool {
	return containsAny(name, "white bread", "white rice", "refined flour", "all-purpose flour", "maida", "cake", "pastry", "cracker", "biscuit")
}

func looksHighSatSource(name string) bool {
	return containsAny(name,
		"butter", "ghee", "cream", "cheese", "bacon", "sausage", "shortening",
		"palm oil", "palm kernel", "coconut oil", "lard")
}
