package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"dietica/models"
	"dietica/utils"
)

const (
	NoWaterLogsPlaceholder    = "No water logs found for the past week. Assume normal water intake."
	NoExerciseLogsPlaceholder = "No exercise logs found for the past week."
)

// PromptFacts is everything the compiler needs, already fetched.
type PromptFacts struct {
	Name     string
	Profile  *models.UserProfile
	Target   *models.UserTarget
	Food     []DailySummary
	Water    []DailySummary
	Exercise []DailySummary
}

// Missing profile, target or food history fail fast with a PreconditionError.
// Missing water or exercise history render a placeholder sentence instead.
func (f PromptFacts) sections() (string, error) {
	if f.Profile == nil {
		return "", PreconditionMissing("profile", "please complete your physical information in profile")
	}
	if f.Target == nil {
		return "", PreconditionMissing("target", "please complete your weight target and duration")
	}
	if len(f.Food) == 0 {
		return "", PreconditionMissing("foodLogs", "please input at least 1 food log for the past week")
	}

	var b strings.Builder
	b.WriteString("User Physical\n")
	b.WriteString(renderProfile(f.Name, f.Profile))
	b.WriteString("\n\nUser Target\n")
	b.WriteString(renderTarget(f.Target))
	b.WriteString("\n\nFood Log (7-day history)\n")
	b.WriteString(renderFood(f.Food))
	b.WriteString("\n\nWater Log (7-day history)\n")
	b.WriteString(renderWater(f.Water))
	b.WriteString("\n\nExercise Log (7-day history)\n")
	b.WriteString(renderExercise(f.Exercise))
	return b.String(), nil
}

// CompileRecommendationPrompt renders the to-do generation prompt. Output is a
// pure function of the facts.
func CompileRecommendationPrompt(f PromptFacts) (string, error) {
	body, err := f.sections()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Based on this user's information, give a personalized recommendation on three topics: Food, Exercise and Water.\n\n")
	b.WriteString(body)
	b.WriteString("\n\nTask: write one recommendation per category (food, exercise, water), each with a short title and a description.\n")
	b.WriteString("Keep it short and concise.\n\n")
	b.WriteString("Food description format (adjust to the user data):\n")
	b.WriteString("Today Target Calories: (e.g. 1800 kcal)\nCarbs: (e.g. 300 g)\nProtein: (e.g. 60 g)\nFat: (e.g. 50 g)\nSugar: (e.g. 50 g)\n\n")
	b.WriteString("Exercise description format (adjust to the user data):\n")
	b.WriteString("This Week Target Cardio: (e.g. 2 more sessions)\nWeightlifting: (e.g. 1 more session)\nYoga: (e.g. you have done enough, well done!)\n\n")
	b.WriteString("Water description format (adjust to the user data):\n")
	b.WriteString("(e.g. Drink another 5 glasses of water today)")
	return b.String(), nil
}

// CompileChatInstruction renders the chatbot system instruction from the same facts.
func CompileChatInstruction(f PromptFacts) (string, error) {
	body, err := f.sections()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("You are a diet and exercise advisor in a nutrition tracking app. ")
	b.WriteString("Here is the information the user entered in the app:\n\n")
	b.WriteString(body)
	b.WriteString("\n\nDo not criticize the information above. ")
	b.WriteString("If there is not enough data, start with a general recommendation, then ask the user for more. ")
	b.WriteString("Do not ask for data that is hard to find or calculate, such as missing cholesterol or fiber values or incomplete exercise logs.")
	return b.String(), nil
}

func renderProfile(name string, p *models.UserProfile) string {
	lines := make([]string, 0, 8)
	if name != "" {
		lines = append(lines, "Name: "+name)
	}
	lines = append(lines,
		"Weight: "+num(p.Weight)+"kg",
		"Height: "+num(p.Height)+"cm",
	)
	if bmi, err := utils.ReadBMI(p.Height, p.Weight); err == nil {
		lines = append(lines, fmt.Sprintf("BMI: %s (%s)", num(bmi.Value), bmi.Category))
	} else {
		lines = append(lines, "BMI: unknown")
	}
	lines = append(lines,
		"Gender: "+orUnknown(p.Gender),
		"Medicine: "+orNone(p.Medicine),
		"Illnesses: "+orNone(p.Illnesses),
		"Activity levels: "+orUnknown(p.ActivityLevel),
	)
	return strings.Join(lines, "\n")
}

func renderTarget(t *models.UserTarget) string {
	return "Target Weight: " + num(t.TargetWeight) + "kg\n" +
		"Duration: " + strconv.Itoa(t.DurationWeeks) + " weeks"
}

func renderFood(days []DailySummary) string {
	lines := make([]string, 0, len(days))
	for _, d := range days {
		m := d.Totals
		lines = append(lines, "Date: "+d.Date.Format(time.DateOnly)+"\n"+
			"Calories: "+num(m.Calories)+"kcal; "+
			"Fat: "+num(m.Fat)+"g; "+
			"Saturated Fat: "+num(m.SaturatedFat)+"g; "+
			"Unsaturated Fat: "+num(m.UnsaturatedFat)+"g; "+
			"Trans Fat: "+num(m.TransFat)+"g; "+
			"Cholesterol: "+num(m.Cholesterol)+"mg; "+
			"Sodium: "+num(m.Sodium)+"mg; "+
			"Carbs: "+num(m.Carbs)+"g; "+
			"Protein: "+num(m.Protein)+"g; "+
			"Sugar: "+num(m.Sugar)+"g; "+
			"Fiber: "+num(m.Fiber)+"g")
	}
	return strings.Join(lines, "\n")
}

func renderWater(days []DailySummary) string {
	if len(days) == 0 {
		return NoWaterLogsPlaceholder
	}
	lines := make([]string, 0, len(days))
	for _, d := range days {
		lines = append(lines, "Date: "+d.Date.Format(time.DateOnly)+"\nWater: "+num(d.Totals.WaterML)+"ml")
	}
	return strings.Join(lines, "\n")
}

func renderExercise(days []DailySummary) string {
	if len(days) == 0 {
		return NoExerciseLogsPlaceholder
	}
	lines := make([]string, 0, len(days))
	for _, d := range days {
		line := "Date: " + d.Date.Format(time.DateOnly) + "\nExercise: " + num(d.Totals.ExerciseMinutes) + " minutes"
		if len(d.Labels) > 0 {
			line += " (" + strings.Join(d.Labels, ", ") + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// num prints v rounded to two decimals without trailing zeros.
func num(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
