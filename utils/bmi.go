package utils

import (
	"errors"
	"math"
)

type BMIReading struct {
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// ReadBMI expects height in centimeters and weight in kilograms. The value is
// rounded to two decimals.
func ReadBMI(heightCm, weightKg float64) (BMIReading, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return BMIReading{}, errors.New("height and weight must be positive")
	}
	if heightCm < 50 || heightCm > 250 || weightKg < 10 || weightKg > 400 {
		return BMIReading{}, errors.New("height/weight out of plausible range")
	}

	h := heightCm / 100.0
	bmi := math.Round(weightKg/(h*h)*100) / 100
	return BMIReading{Value: bmi, Category: bmiCategory(bmi)}, nil
}

func bmiCategory(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25.0:
		return "Normal weight"
	case bmi < 30.0:
		return "Overweight"
	case bmi < 35.0:
		return "Obesity class I"
	case bmi < 40.0:
		return "Obesity class II"
	default:
		return "Obesity class III"
	}
}
