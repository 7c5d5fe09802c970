package bot

import (
	"fmt"

	"github.com/terraincognita07/sipwell/internal/models"
)

func intakeButton(label string, liters float64, category string) InlineButton {
	return InlineButton{
		Text:         label,
		CallbackData: fmt.Sprintf("%s|%g|%s", callbackIntake, liters, category),
	}
}

// IntakeKeyboard offers the usual glass and bottle sizes plus an
// "other drink" row for tea, juice and the like.
func IntakeKeyboard(messages map[string]string) *InlineKeyboard {
	otherLabel := messages["button_other_drink"]
	return &InlineKeyboard{
		InlineKeyboard: [][]InlineButton{
			{
				intakeButton("200 ml", 0.2, models.CategoryWater),
				intakeButton("250 ml", 0.25, models.CategoryWater),
				intakeButton("300 ml", 0.3, models.CategoryWater),
			},
			{
				intakeButton("500 ml", 0.5, models.CategoryWater),
				intakeButton("750 ml", 0.75, models.CategoryWater),
				intakeButton("1 l", 1.0, models.CategoryWater),
			},
			{
				intakeButton(otherLabel+" 250 ml", 0.25, models.CategoryOther),
				intakeButton(otherLabel+" 500 ml", 0.5, models.CategoryOther),
			},
		},
	}
}

// GoalKeyboard offers the common daily goals.
func GoalKeyboard() *InlineKeyboard {
	goalButton := func(liters float64) InlineButton {
		return InlineButton{
			Text:         fmt.Sprintf("%.1f l", liters),
			CallbackData: fmt.Sprintf("%s|%g", callbackGoal, liters),
		}
	}
	return &InlineKeyboard{
		InlineKeyboard: [][]InlineButton{
			{goalButton(1.5), goalButton(2.0)},
			{goalButton(2.5), goalButton(3.0)},
		},
	}
}
