package tasks

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/terra-clan/diagnosis-engine/internal/models"
)

// word stems that mark recurring upkeep rather than a one-off action.
// A stem only matches at the start of a word, so "bookkeeping" is not upkeep.
var maintenanceStems = []string{
	"maintain", "keep", "regular", "monitor", "continue", "sustain",
	"поддерж", "регулярн", "продолжа", "сохраня", "отслежива", "мониторинг",
}

// IsMaintenance reports whether a task describes recurring upkeep
func IsMaintenance(t models.Task) bool {
	words := strings.FieldsFunc(strings.ToLower(t.Title+" "+t.Description), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, word := range words {
		for _, stem := range maintenanceStems {
			if strings.HasPrefix(word, stem) {
				return true
			}
		}
	}
	return false
}

// FormatGain renders the gain badge. A maintenance task with no gain shows "+%".
func FormatGain(t models.Task) string {
	if t.EfficiencyGain == 0 && IsMaintenance(t) {
		return "+%"
	}
	return fmt.Sprintf("+%d%%", t.EfficiencyGain)
}
