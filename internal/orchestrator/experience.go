package orchestrator

import (
	"regexp"
	"strconv"
)

const maxPlausibleYears = 60

var yearsRe = regexp.MustCompile(`(?i)\b(\d{1,2}(?:\.\d)?)\s*\+?\s*(?:years?|yrs?)\b`)

// ExtractExperience finds the largest "N years" mention in an introduction.
func ExtractExperience(text string) (float64, bool) {
	best, found := 0.0, false
	for _, m := range yearsRe.FindAllStringSubmatch(text, -1) {
		years, err := strconv.ParseFloat(m[1], 64)
		if err != nil || years > maxPlausibleYears {
			continue
		}
		if !found || years > best {
			best, found = years, true
		}
	}
	return best, found
}
