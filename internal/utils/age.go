package utils

import "time"

// AgeInYears computes whole calendar years between birthday and now,
// subtracting one when the birthday has not yet occurred this year.
func AgeInYears(birthday time.Time, now time.Time) int {
	years := now.Year() - birthday.Year()

	if now.Month() < birthday.Month() ||
		(now.Month() == birthday.Month() && now.Day() < birthday.Day()) {
		years--
	}

	return years
}
