package main

import "time"

// dateCandidates holds the six date signals gathered for one photo. A zero
// time.Time means the candidate is absent.
type dateCandidates struct {
	FromFilename  time.Time
	FileModified  time.Time
	FileCreated   time.Time
	ExifDateTime  time.Time
	ExifOriginal  time.Time
	ExifDigitized time.Time
}

func (c dateCandidates) all() []time.Time {
	return []time.Time{
		c.FromFilename,
		c.FileModified,
		c.FileCreated,
		c.ExifDateTime,
		c.ExifOriginal,
		c.ExifDigitized,
	}
}

// reconcileSetDate picks the single best date from the candidates.
//
// The earliest sane candidate wins by default, since later timestamps usually
// reflect copy, edit or sync events rather than capture time. Two upgrades
// then apply, each only when the contender falls on the same calendar day as
// the current pick but carries a different time of day: first EXIF
// DateTimeOriginal, then the file modified time. The modified-time upgrade is
// skipped when DateTimeOriginal already won, so the trust ranking within a
// day is DateTimeOriginal > FileModified > earliest-of-the-rest. Cross-day
// disagreements always keep the earliest date.
func reconcileSetDate(c dateCandidates) time.Time {
	var set time.Time
	for _, t := range c.all() {
		if !saneDate(t) {
			continue
		}
		if set.IsZero() || t.Before(set) {
			set = t
		}
	}

	exifOriginal := saneOrZero(c.ExifOriginal)
	if !exifOriginal.IsZero() {
		set = chooseMorePreciseDate(set, exifOriginal)
	}

	modified := saneOrZero(c.FileModified)
	if !modified.IsZero() && !set.Equal(exifOriginal) {
		set = chooseMorePreciseDate(set, modified)
	}

	return set
}

// chooseMorePreciseDate prefers the challenger when it agrees with the
// current pick on the calendar day but differs in time of day. When either
// side is absent it returns whichever is present.
func chooseMorePreciseDate(set, challenger time.Time) time.Time {
	if set.IsZero() {
		return challenger
	}
	if challenger.IsZero() {
		return set
	}

	sy, sm, sd := set.Date()
	cy, cm, cd := challenger.Date()
	if sy == cy && sm == cm && sd == cd && !set.Equal(challenger) {
		return challenger
	}
	return set
}
