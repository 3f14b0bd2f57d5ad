package crontab

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// intervalParser accepts exactly the five-field crontab grammar
// (minute hour dom month dow). Descriptors like @daily are rejected on
// purpose: the native stores only understand explicit fields.
var intervalParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateInterval checks interval against the five-field grammar. Each field
// may be a literal, *, a range (a-b), a step (*/n) or a comma-list thereof.
// Wrong field counts and out-of-range values fail with ErrValidation.
//
// The string is stored verbatim when valid; queries compare intervals
// exactly as given, so "0 2 * * *" and "00 2 * * *" are distinct entries.
func ValidateInterval(interval string) error {
	fields := strings.Fields(interval)
	if len(fields) != 5 {
		return fmt.Errorf("%w: interval %q has %d fields, want 5", ErrValidation, interval, len(fields))
	}
	if _, err := intervalParser.Parse(strings.Join(fields, " ")); err != nil {
		return fmt.Errorf("%w: interval %q: %v", ErrValidation, interval, err)
	}
	return nil
}

// NormalizeInterval collapses whitespace runs between fields. Entries store
// the normalized form so that exact-match queries and round-trips are not
// sensitive to cosmetic spacing.
func NormalizeInterval(interval string) string {
	return strings.Join(strings.Fields(interval), " ")
}
