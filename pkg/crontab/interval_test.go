package crontab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateIntervalAccepts(t *testing.T) {
	t.Parallel()
	for _, iv := range []string{
		"* * * * *",
		"0 2 * * *",
		"*/15 0 * * *",
		"0 0 1 1 *",
		"30 8 * * 1,3,5",
		"0 9-17 * * 1-5",
		"5 4 * * SUN",
		"0  2  *  *  *", // spacing is cosmetic
	} {
		assert.NoError(t, ValidateInterval(iv), "interval %q", iv)
	}
}

func TestValidateIntervalRejects(t *testing.T) {
	t.Parallel()
	for _, iv := range []string{
		"",
		"* * * *",        // four fields
		"* * * * * *",    // six fields
		"60 * * * *",     // minute out of range
		"* 24 * * *",     // hour out of range
		"* * 32 * *",     // dom out of range
		"* * * 13 *",     // month out of range
		"* * * * 8",      // dow out of range
		"@daily",         // descriptors are not five-field
		"not a cron spec",
	} {
		err := ValidateInterval(iv)
		assert.ErrorIs(t, err, ErrValidation, "interval %q", iv)
	}
}

func TestNormalizeInterval(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0 2 * * *", NormalizeInterval("  0   2 * *\t*  "))
}
