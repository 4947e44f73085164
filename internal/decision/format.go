package decision

import (
	"fmt"
	"math"
	"time"
)

// RetryPhrase renders the time until a rate-limit reset for end users. The
// minute count is rounded up, so anything over a minute reads "N minutes";
// at a minute or less the raw second count is shown as "N seconds". ok is
// false when the reset instant is unknown and the caller should fall back to
// generic "try again later" phrasing.
func RetryPhrase(reset *time.Time, now time.Time) (phrase string, ok bool) {
	if reset == nil {
		return "", false
	}

	seconds := int(math.Floor(reset.Sub(now).Seconds()))
	minutes := int(math.Ceil(float64(seconds) / 60))

	if minutes > 1 {
		return fmt.Sprintf("%d minutes", minutes), true
	}
	return fmt.Sprintf("%d seconds", seconds), true
}
