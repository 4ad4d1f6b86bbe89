package ratelimit

import (
	"math"
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// formatSeconds arredonda para cima: Retry-After nunca deve convidar o cliente a voltar cedo.
func formatSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
