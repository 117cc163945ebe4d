package formatter

import (
	"fmt"
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// ConsistencyBar renders done out of days as one block per day, e.g.
// █████░░ 5/7. Green from 5 days, yellow from 3, red below.
func ConsistencyBar(done, days int) string {
	if days < 1 {
		days = 1
	}
	done = max(0, min(done, days))
	bar := strings.Repeat(filledBlock, done) + strings.Repeat(emptyBlock, days-done)

	style := StyleGreen
	switch pct := float64(done) / float64(days); {
	case pct < 3.0/7:
		style = StyleRed
	case pct < 5.0/7:
		style = StyleYellow
	}
	return fmt.Sprintf("%s %d/%d", style.Render(bar), done, days)
}
