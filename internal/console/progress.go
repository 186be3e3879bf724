package console

import (
	"fmt"
	"io"
	"math"
	"strings"
)

const progressBarWidth = 50

// ProgressBar redraws a single line in place as work advances. A bar
// with one step or less renders nothing; there is no progress to show.
type ProgressBar struct {
	out   io.Writer
	total int
}

func NewProgressBar(out io.Writer, total int) *ProgressBar {
	return &ProgressBar{out: out, total: total}
}

func (p *ProgressBar) Update(done int) {
	if p.total <= 1 {
		return
	}
	if done > p.total {
		done = p.total
	}
	if done < 0 {
		done = 0
	}

	ratio := float64(done) / float64(p.total)
	filled := int(math.Round(progressBarWidth * ratio))
	bar := strings.Repeat("█", filled) + strings.Repeat("-", progressBarWidth-filled)
	fmt.Fprintf(p.out, "\rProgress: |%s| %.1f%% complete", bar, ratio*100)
	if done == p.total {
		fmt.Fprintln(p.out)
	}
}
