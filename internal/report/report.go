package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	logx "dailypush/pkg/logx"
)

// Report is the message handed to the notifier.
type Report struct {
	Title string
	Body  string
}

// Section renders one fragment of the body. Render queries its provider(s)
// exactly once and returns the formatted text, including trailing blank line.
type Section interface {
	Name() string
	Render(ctx context.Context, now time.Time) (string, error)
}

// Composer renders sections in order and concatenates the fragments.
type Composer struct {
	Job      string
	Title    func(now time.Time) string
	Sections []Section

	Log logx.Logger
}

// Compose runs every section in slice order. The first failing section aborts
// the run: the returned Report is empty, never partial.
func (c *Composer) Compose(ctx context.Context, now time.Time) (Report, error) {
	log := c.Log
	if log.IsZero() {
		log = logx.Nop()
	}

	var body strings.Builder
	for _, s := range c.Sections {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		start := time.Now()
		frag, err := s.Render(ctx, now)
		if err != nil {
			return Report{}, fmt.Errorf("%s: section %s: %w", c.Job, s.Name(), err)
		}
		body.WriteString(frag)
		log.Debug("section rendered", logx.String("section", s.Name()), logx.Int("bytes", len(frag)), logx.Duration("took", time.Since(start)))
	}

	title := ""
	if c.Title != nil {
		title = c.Title(now)
	}
	return Report{Title: title, Body: body.String()}, nil
}

// SectionNames lists the composer's sections in render order.
func (c *Composer) SectionNames() []string {
	out := make([]string, 0, len(c.Sections))
	for _, s := range c.Sections {
		out = append(out, s.Name())
	}
	return out
}
