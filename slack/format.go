package slack

import (
	"context"
	"fmt"
	"strings"

	"mealprep/schedule"
)

// FormatTimeline renders a timeline as a Slack mrkdwn message, one line per step.
func FormatTimeline(title string, tl schedule.Timeline) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%s total)\n", title, clock(tl.TotalMinutes))
	for _, st := range tl.Steps {
		mark := "•"
		if st.Completed {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s `%s` %s %s", mark, clock(st.StartOffset), st.Action, strings.Join(st.RecipeIDs, " + "))
		if st.Kind == schedule.KindMiseEnPlace {
			b.WriteString(" _(shared prep)_")
		}
		fmt.Fprintf(&b, " %dm", st.EffectiveDuration())
		if len(st.Equipment) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(st.Equipment, ", "))
		}
		b.WriteByte('\n')
	}
	if c := FormatConflicts(tl.Conflicts); c != "" {
		b.WriteString(c)
	}
	return b.String()
}

// FormatConflicts lists resource conflicts; it returns "" when there are none.
func FormatConflicts(conflicts []schedule.ResourceConflict) string {
	if len(conflicts) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, ":warning: %d equipment conflict(s)\n", len(conflicts))
	for _, c := range conflicts {
		fmt.Fprintf(&b, "  %s (%s) %s-%s: %s\n",
			c.Equipment, c.Severity, clock(c.StartOffset), clock(c.EndOffset), strings.Join(c.StepIDs, ", "))
	}
	return b.String()
}

// PostTimeline formats and posts tl to channel.
func (c *Client) PostTimeline(ctx context.Context, channel, title string, tl schedule.Timeline) error {
	return c.PostMessage(ctx, channel, FormatTimeline(title, tl))
}

func clock(minutes int) string {
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
