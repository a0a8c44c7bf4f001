package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/eventrake/eventrake/pkg/models"
)

// buildPrompt assembles the single extraction prompt. The instructions pin
// down the failure modes that matter downstream: no invented dates, strict
// JSON, future-resolved year-less dates, and no decorative images.
func buildPrompt(pageText string, links []models.Link, filterInstructions string, currentDate time.Time) string {
	var b strings.Builder

	b.WriteString("You extract event listings from web page text.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Only report events that have an explicit date on the page. Never invent or guess dates.\n")
	b.WriteString("- If the page contains no events, return exactly [].\n")
	fmt.Fprintf(&b, "- Today is %s. When an event date has no year, resolve it to the next future occurrence.\n", currentDate.Format("2006-01-02"))
	b.WriteString("- Normalize all dates to ISO 8601: YYYY-MM-DD, or YYYY-MM-DDTHH:MM:SS when a time is given.\n")
	b.WriteString("- Include imageUrl only when an image is unambiguously tied to that specific event. Never use logos or decorative images.\n")
	b.WriteString("- Use the link list to attach each event's detail page as url when one clearly matches.\n")
	b.WriteString("- Respond with a JSON array only. No prose, no markdown fences.\n")
	b.WriteString("- Each item: {\"title\", \"startDate\", \"endDate\"?, \"location\"?, \"description\"?, \"url\"?, \"imageUrl\"?}\n")

	if filterInstructions != "" {
		b.WriteString("\nSource-specific instructions:\n")
		b.WriteString(filterInstructions)
		b.WriteString("\n")
	}

	if len(links) > 0 {
		b.WriteString("\nLinks on the page:\n")
		for _, l := range links {
			fmt.Fprintf(&b, "- %s -> %s\n", l.Text, l.Href)
		}
	}

	b.WriteString("\nPage text:\n")
	b.WriteString(pageText)

	return b.String()
}
