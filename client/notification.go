package client

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hooknotify/hooknotify/event"
)

/* formatNotification renders an event into the title and body shown to
 * the user. Additional data is listed line by line, keys sorted so the
 * output is stable.
 */
func formatNotification(ev event.Event) (title, body string) {
	title = "Webhook: " + ev.Type

	body = ev.Message
	if body == "" {
		body = "No message"
	}

	if len(ev.AdditionalData) > 0 {
		keys := make([]string, 0, len(ev.AdditionalData))
		for k := range ev.AdditionalData {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		sb.WriteString(body)
		sb.WriteString("\n\nAdditional data:")
		for _, k := range keys {
			fmt.Fprintf(&sb, "\n%s: %v", k, ev.AdditionalData[k])
		}
		body = sb.String()
	}

	return title, body
}
