package gmail

import (
	gmail "google.golang.org/api/gmail/v1"
)

// ThreadSummary is a flattened view of a thread for API responses
type ThreadSummary struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	From     string `json:"from"`
	Date     string `json:"date"`
	Snippet  string `json:"snippet"`
	Messages int    `json:"messages"`
	Unread   bool   `json:"unread"`
}

// SummarizeThread builds a ThreadSummary from a full thread.
// Subject and sender come from the first message, the snippet from the last.
func SummarizeThread(t *gmail.Thread) ThreadSummary {
	summary := ThreadSummary{
		ID:       t.Id,
		Snippet:  t.Snippet,
		Messages: len(t.Messages),
	}

	if len(t.Messages) == 0 {
		return summary
	}

	first := t.Messages[0]
	summary.Subject = HeaderValue(first, "Subject")
	summary.From = HeaderValue(first, "From")
	summary.Date = HeaderValue(first, "Date")

	last := t.Messages[len(t.Messages)-1]
	if last.Snippet != "" {
		summary.Snippet = last.Snippet
	}

	for _, m := range t.Messages {
		for _, label := range m.LabelIds {
			if label == "UNREAD" {
				summary.Unread = true
			}
		}
	}

	return summary
}
