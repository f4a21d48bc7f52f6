package parser

import (
	"fmt"
	"strings"
)

// EmailOp enumerates the Gmail operations the assistant performs.
type EmailOp string

const (
	EmailOpSearch     EmailOp = "search"
	EmailOpArchive    EmailOp = "archive"
	EmailOpSend       EmailOp = "send"
	EmailOpReply      EmailOp = "reply"
	EmailOpLabel      EmailOp = "label"
	EmailOpMarkRead   EmailOp = "markread"
	EmailOpMarkUnread EmailOp = "markunread"
)

// EmailAction is an executable Gmail request.
type EmailAction struct {
	Op EmailOp

	// Query is a Gmail search expression (search, archive, reply lookup).
	Query string

	// Send fields.
	To      []string
	Subject string
	Body    string

	// Label is the label name applied to matching threads.
	Label string
}

// Domain implements Action.
func (EmailAction) Domain() string { return "email" }

// buildEmailAction maps an email intent and its slots to an EmailAction.
func buildEmailAction(c Classification) (Action, error) {
	switch c.Intent {
	case IntentEmailSearch:
		query := c.Slot(SlotQuery)
		if query == "" {
			query = "in:inbox is:unread"
		} else {
			query = gmailQueryFor(query)
		}
		return EmailAction{Op: EmailOpSearch, Query: query}, nil

	case IntentEmailArchive:
		query := c.Slot(SlotQuery)
		if query == "" {
			return nil, fmt.Errorf("archive requires a search expression")
		}
		return EmailAction{Op: EmailOpArchive, Query: gmailQueryFor(query)}, nil

	case IntentEmailSend:
		to := splitRecipients(c.Slot(SlotTo))
		if len(to) == 0 {
			return nil, fmt.Errorf("send requires at least one recipient")
		}
		return EmailAction{
			Op:      EmailOpSend,
			To:      to,
			Subject: c.Slot(SlotSubject),
			Body:    c.Slot(SlotBody),
		}, nil

	case IntentEmailReply:
		body := c.Slot(SlotBody)
		if body == "" {
			return nil, fmt.Errorf("reply requires a body")
		}
		query := c.Slot(SlotQuery)
		if query == "" {
			// Reply to the newest inbox thread when none is named.
			query = "in:inbox"
		} else {
			query = gmailQueryFor(query)
		}
		return EmailAction{Op: EmailOpReply, Query: query, Body: body}, nil

	case IntentEmailLabel:
		query := c.Slot(SlotQuery)
		label := c.Slot(SlotLabel)
		if query == "" || label == "" {
			return nil, fmt.Errorf("labeling requires a search expression and a label name")
		}
		return EmailAction{Op: EmailOpLabel, Query: gmailQueryFor(query), Label: label}, nil

	case IntentEmailMarkRead:
		query := c.Slot(SlotQuery)
		if query == "" {
			return nil, fmt.Errorf("marking threads requires a search expression")
		}
		op := EmailOpMarkRead
		if c.Slot(SlotState) == "unread" {
			op = EmailOpMarkUnread
		}
		return EmailAction{Op: op, Query: gmailQueryFor(query)}, nil
	}

	return nil, fmt.Errorf("no email action for intent %q", c.Intent)
}

// gmailQueryFor turns a free-form slot value into a Gmail search expression.
// Bare email addresses become from: filters; anything else is passed through
// as full-text search.
func gmailQueryFor(value string) string {
	value = strings.TrimSpace(value)
	if emailAddrRe.MatchString(value) && !strings.Contains(value, " ") {
		return "from:" + value
	}
	return value
}

// splitRecipients splits a recipient slot on commas and "and".
func splitRecipients(value string) []string {
	if value == "" {
		return nil
	}
	value = strings.ReplaceAll(value, " and ", ",")
	parts := strings.Split(value, ",")

	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
