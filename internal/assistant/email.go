package assistant

import (
	"context"
	"fmt"
	"time"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/clavrr/clavr/internal/gmail"
	"github.com/clavrr/clavr/internal/instrumentation"
	"github.com/clavrr/clavr/internal/parser"
)

// searchResultLimit caps how many threads a search returns.
const searchResultLimit = 20

var errGmailUnconfigured = fmt.Errorf("gmail is not configured for this server")

// runEmail executes a Gmail action.
func (a *Assistant) runEmail(ctx context.Context, act parser.EmailAction) (*Result, error) {
	if a.gmail == nil {
		return nil, errGmailUnconfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, string(act.Op))
	defer span.End()

	start := time.Now()
	var result *Result
	var err error

	switch act.Op {
	case parser.EmailOpSearch:
		result, err = a.searchEmail(act)
	case parser.EmailOpArchive:
		result, err = a.archiveEmail(act)
	case parser.EmailOpSend:
		result, err = a.sendEmail(act)
	case parser.EmailOpReply:
		result, err = a.replyEmail(act)
	case parser.EmailOpLabel:
		result, err = a.labelEmail(act)
	case parser.EmailOpMarkRead, parser.EmailOpMarkUnread:
		result, err = a.markEmail(act)
	default:
		return nil, fmt.Errorf("unsupported email operation %q", act.Op)
	}

	a.recordGoogleOp(ctx, instrumentation.ServiceGmail, string(act.Op), start, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	return result, err
}

func (a *Assistant) searchEmail(act parser.EmailAction) (*Result, error) {
	threads, err := a.gmail.ListThreads(act.Query, searchResultLimit)
	if err != nil {
		return nil, fmt.Errorf("email search failed: %w", err)
	}

	summaries := make([]gmail.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		summaries = append(summaries, gmail.SummarizeThread(t))
	}
	return &Result{
		Message: fmt.Sprintf("Found %d matching threads.", len(summaries)),
		Data:    summaries,
	}, nil
}

func (a *Assistant) archiveEmail(act parser.EmailAction) (*Result, error) {
	archived := 0
	err := a.gmail.ForeachThread(act.Query, func(t *gmailapi.Thread) error {
		if err := a.gmail.ArchiveThread(t.Id); err != nil {
			return fmt.Errorf("failed to archive thread %s: %w", t.Id, err)
		}
		archived++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("Archived %d threads.", archived),
		Data:    map[string]int{"archived": archived},
	}, nil
}

// markEmail flips the read state of every thread matching the query.
func (a *Assistant) markEmail(act parser.EmailAction) (*Result, error) {
	mark := a.gmail.MarkThreadRead
	state := "read"
	if act.Op == parser.EmailOpMarkUnread {
		mark = a.gmail.MarkThreadUnread
		state = "unread"
	}

	marked := 0
	err := a.gmail.ForeachThread(act.Query, func(t *gmailapi.Thread) error {
		if err := mark(t.Id); err != nil {
			return fmt.Errorf("failed to mark thread %s: %w", t.Id, err)
		}
		marked++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("Marked %d threads as %s.", marked, state),
		Data:    map[string]any{"marked": marked, "state": state},
	}, nil
}

// labelEmail applies a label to every thread matching the query. The label
// is created on first use.
func (a *Assistant) labelEmail(act parser.EmailAction) (*Result, error) {
	labelID, err := a.gmail.EnsureLabel(act.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve label %q: %w", act.Label, err)
	}

	labeled := 0
	err = a.gmail.ForeachThread(act.Query, func(t *gmailapi.Thread) error {
		if err := a.gmail.ModifyThreadLabels(t.Id, []string{labelID}, nil); err != nil {
			return fmt.Errorf("failed to label thread %s: %w", t.Id, err)
		}
		labeled++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("Labeled %d threads as %q.", labeled, act.Label),
		Data:    map[string]any{"labeled": labeled, "label": act.Label},
	}, nil
}

func (a *Assistant) sendEmail(act parser.EmailAction) (*Result, error) {
	id, err := a.gmail.SendEmail(&gmail.EmailMessage{
		To:      act.To,
		Subject: act.Subject,
		Body:    act.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	return &Result{
		Message: fmt.Sprintf("Email sent to %s.", act.To[0]),
		Data:    map[string]string{"message_id": id},
	}, nil
}

// replyEmail replies to the newest message of the newest thread matching the
// action's query.
func (a *Assistant) replyEmail(act parser.EmailAction) (*Result, error) {
	threads, err := a.gmail.ListThreads(act.Query, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to find thread to reply to: %w", err)
	}
	if len(threads) == 0 {
		return nil, fmt.Errorf("no thread matches %q", act.Query)
	}

	// The list call returns thread stubs; fetch the full thread for the
	// message to reply to.
	thread, err := a.gmail.GetThread(threads[0].Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threads[0].Id, err)
	}
	if len(thread.Messages) == 0 {
		return nil, fmt.Errorf("thread %s has no messages", thread.Id)
	}
	last := thread.Messages[len(thread.Messages)-1]

	id, err := a.gmail.ReplyToEmail(last.Id, thread.Id, act.Body, nil, nil, false)
	if err != nil {
		return nil, fmt.Errorf("failed to send reply: %w", err)
	}
	return &Result{
		Message: "Reply sent.",
		Data:    map[string]string{"message_id": id, "thread_id": thread.Id},
	}, nil
}
