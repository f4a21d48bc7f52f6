package gmail

import (
	"context"
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/clavrr/clavr/internal/google"
)

// Client wraps the Gmail Users service
type Client struct {
	svc       *gmail.UsersService
	account   string // The account this client is associated with
	signature string // Cached signature for this account
}

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// NewClientForAccount creates a new Gmail client with OAuth2 authentication for a specific account
func NewClientForAccount(ctx context.Context, auth *google.Auth, account string) (*Client, error) {
	client, err := auth.HTTPClientForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:     svc.Users,
		account: account,
	}, nil
}

// ArchiveThread archives a thread by removing the INBOX label
func (c *Client) ArchiveThread(tid string) error {
	_, err := c.svc.Threads.Modify("me", tid, &gmail.ModifyThreadRequest{
		RemoveLabelIds: []string{"INBOX"},
	}).Do()
	return err
}

// MarkThreadRead removes the UNREAD label from a thread
func (c *Client) MarkThreadRead(tid string) error {
	_, err := c.svc.Threads.Modify("me", tid, &gmail.ModifyThreadRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Do()
	return err
}

// MarkThreadUnread adds the UNREAD label to a thread
func (c *Client) MarkThreadUnread(tid string) error {
	_, err := c.svc.Threads.Modify("me", tid, &gmail.ModifyThreadRequest{
		AddLabelIds: []string{"UNREAD"},
	}).Do()
	return err
}

// ModifyThreadLabels adds and removes arbitrary labels on a thread
func (c *Client) ModifyThreadLabels(tid string, add, remove []string) error {
	_, err := c.svc.Threads.Modify("me", tid, &gmail.ModifyThreadRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}).Do()
	return err
}

// ListLabels lists all Gmail labels for the user
func (c *Client) ListLabels() ([]*gmail.Label, error) {
	resp, err := c.svc.Labels.List("me").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	return resp.Labels, nil
}

// EnsureLabel resolves a label name to its ID, creating the label when it
// does not exist yet. Matching is case-insensitive.
func (c *Client) EnsureLabel(name string) (string, error) {
	labels, err := c.ListLabels()
	if err != nil {
		return "", err
	}
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return l.Id, nil
		}
	}

	created, err := c.svc.Labels.Create("me", &gmail.Label{Name: name}).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create label %q: %w", name, err)
	}
	return created.Id, nil
}

// ForeachThread iterates over all threads matching the query
func (c *Client) ForeachThread(q string, fn func(*gmail.Thread) error) error {
	pageToken := ""
	for {
		req := c.svc.Threads.List("me").Q(q)
		if pageToken != "" {
			req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return err
		}
		for _, t := range res.Threads {
			if err := fn(t); err != nil {
				return err
			}
		}
		if res.NextPageToken == "" {
			return nil
		}
		pageToken = res.NextPageToken
	}
}

// ListThreads lists threads matching the query with pagination
// It will fetch up to maxResults threads, making multiple API calls if necessary
func (c *Client) ListThreads(q string, maxResults int64) ([]*gmail.Thread, error) {
	var allThreads []*gmail.Thread
	pageToken := ""

	for {
		remaining := maxResults - int64(len(allThreads))
		if remaining <= 0 {
			break
		}

		// Gmail API has a max page size, typically 100
		pageSize := remaining
		if pageSize > 100 {
			pageSize = 100
		}

		req := c.svc.Threads.List("me").Q(q).MaxResults(pageSize)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			return nil, err
		}

		allThreads = append(allThreads, res.Threads...)

		if res.NextPageToken == "" || int64(len(allThreads)) >= maxResults {
			break
		}

		pageToken = res.NextPageToken
	}

	if int64(len(allThreads)) > maxResults {
		allThreads = allThreads[:maxResults]
	}

	return allThreads, nil
}

// GetThread retrieves a full Gmail thread with all its messages
func (c *Client) GetThread(threadID string) (*gmail.Thread, error) {
	thread, err := c.svc.Threads.Get("me", threadID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	return thread, nil
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(messageID string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// HeaderValue extracts a header value from a Gmail message
func HeaderValue(m *gmail.Message, header string) string {
	mpart := m.Payload
	if mpart == nil {
		return ""
	}
	for _, mph := range mpart.Headers {
		if mph.Name == header {
			return mph.Value
		}
	}
	return ""
}
