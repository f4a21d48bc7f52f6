// Package gmail provides a client for interacting with the Gmail API.
//
// This package offers the Gmail functionality the assistant needs:
//   - Thread management (list, archive, mark read/unread, labels)
//   - Email operations (send, reply)
//   - Message body extraction
//
// The client supports multi-account authentication using the Google OAuth2
// flow from the google package; tokens are loaded from the file system.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := gmail.NewClientForAccount(ctx, auth, "default")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// List threads matching a query
//	threads, err := client.ListThreads("in:inbox is:unread", 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Send an email
//	msg := &gmail.EmailMessage{
//	    To:      []string{"recipient@example.com"},
//	    Subject: "Hello",
//	    Body:    "This is a test email",
//	    IsHTML:  false,
//	}
//	msgID, err := client.SendEmail(msg)
package gmail
