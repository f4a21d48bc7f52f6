package gmail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// EmailMessage represents an email to be sent
type EmailMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	IsHTML  bool
}

// encodeRFC2047 encodes a string for use in email headers according to RFC 2047
// This is necessary for non-ASCII characters (like German umlauts) in subjects
func encodeRFC2047(s string) string {
	needsEncoding := false
	for _, r := range s {
		if r > 127 {
			needsEncoding = true
			break
		}
	}

	if !needsEncoding {
		return s
	}

	return mime.BEncoding.Encode("UTF-8", s)
}

// GetSignature fetches the user's Gmail signature (primary send-as address)
// The signature is cached after the first fetch
func (c *Client) GetSignature() (string, error) {
	if c.signature != "" {
		return c.signature, nil
	}

	sendAs, err := c.svc.Settings.SendAs.Get("me", "me").Do()
	if err != nil {
		// Emails can still be sent without a signature
		return "", nil
	}

	if sendAs.Signature != "" {
		c.signature = sendAs.Signature
	}

	return c.signature, nil
}

// appendSignature adds the user's signature to the email body
func (c *Client) appendSignature(body string, isHTML bool) string {
	signature, err := c.GetSignature()
	if err != nil || signature == "" {
		return body
	}

	if isHTML {
		return body + "<br><br>-- <br>" + signature
	}

	return body + "\n\n-- \n" + signature
}

// buildRawMessage assembles an RFC 2822 message and encodes it base64url
func buildRawMessage(to, cc, bcc []string, subject, body string, isHTML bool, extraHeaders map[string]string) string {
	var b strings.Builder

	b.WriteString("To: ")
	b.WriteString(strings.Join(to, ", "))
	b.WriteString("\r\n")

	if len(cc) > 0 {
		b.WriteString("Cc: ")
		b.WriteString(strings.Join(cc, ", "))
		b.WriteString("\r\n")
	}

	if len(bcc) > 0 {
		b.WriteString("Bcc: ")
		b.WriteString(strings.Join(bcc, ", "))
		b.WriteString("\r\n")
	}

	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(subject))
	b.WriteString("\r\n")

	for name, value := range extraHeaders {
		if value == "" {
			continue
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}

	if isHTML {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")

	b.WriteString(body)

	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// SendEmail sends an email through Gmail API
func (c *Client) SendEmail(msg *EmailMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}
	if msg.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if msg.Body == "" {
		return "", fmt.Errorf("body is required")
	}

	body := c.appendSignature(msg.Body, msg.IsHTML)
	rawMessage := buildRawMessage(msg.To, msg.Cc, msg.Bcc, msg.Subject, body, msg.IsHTML, nil)

	sent, err := c.svc.Messages.Send("me", &gmail.Message{Raw: rawMessage}).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	return sent.Id, nil
}

// ReplyToEmail sends a reply to an existing email message
func (c *Client) ReplyToEmail(messageID, threadID, body string, cc, bcc []string, isHTML bool) (string, error) {
	if messageID == "" {
		return "", fmt.Errorf("messageID is required")
	}
	if threadID == "" {
		return "", fmt.Errorf("threadID is required")
	}
	if body == "" {
		return "", fmt.Errorf("body is required")
	}

	msg, err := c.GetMessage(messageID)
	if err != nil {
		return "", fmt.Errorf("failed to get original message: %w", err)
	}

	originalFrom := HeaderValue(msg, "From")
	originalSubject := HeaderValue(msg, "Subject")
	originalMessageID := HeaderValue(msg, "Message-ID")
	originalReferences := HeaderValue(msg, "References")

	if originalFrom == "" {
		return "", fmt.Errorf("original message has no From header")
	}

	replySubject := replySubjectFor(originalSubject)

	// References chain keeps mail clients threading correctly
	var references string
	if originalReferences != "" {
		references = originalReferences + " " + originalMessageID
	} else {
		references = originalMessageID
	}

	extraHeaders := map[string]string{
		"In-Reply-To": originalMessageID,
		"References":  references,
	}

	bodyWithSignature := c.appendSignature(body, isHTML)
	rawMessage := buildRawMessage([]string{originalFrom}, cc, bcc, replySubject, bodyWithSignature, isHTML, extraHeaders)

	sent, err := c.svc.Messages.Send("me", &gmail.Message{
		Raw:      rawMessage,
		ThreadId: threadID,
	}).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send reply: %w", err)
	}

	return sent.Id, nil
}

// replySubjectFor prepends "Re: " unless the subject already carries it
func replySubjectFor(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
