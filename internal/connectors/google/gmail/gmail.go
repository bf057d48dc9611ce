// Package gmail sends report emails through the Gmail API.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"

	"google.golang.org/api/gmail/v1"

	"github.com/custodia-labs/adreports/internal/connectors/google"
	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// userMe is the authenticated account.
const userMe = "me"

var _ driven.Mailer = (*Mailer)(nil)

// Mailer sends email as the authenticated user.
type Mailer struct {
	svc     *gmail.Service
	limiter *google.RateLimiter
}

// NewMailer creates a Mailer.
func NewMailer(svc *gmail.Service) *Mailer {
	return &Mailer{
		svc:     svc,
		limiter: google.NewRateLimiter(google.ServiceGmail),
	}
}

// Send composes email and sends it.
func (m *Mailer) Send(ctx context.Context, email domain.Email) error {
	raw, err := Compose(email)
	if err != nil {
		return err
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := m.svc.Users.Messages.Send(userMe, msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("send %q: %w", email.Subject, google.WrapError(err))
	}
	return nil
}

// Compose renders email as a multipart/mixed RFC 5322 message.
func Compose(email domain.Email) ([]byte, error) {
	if len(email.To) == 0 {
		return nil, fmt.Errorf("email has no recipients: %w", domain.ErrInvalidInput)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("To", strings.Join(email.To, ", "))
	if len(email.Cc) > 0 {
		header("Cc", strings.Join(email.Cc, ", "))
	}
	if len(email.Bcc) > 0 {
		header("Bcc", strings.Join(email.Bcc, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	bodyType := "text/plain"
	if email.HTML {
		bodyType = "text/html"
	}
	body, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {bodyType + "; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(body, []byte(email.Body)); err != nil {
		return nil, err
	}

	for _, a := range email.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64(part, a.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBase64 writes data base64-encoded in 76 character lines.
func writeBase64(w interface{ Write([]byte) (int, error) }, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}
