package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"
)

// EmailService defines the interface for email operations
type EmailService interface {
	SendUploadNotification(ctx context.Context, upload UploadNotice) error
	SendReportNotification(ctx context.Context, report ReportNotice) error
	SendAdminMessage(ctx context.Context, toEmail, toName, subject, message string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string) error
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
}

// Message is a rendered email ready for a transport
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a rendered message
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// UploadNotice describes a new upload for the administrator mail
type UploadNotice struct {
	UploaderName  string
	UploaderEmail string
	FileName      string
	Subject       string
	Branch        string
	ResourceType  string
	URL           string
}

// ReportNotice describes a user report for the administrator mail
type ReportNotice struct {
	ReporterName  string
	ReporterEmail string
	ResourceID    int64
	FileName      string
	Reason        string
}

// Config holds the addresses used when composing mail
type Config struct {
	AppName    string
	AdminEmail string
	BaseURL    string // front-end base used in links
}

// EmailServiceImpl implements EmailService on top of a Sender
type EmailServiceImpl struct {
	config Config
	sender Sender
	logger zerolog.Logger
}

// NewEmailService creates a new EmailService
func NewEmailService(config Config, sender Sender, logger zerolog.Logger) EmailService {
	if config.AppName == "" {
		config.AppName = "Noteverse"
	}
	return &EmailServiceImpl{
		config: config,
		sender: sender,
		logger: logger,
	}
}

// SendUploadNotification tells the administrator a new file was uploaded
func (s *EmailServiceImpl) SendUploadNotification(ctx context.Context, n UploadNotice) error {
	if s.config.AdminEmail == "" {
		s.logger.Debug().Msg("No admin email configured, skipping upload notification")
		return nil
	}
	body := fmt.Sprintf(`<p><strong>%s</strong> (%s) uploaded a new file.</p>
<ul>
<li>File: %s</li>
<li>Subject: %s</li>
<li>Branch: %s</li>
<li>Type: %s</li>
</ul>
<p><a href="%s">Open file</a></p>`,
		esc(n.UploaderName), esc(n.UploaderEmail), esc(n.FileName), esc(n.Subject),
		esc(n.Branch), esc(n.ResourceType), esc(n.URL))

	return s.send(ctx, Message{
		ToEmail: s.config.AdminEmail,
		Subject: "New file uploaded: " + n.FileName,
		HTML:    s.wrap("New upload", body),
		Text: fmt.Sprintf("%s (%s) uploaded %s [%s, %s, %s]\n%s",
			n.UploaderName, n.UploaderEmail, n.FileName, n.Subject, n.Branch, n.ResourceType, n.URL),
	})
}

// SendReportNotification forwards a user's report to the administrator
func (s *EmailServiceImpl) SendReportNotification(ctx context.Context, n ReportNotice) error {
	if s.config.AdminEmail == "" {
		s.logger.Debug().Msg("No admin email configured, skipping report notification")
		return nil
	}
	reason := n.Reason
	if reason == "" {
		reason = "(no reason given)"
	}
	body := fmt.Sprintf(`<p><strong>%s</strong> (%s) reported <em>%s</em> (#%d).</p><p>%s</p>`,
		esc(n.ReporterName), esc(n.ReporterEmail), esc(n.FileName), n.ResourceID, esc(reason))

	return s.send(ctx, Message{
		ToEmail: s.config.AdminEmail,
		Subject: fmt.Sprintf("File reported: %s", n.FileName),
		HTML:    s.wrap("Report received", body),
		Text:    fmt.Sprintf("%s (%s) reported %s (#%d): %s", n.ReporterName, n.ReporterEmail, n.FileName, n.ResourceID, reason),
	})
}

// SendAdminMessage delivers a free-form message written in the dashboard
func (s *EmailServiceImpl) SendAdminMessage(ctx context.Context, toEmail, toName, subject, message string) error {
	paragraphs := strings.ReplaceAll(esc(message), "\n", "<br>")
	return s.send(ctx, Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: subject,
		HTML:    s.wrap(subject, fmt.Sprintf("<p>Hello %s,</p><p>%s</p>", esc(toName), paragraphs)),
		Text:    fmt.Sprintf("Hello %s,\n\n%s", toName, message),
	})
}

// SendPasswordResetEmail sends the reset token and link
func (s *EmailServiceImpl) SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.config.BaseURL, "/"), token)
	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>We received a request to reset your password. The link below is valid for one hour.</p>
<p><a href="%s">Reset password</a></p>
<p>Or use this code: <strong>%s</strong></p>
<p>If you did not ask for this, ignore this email.</p>`, esc(toName), esc(link), esc(token))

	return s.send(ctx, Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: "Reset your password",
		HTML:    s.wrap("Password reset", body),
		Text:    fmt.Sprintf("Hello %s,\n\nReset your password: %s\nCode: %s", toName, link, token),
	})
}

// SendWelcomeEmail sends a welcome email to a new user
func (s *EmailServiceImpl) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	body := fmt.Sprintf(`<p>Hello %s,</p><p>Your account is ready. Start by browsing the library or uploading your notes.</p>`, esc(toName))
	return s.send(ctx, Message{
		ToEmail: toEmail,
		ToName:  toName,
		Subject: "Welcome to " + s.config.AppName,
		HTML:    s.wrap("Welcome!", body),
		Text:    fmt.Sprintf("Hello %s,\n\nYour account is ready.", toName),
	})
}

func (s *EmailServiceImpl) send(ctx context.Context, msg Message) error {
	msg.Subject = "[" + s.config.AppName + "] " + msg.Subject
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("to", msg.ToEmail).Str("subject", msg.Subject).Msg("Failed to send email")
		return fmt.Errorf("send email to %s: %w", msg.ToEmail, err)
	}
	s.logger.Debug().Str("to", msg.ToEmail).Str("subject", msg.Subject).Msg("Email sent")
	return nil
}

func (s *EmailServiceImpl) wrap(title, body string) string {
	return fmt.Sprintf(`<html>
<body>
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #333;">%s</h2>
%s
<p>Best regards,<br>The %s Team</p>
</div>
</body>
</html>`, esc(title), body, esc(s.config.AppName))
}

func esc(s string) string { return html.EscapeString(s) }
