package email

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
)

// EmailConfig holds SMTP configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromName     string
	FromEmail    string
	FrontendURL  string
}

// EmailService handles email sending
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates a new email service
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// DocumentEmail describes an invoice or estimate email to a contact.
type DocumentEmail struct {
	To             string
	CC             []string
	Subject        string
	Message        string
	DocumentNumber string
	BusinessName   string
	PaymentLink    string // optional hosted checkout URL
	Attachment     []byte // optional rendered document
	AttachmentName string
}

// SendDocumentEmail sends an invoice or estimate to a contact, with the
// rendered document attached when provided.
func (s *EmailService) SendDocumentEmail(doc DocumentEmail) error {
	htmlContent, err := s.renderDocumentEmail(doc)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	var message []byte
	if len(doc.Attachment) > 0 {
		message, err = s.buildMultipartEmail(doc, htmlContent)
		if err != nil {
			return fmt.Errorf("failed to build email: %w", err)
		}
	} else {
		message = s.buildHTMLEmail(doc.To, doc.Subject, htmlContent)
	}

	recipients := append([]string{doc.To}, doc.CC...)
	return s.sendEmail(recipients, message)
}

// sendEmail sends an email using SMTP
func (s *EmailService) sendEmail(to []string, message []byte) error {
	addr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)

	err := smtp.SendMail(addr, auth, s.config.FromEmail, to, message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

// buildHTMLEmail builds an HTML email message
func (s *EmailService) buildHTMLEmail(to, subject, htmlBody string) []byte {
	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n",
		s.config.FromName,
		s.config.FromEmail,
		to,
		subject,
	)

	return []byte(headers + htmlBody)
}

// buildMultipartEmail builds an HTML email with a document attachment
func (s *EmailService) buildMultipartEmail(doc DocumentEmail, htmlBody string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	headers := fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: multipart/mixed; boundary=%q\r\n"+
			"\r\n",
		s.config.FromName,
		s.config.FromEmail,
		doc.To,
		doc.Subject,
		writer.Boundary(),
	)
	buf.WriteString(headers)

	bodyPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/html; charset=\"UTF-8\""},
	})
	if err != nil {
		return nil, err
	}
	if _, err := bodyPart.Write([]byte(htmlBody)); err != nil {
		return nil, err
	}

	name := doc.AttachmentName
	if name == "" {
		name = doc.DocumentNumber + ".html"
	}
	attachPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("text/html; name=%q", name)},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", name)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(doc.Attachment)
	if _, err := attachPart.Write([]byte(encoded)); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// renderDocumentEmail renders the document email template
func (s *EmailService) renderDocumentEmail(doc DocumentEmail) (string, error) {
	tmpl, err := template.New("document_email").Parse(documentEmailTemplate)
	if err != nil {
		return "", err
	}

	data := struct {
		Message        string
		DocumentNumber string
		BusinessName   string
		PaymentLink    string
	}{
		Message:        doc.Message,
		DocumentNumber: doc.DocumentNumber,
		BusinessName:   doc.BusinessName,
		PaymentLink:    doc.PaymentLink,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// documentEmailTemplate is the HTML template for invoice and estimate emails
const documentEmailTemplate = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.DocumentNumber}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; background-color: #f4f7fa;">
    <table role="presentation" style="width: 100%; border-collapse: collapse;">
        <tr>
            <td style="padding: 40px 0;">
                <table role="presentation" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1);">
                    <!-- Header -->
                    <tr>
                        <td style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 40px 30px; text-align: center;">
                            <h1 style="color: #ffffff; margin: 0; font-size: 28px; font-weight: 600;">{{.BusinessName}}</h1>
                        </td>
                    </tr>

                    <!-- Content -->
                    <tr>
                        <td style="padding: 40px 30px;">
                            <h2 style="color: #1a1a2e; margin: 0 0 20px 0; font-size: 24px; font-weight: 600;">{{.DocumentNumber}}</h2>

                            <p style="color: #4a5568; font-size: 16px; line-height: 1.6; margin: 0 0 30px 0; white-space: pre-line;">{{.Message}}</p>

                            {{if .PaymentLink}}
                            <!-- CTA Button -->
                            <table role="presentation" style="margin: 0 auto 30px auto;">
                                <tr>
                                    <td style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); border-radius: 8px;">
                                        <a href="{{.PaymentLink}}" style="display: inline-block; padding: 16px 32px; color: #ffffff; text-decoration: none; font-size: 16px; font-weight: 600;">
                                            Pay Now
                                        </a>
                                    </td>
                                </tr>
                            </table>

                            <p style="color: #718096; font-size: 14px; line-height: 1.6; margin: 0;">
                                If the button above doesn't work, copy and paste this link into your browser:
                            </p>
                            <p style="color: #667eea; font-size: 14px; line-height: 1.6; margin: 10px 0 0 0; word-break: break-all;">
                                <a href="{{.PaymentLink}}" style="color: #667eea;">{{.PaymentLink}}</a>
                            </p>
                            {{end}}
                        </td>
                    </tr>

                    <!-- Footer -->
                    <tr>
                        <td style="background-color: #f8fafc; padding: 30px; text-align: center; border-top: 1px solid #e2e8f0;">
                            <p style="color: #a0aec0; font-size: 14px; margin: 0;">
                                This email was sent by {{.BusinessName}}
                            </p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>
`
