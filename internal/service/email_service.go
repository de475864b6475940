package service

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	log "github.com/sirupsen/logrus"
)

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		log.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{appBaseURL: appBaseURL}, nil
	}

	log.Debugf("Initializing email service: region=%s from=%s base_url=%s", awsRegion, fromEmail, appBaseURL)

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Infof("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s != nil && s.enabled
}

const emailLayout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: %s; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #ff7a00; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>%s</h1></div>
		<div class="content">%s</div>
		<div class="footer"><p>This is an automated email from Air Jump. Please do not reply.</p></div>
	</div>
</body>
</html>
`

func renderEmail(headerColor, title, content string) string {
	return fmt.Sprintf(emailLayout, headerColor, html.EscapeString(title), content)
}

// SendPasswordResetEmail sends a password reset email with a reset link
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, toEmail, toName, resetToken string) error {
	if !s.IsEnabled() {
		log.Infof("Skipping email send (service disabled): password reset to %s", toEmail)
		return nil
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.appBaseURL, resetToken)

	subject := "Reset your Air Jump password"
	htmlBody := renderEmail("#ff7a00", "Password Reset Request", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>We received a request to reset the password for your Air Jump account.</p>
			<p style="text-align: center;"><a href="%s" class="button">Reset Password</a></p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p><strong>This link will expire in 1 hour.</strong></p>
			<p>If you didn't request a password reset, you can safely ignore this email.</p>`,
		html.EscapeString(toName), resetLink, resetLink))

	textBody := fmt.Sprintf(`Hi %s,

We received a request to reset the password for your Air Jump account.

Open the link below to reset your password:
%s

This link will expire in 1 hour.

If you didn't request a password reset, you can safely ignore this email.
`, toName, resetLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendWelcomeEmail sends a welcome email to new parents
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.IsEnabled() {
		log.Debugf("Skipping email send (service disabled): welcome to %s", toEmail)
		return nil
	}

	subject := "Welcome to Air Jump!"
	htmlBody := renderEmail("#ff7a00", "Welcome to Air Jump!", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Your account is ready. Add your children, then generate an entry QR code from the app when you arrive at the park.</p>
			<p>Every visit earns a loyalty seal. Collect 10 and the next entry is on us.</p>
			<p style="text-align: center;"><a href="%s" class="button">Open Air Jump</a></p>`,
		html.EscapeString(toName), s.appBaseURL))

	textBody := fmt.Sprintf(`Hi %s,

Your account is ready. Add your children, then generate an entry QR code from the app when you arrive at the park.

Every visit earns a loyalty seal. Collect 10 and the next entry is on us.

%s
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// SendEmergencyAlertEmail notifies a parent that staff raised an alert for their child
func (s *EmailService) SendEmergencyAlertEmail(ctx context.Context, toEmail, toName, childName, alertType, message string) error {
	if !s.IsEnabled() {
		log.Warnf("Skipping email send (service disabled): emergency alert for %s to %s", childName, toEmail)
		return nil
	}

	subject := fmt.Sprintf("Air Jump alert: %s", childName)
	htmlBody := renderEmail("#d0021b", "Important: please contact the front desk", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Our staff raised a <strong>%s</strong> alert for <strong>%s</strong>.</p>
			<p>%s</p>
			<p>Please come to the front desk or call the venue as soon as possible.</p>`,
		html.EscapeString(toName), html.EscapeString(alertType), html.EscapeString(childName), html.EscapeString(message)))

	textBody := fmt.Sprintf(`Hi %s,

Our staff raised a %s alert for %s.

%s

Please come to the front desk or call the venue as soon as possible.
`, toName, alertType, childName, message)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	entry := log.WithFields(log.Fields{"to": toEmail, "subject": subject})
	if result.MessageId != nil {
		entry = entry.WithField("message_id", *result.MessageId)
	}
	entry.Info("Email sent")
	return nil
}
