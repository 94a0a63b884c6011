package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"

	"mathclash/internal/models"
	"mathclash/internal/period"
)

// EmailService sends operator notifications via Amazon SES. Reward events
// never depend on it: sends happen after commit and a failure only logs.
type EmailService struct {
	client      *sesv2.Client
	fromEmail   string
	fromName    string
	appBaseURL  string
	notifyEmail string
	enabled     bool
	debug       bool
}

// NewEmailService creates a new email service
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL, notifyEmail string, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		logrus.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			notifyEmail: notifyEmail,
			enabled:     false,
			debug:       debug,
		}, nil
	}

	if debug {
		logrus.WithFields(logrus.Fields{
			"region": awsRegion,
			"from":   fromEmail,
			"notify": notifyEmail,
		}).Debug("Initializing email service with AWS SES")
	}

	// Load AWS configuration
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Create SES client
	client := sesv2.NewFromConfig(cfg)

	logrus.WithFields(logrus.Fields{
		"from":   fromEmail,
		"region": awsRegion,
	}).Info("Email service enabled")

	return &EmailService{
		client:      client,
		fromEmail:   fromEmail,
		fromName:    fromName,
		appBaseURL:  appBaseURL,
		notifyEmail: notifyEmail,
		enabled:     true,
		debug:       debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendMilestoneUnlocked notifies the center that a student crossed a reward
// milestone so the physical reward can be handed over.
func (s *EmailService) SendMilestoneUnlocked(studentID int64, milestone models.Milestone, totalPoints int) error {
	if !s.enabled || s.notifyEmail == "" {
		if s.debug {
			logrus.WithFields(logrus.Fields{
				"student_id": studentID,
				"milestone":  milestone.Threshold,
			}).Debug("Skipping milestone email (service disabled or no notify address)")
		}
		return nil
	}

	reward := milestone.Label
	if milestone.Kind == models.MilestoneLetter {
		reward = fmt.Sprintf("SUPER letter %q", milestone.Label)
	}

	htmlLink := ""
	textLink := ""
	if s.appBaseURL != "" {
		summaryURL := fmt.Sprintf("%s/students/%d/rewards/summary", s.appBaseURL, studentID)
		htmlLink = fmt.Sprintf(`<p><a href="%s">View the student's reward summary</a></p>`, summaryURL)
		textLink = fmt.Sprintf("\nSummary: %s\n", summaryURL)
	}

	subject := fmt.Sprintf("MathClash: student %d unlocked %s", studentID, reward)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #4a90e2; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Milestone Unlocked</h1>
		</div>
		<div class="content">
			<p>Student <strong>%d</strong> just reached <strong>%d points</strong> and unlocked:</p>
			<p style="text-align: center; font-size: 20px;"><strong>%s</strong></p>
			<p>Current total: %d points.</p>
			<p>Please arrange the reward at the next class.</p>
			%s
		</div>
		<div class="footer">
			<p>This is an automated email from MathClash. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, studentID, milestone.Threshold, reward, totalPoints, htmlLink)

	textBody := fmt.Sprintf(`Student %d just reached %d points and unlocked: %s

Current total: %d points.

Please arrange the reward at the next class.
%s
---
This is an automated email from MathClash. Please do not reply.
`, studentID, milestone.Threshold, reward, totalPoints, textLink)

	return s.sendEmail(context.Background(), s.notifyEmail, subject, htmlBody, textBody)
}

// SendEvaluationSummary notifies the center how a monthly badge pass went
func (s *EmailService) SendEvaluationSummary(month period.Month, studentsEvaluated, badgesAwarded int) error {
	if !s.enabled || s.notifyEmail == "" {
		if s.debug {
			logrus.WithField("month", month).Debug("Skipping evaluation summary email (service disabled or no notify address)")
		}
		return nil
	}

	subject := fmt.Sprintf("MathClash: badge evaluation for %s", month)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #4a90e2; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Monthly Badge Evaluation</h1>
		</div>
		<div class="content">
			<p>The badge evaluation for <strong>%s</strong> has finished.</p>
			<ul>
				<li>Students evaluated: %d</li>
				<li>Badges awarded: %d</li>
			</ul>
		</div>
		<div class="footer">
			<p>This is an automated email from MathClash. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, month, studentsEvaluated, badgesAwarded)

	textBody := fmt.Sprintf(`The badge evaluation for %s has finished.

Students evaluated: %d
Badges awarded: %d

---
This is an automated email from MathClash. Please do not reply.
`, month, studentsEvaluated, badgesAwarded)

	return s.sendEmail(context.Background(), s.notifyEmail, subject, htmlBody, textBody)
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

	if s.debug && result.MessageId != nil {
		logrus.WithField("message_id", *result.MessageId).Debug("SES SendEmail succeeded")
	}

	logrus.WithFields(logrus.Fields{
		"to":      toEmail,
		"subject": subject,
	}).Info("Email sent")
	return nil
}
