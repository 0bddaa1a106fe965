package utils

import (
	"educhain/config"
	"fmt"
	"net/smtp"
	"strings"
)

// Generic Send Email
func SendEmail(to []string, subject string, htmlBody string) error {
	smtpHost := "smtp.gmail.com"
	smtpPort := "587"

	from := config.AppConfig.EmailSender
	password := config.AppConfig.Password

	// MIME basics
	msg := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n"
	msg += fmt.Sprintf("From: EduChain <%s>\r\n", from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", subject)
	msg += htmlBody

	auth := smtp.PlainAuth("", from, password, smtpHost)

	err := smtp.SendMail(smtpHost+":"+smtpPort, auth, from, to, []byte(msg))
	if err != nil {
		fmt.Println("Error sending email:", err)
		return err
	}
	return nil
}

// HTML wrapper shared by all outgoing mails
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #00004D; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #00004D; line-height: 1.6; }
			.tx { font-family: monospace; font-size: 12px; word-break: break-all; background: #F0F0F5; padding: 10px; border-radius: 4px; }
			.footer { padding: 20px; text-align: center; font-size: 12px; color: #999999; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header"><h1>%s</h1></div>
			<div class="content">%s</div>
			<div class="footer">EduChain &middot; verifiable learning</div>
		</div>
	</body>
	</html>`, title, bodyContent)
}

// SendCourseCompletionEmail notifies a learner that their completion settled
// on chain
func SendCourseCompletionEmail(email, name, courseTitle string, score int, txHash string) error {
	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Congratulations! Your completion of <b>%s</b> has been settled on the EduChain ledger.</p>
		<p>Final score: <b>%d / 100</b></p>
		<p>Transaction:</p>
		<p class="tx">%s</p>
		<p>Your certificate is now available in your dashboard.</p>`,
		name, courseTitle, score, txHash)

	return SendEmail([]string{email}, "Course completion settled on chain", getEmailTemplate("Course Completed", body))
}
