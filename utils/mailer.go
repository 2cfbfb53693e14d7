package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"ssrportal/config"
	"ssrportal/models"
)

// SendTeamDecisionEmail notifies the team leader of the mentor's decision.
// Best effort: callers log the error and move on.
func SendTeamDecisionEmail(to, teamNumber string, status models.TeamStatus, reason string) error {
	subject := fmt.Sprintf("Team %s has been %s", teamNumber, status)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Team Registration Update</h2>
			<p>Your team <b>%s</b> was marked <b>%s</b> by your mentor.</p>
			%s
		</body>
		</html>
	`, teamNumber, status, reasonParagraph(reason))

	return sendEmail(to, subject, body)
}

// SendProposalReviewEmail notifies the team leader of a proposal review.
func SendProposalReviewEmail(to, title string, status models.ProposalStatus, remarks string) error {
	subject := fmt.Sprintf("Proposal %q has been %s", title, status)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Proposal Review Update</h2>
			<p>Your proposal <b>%s</b> was marked <b>%s</b> by your mentor.</p>
			%s
		</body>
		</html>
	`, title, status, reasonParagraph(remarks))

	return sendEmail(to, subject, body)
}

func reasonParagraph(reason string) string {
	if reason == "" {
		return ""
	}
	return fmt.Sprintf("<p>Remarks: %s</p>", reason)
}

func sendEmail(to, subject, body string) error {
	smtp := config.AppConfig.SMTP
	if smtp.Host == "" {
		// Mail delivery is optional; unconfigured environments skip it.
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtp.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	return d.DialAndSend(m)
}
