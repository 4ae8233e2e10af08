package bot

import (
	"fmt"
	"strings"

	"github.com/xaenox/support-bot/internal/models"
)

// Admin menu actions, matched case-insensitively against inbound text.
const (
	actionStatistics   = "Statistics"
	actionUnread       = "Unread messages"
	actionNewMailing   = "New mailing"
	actionImageMailing = "Mailing with image"
)

// Callback identifiers. Everything else arriving as callback data is treated
// as a prepared-entry match key.
const (
	callbackAskQuestion   = "ask_question"
	callbackAskAgain      = "ask_again"
	callbackMailingSend   = "mailing_send"
	callbackMailingEdit   = "mailing_edit"
	callbackMailingCancel = "mailing_cancel"
)

const (
	msgAskEmail        = "To help you faster, please send the email you registered with 📧👍"
	msgEmailInvalid    = "The email [%s] failed validation. Please try again and enter just your email, nothing else"
	msgDescribeProblem = "Describe your problem:"
	msgEmptyQuestion   = "The question text is empty. Please describe your problem:"
	msgRequestSent     = "Your request has been sent to an administrator and will be reviewed shortly. The answer will arrive in this chat. Thank you for reaching out!"
	msgRateThanks      = "Your support motivates us to get better. Thank you! 🎉"
	msgRateSorry       = "We are sorry you are not satisfied. Could you ask your question again or tell us what exactly went wrong? 😓"
	msgTicketRemoved   = "This question has been removed from the store"
	msgAnswerDone      = "Done!"
	msgNoUnread        = "No unread messages"
	msgWriteMailing    = "Write the mailing text:"
	msgSendPhoto       = "Send a photo with the mailing text as its caption:"
	msgMailingCanceled = "The mailing was cancelled"
	msgGenericError    = "Sorry, something went wrong. Please try again later."
)

func formatAnswerForUser(t *models.Ticket) string {
	return fmt.Sprintf("%s, we have processed your request: %s\nHere is our answer: %s",
		t.FirstName, t.Question, t.Answer)
}

func formatExistingAnswer(ans *models.Answer) string {
	return fmt.Sprintf("This question was already answered by: @%s\nThe answer: %s",
		ans.AdminName, ans.Text)
}

func formatStatistics(stat *models.Statistic) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Users: %d\n", stat.UserCount)
	fmt.Fprintf(&sb, "Closed tickets: %d\n", stat.ClosedCount)
	fmt.Fprintf(&sb, "Open tickets: %d\n", stat.OpenCount)

	sb.WriteString("\nTickets by category:\n")
	for _, c := range stat.Categories {
		fmt.Fprintf(&sb, "%s: %d\n", c.Category, c.Count)
	}

	sb.WriteString("\nAdmin statistics:\n")
	for i, a := range stat.Admins {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Admin: %s\nLikes: %d\nDislikes: %d\nUnrated: %d\n",
			a.AdminName, a.Likes, a.Dislikes, a.WithoutRate)
	}
	return sb.String()
}
