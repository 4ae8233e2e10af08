package bot

import (
	"regexp"
	"strconv"
)

var ticketIDPattern = regexp.MustCompile(`(?m)^id: (\d+)$`)

// parseTicketID recovers the ticket id from a quoted notification text.
// Admins answer by replying to a message that carries an "id: N" line.
func parseTicketID(text string) (int64, bool) {
	match := ticketIDPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
