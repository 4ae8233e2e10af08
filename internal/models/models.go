package models

import "time"

// Rating is the user's verdict on an admin's answer. A ticket starts out
// unrated; "not yet rated" is distinct from "rated negatively".
type Rating int

const (
	RatingNone Rating = iota
	RatingLiked
	RatingDisliked
)

// PreparedEntry is a pre-authored FAQ question/answer pair. Entries are
// seeded once and read-only afterwards. MatchKey is the opaque token the
// transport layer uses to map a button press back to the entry.
type PreparedEntry struct {
	Text     string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
	MatchKey string `json:"match_key"`
}

// Ticket is one user-submitted support question and its eventual answer.
// A ticket is either fully open (Closed false, answer fields zero) or fully
// closed (Closed true, Answer/AdminID/AdminName all set).
type Ticket struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	Email     string    `json:"email"`
	Category  string    `json:"category"`
	Question  string    `json:"question"`
	CreatedAt time.Time `json:"created_at"`
	Closed    bool      `json:"closed"`
	Answer    string    `json:"answer,omitempty"`
	AdminID   int64     `json:"admin_id,omitempty"`
	AdminName string    `json:"admin_name,omitempty"`
	Rating    Rating    `json:"rating"`
}

// Answer is the closed-ticket view handed to notification rendering.
type Answer struct {
	TicketID  int64
	UserID    int64
	Username  string
	Question  string
	Text      string
	AdminID   int64
	AdminName string
}

// Mailing records one broadcast to all known users. Append-only.
type Mailing struct {
	AdminID        int64     `json:"admin_id"`
	AdminName      string    `json:"admin_name"`
	Text           string    `json:"text"`
	SentAt         time.Time `json:"sent_at"`
	RecipientCount int       `json:"recipient_count"`
	ImageFileID    string    `json:"image_file_id,omitempty"`
}

// Statistic is a derived report computed from the ticket store at call time.
type Statistic struct {
	UserCount   int
	ClosedCount int
	OpenCount   int
	Categories  []CategoryCount
	Admins      []AdminTally
}

// CategoryCount is one histogram bucket; Category is lower-cased and buckets
// keep the order of first appearance during the scan.
type CategoryCount struct {
	Category string
	Count    int
}

// AdminTally is the like/dislike/unrated breakdown for one answering admin.
type AdminTally struct {
	AdminName   string
	Likes       int
	Dislikes    int
	WithoutRate int
}
