package bookings

import (
	"fmt"
	"strings"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

// ApologyFor turns a failed booking into a message for the lead. The
// underlying error text is never included.
func ApologyFor(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindUnavailableSlot:
		return "Sorry, that time is already taken. Could you pick another time that suits you?"
	case apperr.KindParse:
		return `Sorry, I couldn't work out the day and time. Could you pick another time and send it like "tomorrow at 2pm"?`
	default:
		return "Sorry, I couldn't book that just now. Could you pick another time, or try again in a moment?"
	}
}

// ConfirmationMessage tells the lead their call is booked, in the
// organization's timezone.
func ConfirmationMessage(b *Booking, firstName, orgName string, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	local := b.ScheduledAt.In(loc)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Great, %s! You're booked in with %s on %s at %s.",
		firstName, orgName, local.Format("Monday 2 January"), formatClock(local))
	if b.MeetLink != "" {
		fmt.Fprintf(&sb, " Here's the video link: %s", b.MeetLink)
	}
	sb.WriteString(" We'll send you a reminder an hour before. Is there anything you'd like us to know before the call?")
	return sb.String()
}

func formatClock(t time.Time) string {
	if t.Minute() == 0 {
		return strings.ToLower(t.Format("3PM"))
	}
	return strings.ToLower(t.Format("3:04PM"))
}
