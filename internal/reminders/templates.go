package reminders

import (
	"fmt"
	"strings"
	"time"

	"github.com/Schofield90/whatsapp-lead-system/internal/bookings"
	"github.com/Schofield90/whatsapp-lead-system/internal/leads"
	"github.com/Schofield90/whatsapp-lead-system/internal/orgs"
)

// Render produces the message text for a reminder type.
func Render(t Type, b *bookings.Booking, lead *leads.Lead, org *orgs.Organization) string {
	when := b.ScheduledAt.In(org.Location())
	switch t {
	case TypeOwnerNotification:
		msg := fmt.Sprintf("New booking: %s (%s) booked a call for %s at %s.",
			lead.Name, lead.Phone, when.Format("Monday 2 January"), clockTime(when))
		if b.MeetLink != "" {
			msg += " Meet link: " + b.MeetLink
		}
		return msg
	case TypeConfirmation:
		msg := fmt.Sprintf("Hi %s! Your call with %s is confirmed for %s at %s.",
			lead.FirstName(), org.Name, when.Format("Monday 2 January"), clockTime(when))
		if b.MeetLink != "" {
			msg += " Join here: " + b.MeetLink
		}
		return msg + " Reply here if you need to change it."
	case TypeOneHourBefore:
		msg := fmt.Sprintf("Hi %s, a quick reminder that your call with %s starts in one hour, at %s.",
			lead.FirstName(), org.Name, clockTime(when))
		if b.MeetLink != "" {
			msg += " Join here: " + b.MeetLink
		}
		return msg + " See you soon!"
	default:
		return fmt.Sprintf("Reminder: your call with %s is at %s.", org.Name, clockTime(when))
	}
}

func clockTime(t time.Time) string {
	if t.Minute() == 0 {
		return strings.ToLower(t.Format("3PM"))
	}
	return strings.ToLower(t.Format("3:04PM"))
}
