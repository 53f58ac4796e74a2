// Package gcal implements calendar.Provider on the Google Calendar API.
package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Schofield90/whatsapp-lead-system/internal/calendar"
	"github.com/Schofield90/whatsapp-lead-system/pkg/logging"
)

// Client talks to Google Calendar with a stored OAuth token.
type Client struct {
	service *gcalendar.Service
	logger  *logging.Logger
}

var _ calendar.Provider = (*Client)(nil)

// NewClient builds a client from OAuth client credentials JSON and a saved
// token JSON. The token is refreshed automatically.
func NewClient(ctx context.Context, credentialsJSON, tokenJSON string, logger *logging.Logger) (*Client, error) {
	config, err := google.ConfigFromJSON([]byte(credentialsJSON), gcalendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("gcal: parse credentials: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal([]byte(tokenJSON), &token); err != nil {
		return nil, fmt.Errorf("gcal: parse token: %w", err)
	}
	return NewClientWithOptions(ctx, logger, option.WithHTTPClient(config.Client(ctx, &token)))
}

// NewClientWithOptions builds a client from raw API options.
func NewClientWithOptions(ctx context.Context, logger *logging.Logger, opts ...option.ClientOption) (*Client, error) {
	service, err := gcalendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcal: create calendar service: %w", err)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{service: service, logger: logger.WithComponent("gcal")}, nil
}

// CheckAvailability queries free/busy for the interval.
func (c *Client) CheckAvailability(ctx context.Context, calendarID string, start, end time.Time) (bool, error) {
	calendarID = orPrimary(calendarID)
	resp, err := c.service.Freebusy.Query(&gcalendar.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   []*gcalendar.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("gcal: freebusy: %w", err)
	}
	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return false, fmt.Errorf("gcal: freebusy: calendar %q missing from response", calendarID)
	}
	if len(cal.Errors) > 0 {
		return false, fmt.Errorf("gcal: freebusy: %s", cal.Errors[0].Reason)
	}
	for _, busy := range cal.Busy {
		bStart, err1 := time.Parse(time.RFC3339, busy.Start)
		bEnd, err2 := time.Parse(time.RFC3339, busy.End)
		if err1 != nil || err2 != nil {
			return false, nil
		}
		if start.Before(bEnd) && bStart.Before(end) {
			return false, nil
		}
	}
	return true, nil
}

// CreateEvent inserts the event and, when asked, a Google Meet conference.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, ev calendar.EventDetails) (calendar.CreatedEvent, error) {
	event := &gcalendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcalendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: ev.TimeZone},
		End:         &gcalendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339), TimeZone: ev.TimeZone},
	}
	if ev.AttendeeEmail != "" {
		event.Attendees = []*gcalendar.EventAttendee{{Email: ev.AttendeeEmail}}
	}
	call := c.service.Events.Insert(orPrimary(calendarID), event).SendUpdates("all")
	if ev.WithMeeting {
		event.ConferenceData = &gcalendar.ConferenceData{
			CreateRequest: &gcalendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &gcalendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		}
		call = call.ConferenceDataVersion(1)
	}
	created, err := call.Context(ctx).Do()
	if err != nil {
		return calendar.CreatedEvent{}, fmt.Errorf("gcal: create event: %w", err)
	}
	out := calendar.CreatedEvent{ID: created.Id, MeetingURL: created.HangoutLink, HTMLLink: created.HtmlLink}
	c.logger.Info("calendar event created", "event_id", created.Id, "calendar_id", orPrimary(calendarID))
	return out, nil
}

// DeleteEvent removes an event. A missing event is reported as
// calendar.ErrEventNotFound.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := c.service.Events.Delete(orPrimary(calendarID), eventID).SendUpdates("all").Context(ctx).Do()
	if err == nil {
		return nil
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) && (gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone) {
		return calendar.ErrEventNotFound
	}
	return fmt.Errorf("gcal: delete event: %w", err)
}

func orPrimary(calendarID string) string {
	if calendarID == "" {
		return "primary"
	}
	return calendarID
}
