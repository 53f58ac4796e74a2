package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "test@example.com"}, nil)
	assert.Nil(t, sender)
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "test@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Equal(t, DefaultFromName, sender.fromName)
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	err := sender.Send(context.Background(), EmailMessage{To: "owner@example.com", Subject: "Test"})
	assert.Error(t, err)
}

func TestStubEmailSender_Send(t *testing.T) {
	err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "owner@example.com", Subject: "Test", BookingID: "booking-1"})
	assert.NoError(t, err)
}

func TestSenders_RequireRecipient(t *testing.T) {
	msg := EmailMessage{To: "  ", Subject: "New booking", BookingID: "booking-1"}
	sg := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "bookings@example.com"}, nil)
	client := &fakeSES{}

	for name, sender := range map[string]EmailSender{
		"stub":     NewStubEmailSender(nil),
		"sendgrid": sg,
		"ses":      NewSESSender(client, SESConfig{FromEmail: "bookings@example.com"}, nil),
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, sender.Send(context.Background(), msg), errNoRecipient)
		})
	}
	assert.Nil(t, client.input)
}

func TestSendGridSender_BuildTagsBooking(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "bookings@example.com"}, nil)
	require.NotNil(t, sender)

	message := sender.build(EmailMessage{
		To:        "owner@example.com",
		ToName:    "Sam Owner",
		ReplyTo:   "jane@example.com",
		Subject:   "New booking",
		Body:      "plain",
		BookingID: "booking-1",
		OrgID:     "org-1",
	})
	require.NotNil(t, message.ReplyTo)
	assert.Equal(t, "jane@example.com", message.ReplyTo.Address)
	assert.Equal(t, []string{"booking-notification"}, message.Categories)
	require.Len(t, message.Personalizations, 1)
	assert.Equal(t, map[string]string{"booking_id": "booking-1", "org_id": "org-1"}, message.Personalizations[0].CustomArgs)
	require.Len(t, message.Content, 2)
	assert.Equal(t, "plain", message.Content[1].Value)
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "bookings@example.com", FromName: "Peak Fitness"}, nil)
	require.NotNil(t, sender)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "owner@example.com",
		Subject: "New booking",
		Body:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)
	require.NotNil(t, client.input)
	assert.Equal(t, "Peak Fitness <bookings@example.com>", aws.ToString(client.input.FromEmailAddress))
	assert.Equal(t, []string{"owner@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "plain", aws.ToString(client.input.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(client.input.Content.Simple.Body.Html.Data))
}

func TestSESSender_SendTagsBooking(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "bookings@example.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:        "owner@example.com",
		ReplyTo:   "jane@example.com",
		Subject:   "New booking",
		Body:      "plain",
		BookingID: "booking-1",
		OrgID:     "org-1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com"}, client.input.ReplyToAddresses)
	assert.Nil(t, client.input.Content.Simple.Body.Html)

	tags := map[string]string{}
	for _, tag := range client.input.EmailTags {
		tags[aws.ToString(tag.Name)] = aws.ToString(tag.Value)
	}
	assert.Equal(t, map[string]string{"booking_id": "booking-1", "category": "booking-notification", "org_id": "org-1"}, tags)
	assert.Equal(t, "booking_id", aws.ToString(client.input.EmailTags[0].Name))
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "bookings@example.com"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "owner@example.com", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "throttled")
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{}, nil))
}

func newTestResendSender(t *testing.T, handler http.HandlerFunc) *ResendSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := resend.NewCustomClient(srv.Client(), "re_test")
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return newResendSender(client, ResendConfig{FromEmail: "bookings@example.com"}, nil)
}

func TestResendSender_Send(t *testing.T) {
	var got resend.SendEmailRequest
	sender := newTestResendSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"email-1"}`))
	})

	err := sender.Send(context.Background(), EmailMessage{
		To:        "owner@example.com",
		ReplyTo:   "jane@example.com",
		Subject:   "New booking",
		Body:      "plain",
		HTML:      "<p>html</p>",
		BookingID: "booking-1",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultFromName+" <bookings@example.com>", got.From)
	assert.Equal(t, "jane@example.com", got.ReplyTo)
	assert.Equal(t, []resend.Tag{
		{Name: "category", Value: "booking-notification"},
		{Name: "booking_id", Value: "booking-1"},
	}, got.Tags)
	assert.Equal(t, []string{"owner@example.com"}, got.To)
	assert.Equal(t, "plain", got.Text)
	assert.Equal(t, "<p>html</p>", got.Html)
}

func TestResendSender_SendError(t *testing.T) {
	sender := newTestResendSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"invalid from"}`))
	})

	err := sender.Send(context.Background(), EmailMessage{To: "owner@example.com", Subject: "x", Body: "y"})
	assert.Error(t, err)
}

func TestResendSender_RequiresRecipient(t *testing.T) {
	sender := NewResendSender(ResendConfig{APIKey: "re_test", FromEmail: "bookings@example.com"}, nil)
	require.NotNil(t, sender)
	assert.Error(t, sender.Send(context.Background(), EmailMessage{Subject: "x"}))
}

func TestNewResendSender_NilWithoutAPIKey(t *testing.T) {
	assert.Nil(t, NewResendSender(ResendConfig{FromEmail: "bookings@example.com"}, nil))
}
