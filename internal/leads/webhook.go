package leads

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Schofield90/whatsapp-lead-system/internal/apperr"
)

// Lead sources accepted on the ingestion webhook.
const (
	SourceFacebook = "facebook"
	SourceGHL      = "ghl"
	SourceManual   = "manual"
)

// facebookPayload is a Facebook lead-ads submission as forwarded by the
// ads integration: flat fields plus the raw field_data list.
type facebookPayload struct {
	OrgID       string `json:"org_id"`
	LeadgenID   string `json:"leadgen_id"`
	FormID      string `json:"form_id"`
	AdName      string `json:"ad_name"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
	FieldData   []struct {
		Name   string   `json:"name"`
		Values []string `json:"values"`
	} `json:"field_data"`
}

// ghlPayload is a GoHighLevel contact webhook.
type ghlPayload struct {
	OrgID     string `json:"org_id"`
	ContactID string `json:"contact_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	Location  struct {
		ID string `json:"id"`
	} `json:"location"`
}

// IngestWebhook handles POST /webhooks/leads/{source}. Token verification
// happens in middleware; the organization comes from the payload or the
// org_id query parameter.
func (h *Handler) IngestWebhook(w http.ResponseWriter, r *http.Request) {
	source := strings.ToLower(chi.URLParam(r, "source"))

	var (
		req *CreateLeadRequest
		err error
	)
	switch source {
	case SourceFacebook:
		req, err = decodeFacebook(r)
	case SourceGHL:
		req, err = decodeGHL(r)
	case SourceManual:
		req, err = decodeManual(r)
	default:
		err = apperr.Validation("leads.webhook", "unknown lead source", map[string]any{"source": source})
	}
	if err != nil {
		h.logger.Warn("lead webhook rejected", "source", source, "error", err)
		apperr.WriteError(w, err)
		return
	}
	if req.OrgID == "" {
		req.OrgID = strings.TrimSpace(r.URL.Query().Get("org_id"))
	}
	req.Source = source

	lead, created, err := h.createOrGet(r.Context(), req)
	if err != nil {
		h.logger.Error("lead webhook failed", "source", source, "error", err)
		apperr.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	apperr.WriteJSON(w, status, map[string]any{
		"lead_id": lead.ID,
		"created": created,
	})
}

func decodeFacebook(r *http.Request) (*CreateLeadRequest, error) {
	var p facebookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return nil, apperr.Validation("leads.webhook", "invalid facebook payload", nil)
	}
	fields := map[string]string{}
	for _, f := range p.FieldData {
		if len(f.Values) > 0 {
			fields[strings.ToLower(f.Name)] = strings.TrimSpace(f.Values[0])
		}
	}
	req := &CreateLeadRequest{
		OrgID: p.OrgID,
		Name:  firstNonEmpty(p.FullName, fields["full_name"], strings.TrimSpace(fields["first_name"]+" "+fields["last_name"])),
		Phone: firstNonEmpty(p.PhoneNumber, fields["phone_number"], fields["phone"]),
		Email: firstNonEmpty(p.Email, fields["email"]),
		Metadata: compactMetadata(map[string]string{
			"leadgen_id": p.LeadgenID,
			"form_id":    p.FormID,
			"ad_name":    p.AdName,
		}),
	}
	return req, nil
}

func decodeGHL(r *http.Request) (*CreateLeadRequest, error) {
	var p ghlPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		return nil, apperr.Validation("leads.webhook", "invalid ghl payload", nil)
	}
	return &CreateLeadRequest{
		OrgID:   p.OrgID,
		Name:    firstNonEmpty(p.FullName, strings.TrimSpace(p.FirstName+" "+p.LastName)),
		Phone:   p.Phone,
		Email:   p.Email,
		Message: p.Message,
		Metadata: compactMetadata(map[string]string{
			"ghl_contact_id":  p.ContactID,
			"ghl_location_id": p.Location.ID,
		}),
	}, nil
}

func decodeManual(r *http.Request) (*CreateLeadRequest, error) {
	var req struct {
		CreateLeadRequest
		OrgID string `json:"org_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperr.Validation("leads.webhook", "invalid payload", nil)
	}
	out := req.CreateLeadRequest
	out.OrgID = req.OrgID
	return &out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func compactMetadata(md map[string]string) map[string]string {
	for k, v := range md {
		if v == "" {
			delete(md, k)
		}
	}
	if len(md) == 0 {
		return nil
	}
	return md
}
