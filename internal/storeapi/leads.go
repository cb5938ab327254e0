package storeapi

import "context"

// CreateLead submits a contact or enquiry form.
func (client *Client) CreateLead(ctx context.Context, request LeadRequest) (Lead, error) {
	if request.VisitorID == "" {
		request.VisitorID = client.identity.VisitorID
	}
	if request.SessionID == "" {
		request.SessionID = client.identity.SessionID
	}
	var lead Lead
	err := client.post(ctx, "/crm/leads", request, &lead)
	return lead, err
}

// LeadNotes lists notes on a lead.
func (client *Client) LeadNotes(ctx context.Context, leadID string) ([]LeadNote, error) {
	var notes []LeadNote
	err := client.get(ctx, "/crm/leads/"+segment(leadID)+"/notes", nil, &notes)
	return notes, err
}

// AddLeadNote appends a note to a lead.
func (client *Client) AddLeadNote(ctx context.Context, leadID string, body string) (LeadNote, error) {
	payload := struct {
		Body string `json:"body"`
	}{Body: body}
	var note LeadNote
	err := client.post(ctx, "/crm/leads/"+segment(leadID)+"/notes", payload, &note)
	return note, err
}
