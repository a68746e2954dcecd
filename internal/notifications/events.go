package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types delivered to dashboard subscribers of a project.
const (
	EventTestimonialSubmitted = "testimonial.submitted"
	EventTestimonialApproved  = "testimonial.approved"
	EventTestimonialFeatured  = "testimonial.featured"
	EventTokenIssued          = "token.issued"
	EventTokenCancelled       = "token.cancelled"
	EventWidgetUpdated        = "widget.updated"
	EventCollectLinkToggled   = "collect_link.toggled"
)

// Event is the JSON envelope published on a project's channel.
type Event struct {
	Type       string      `json:"type"`
	ProjectID  uuid.UUID   `json:"project_id"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// NewEvent stamps an event for projectID with the current time.
func NewEvent(eventType string, projectID uuid.UUID, payload interface{}) Event {
	return Event{
		Type:       eventType,
		ProjectID:  projectID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) encode() (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
