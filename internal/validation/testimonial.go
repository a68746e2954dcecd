package validation

import (
	"strings"
	"unicode/utf8"
)

const (
	// MinTestimonialTextLength is the shortest accepted quote, in characters.
	MinTestimonialTextLength = 10
	maxTestimonialTextLength = 5000
	maxCustomerFieldLength   = 100
	maxAvatarURLLength       = 2048
)

// TestimonialPayload is the customer-provided part of a public submission.
type TestimonialPayload struct {
	CustomerName      string
	CustomerTitle     string
	CustomerCompany   string
	CustomerAvatarURL string
	Rating            *int
	Text              string
}

// Normalize trims surrounding whitespace from every text field.
func (p TestimonialPayload) Normalize() TestimonialPayload {
	p.CustomerName = strings.TrimSpace(p.CustomerName)
	p.CustomerTitle = strings.TrimSpace(p.CustomerTitle)
	p.CustomerCompany = strings.TrimSpace(p.CustomerCompany)
	p.CustomerAvatarURL = strings.TrimSpace(p.CustomerAvatarURL)
	p.Text = strings.TrimSpace(p.Text)
	return p
}

// ValidateTestimonial returns one message per invalid field, or nil when the payload is acceptable.
// Callers should pass a normalized payload.
func ValidateTestimonial(p TestimonialPayload) map[string]string {
	fields := map[string]string{}

	switch {
	case p.CustomerName == "":
		fields["customer_name"] = "Name is required"
	case utf8.RuneCountInString(p.CustomerName) > maxCustomerFieldLength:
		fields["customer_name"] = "Name is too long"
	}
	if utf8.RuneCountInString(p.CustomerTitle) > maxCustomerFieldLength {
		fields["customer_title"] = "Title is too long"
	}
	if utf8.RuneCountInString(p.CustomerCompany) > maxCustomerFieldLength {
		fields["customer_company"] = "Company is too long"
	}
	if p.CustomerAvatarURL != "" {
		if len(p.CustomerAvatarURL) > maxAvatarURLLength {
			fields["customer_avatar_url"] = "Avatar URL is too long"
		} else if _, err := ParseOrigin(p.CustomerAvatarURL); err != nil {
			fields["customer_avatar_url"] = "Avatar must be an http(s) URL"
		}
	}

	if p.Rating == nil || *p.Rating < 1 || *p.Rating > 5 {
		fields["rating"] = "Please rate your experience"
	}

	switch n := utf8.RuneCountInString(p.Text); {
	case n < MinTestimonialTextLength:
		fields["text"] = "Please provide more detail (at least 10 chars)"
	case n > maxTestimonialTextLength:
		fields["text"] = "Testimonial is too long"
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}
