package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestValidateTestimonial(t *testing.T) {
	t.Parallel()

	valid := TestimonialPayload{
		CustomerName: "Jane Doe",
		Rating:       intPtr(5),
		Text:         "Great product, highly recommend it!",
	}

	tests := []struct {
		name   string
		mutate func(p *TestimonialPayload)
		fields []string
	}{
		{"valid", func(*TestimonialPayload) {}, nil},
		{"missing name", func(p *TestimonialPayload) { p.CustomerName = "" }, []string{"customer_name"}},
		{"missing rating", func(p *TestimonialPayload) { p.Rating = nil }, []string{"rating"}},
		{"rating zero", func(p *TestimonialPayload) { p.Rating = intPtr(0) }, []string{"rating"}},
		{"rating six", func(p *TestimonialPayload) { p.Rating = intPtr(6) }, []string{"rating"}},
		{"rating one", func(p *TestimonialPayload) { p.Rating = intPtr(1) }, nil},
		{"text nine chars", func(p *TestimonialPayload) { p.Text = "123456789" }, []string{"text"}},
		{"text ten chars", func(p *TestimonialPayload) { p.Text = "1234567890" }, nil},
		{"text counts runes", func(p *TestimonialPayload) { p.Text = "ééééééééé" }, []string{"text"}},
		{"long company", func(p *TestimonialPayload) { p.CustomerCompany = strings.Repeat("x", 101) }, []string{"customer_company"}},
		{"bad avatar", func(p *TestimonialPayload) { p.CustomerAvatarURL = "javascript:alert(1)" }, []string{"customer_avatar_url"}},
		{"everything wrong", func(p *TestimonialPayload) {
			p.CustomerName = ""
			p.Rating = nil
			p.Text = "short"
		}, []string{"customer_name", "rating", "text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			fields := ValidateTestimonial(p.Normalize())
			if tt.fields == nil {
				assert.Nil(t, fields)
				return
			}
			assert.Len(t, fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, fields, f)
			}
		})
	}
}

func TestTestimonialPayload_NormalizeTrimsBeforeLengthCheck(t *testing.T) {
	t.Parallel()

	p := TestimonialPayload{CustomerName: "   ", Rating: intPtr(3), Text: "   padded   "}.Normalize()
	fields := ValidateTestimonial(p)
	assert.Equal(t, "Name is required", fields["customer_name"])
	assert.Contains(t, fields, "text")
}
