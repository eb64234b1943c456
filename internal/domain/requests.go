package domain

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// emailPattern is a structural check, not full RFC validation: something
// before the @, something after it, and a dot in the domain part.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SubscribeRequest is a subscription submission after body parsing and
// normalization. Email is expected lowercase, countries uppercase.
type SubscribeRequest struct {
	Email     string   `json:"email"`
	Countries []string `json:"countries"`
	CreatedAt string   `json:"created_at,omitempty"`
}

func (r SubscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email,
			validation.Required.Error("Invalid email address"),
			validation.Match(emailPattern).Error("Invalid email address"),
		),
		validation.Field(&r.Countries,
			validation.Required.Error("At least one country must be selected"),
		),
	)
}

// Subscriber builds the record that gets handed to the store.
func (r SubscribeRequest) Subscriber() Subscriber {
	return Subscriber{
		Email:     r.Email,
		Countries: r.Countries,
		CreatedAt: r.CreatedAt,
		Active:    true,
	}
}

// SubscribeResponse is the success body for POST /subscribe.
type SubscribeResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Subscriber SubscriberSummary `json:"subscriber"`
}

// SubscriberSummary is the subset of the record echoed back to the client.
type SubscriberSummary struct {
	Email     string   `json:"email"`
	Countries []string `json:"countries"`
}

// CountriesResponse is the body for GET /countries.
type CountriesResponse struct {
	Countries []Country `json:"countries"`
}
