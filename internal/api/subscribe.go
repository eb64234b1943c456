package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/scholarwatch/scholarship-watcher/internal/domain"
	"github.com/scholarwatch/scholarship-watcher/internal/store"
)

type SubscribeHandler struct {
	store  store.SubscriberStore
	logger *slog.Logger
	now    func() time.Time
}

func NewSubscribeHandler(s store.SubscriberStore, logger *slog.Logger) *SubscribeHandler {
	return &SubscribeHandler{store: s, logger: logger, now: time.Now}
}

// subscribePayload is the wire shape before normalization. Countries is kept
// raw because callers send a native array, a JSON-stringified array, or a
// comma-separated string.
type subscribePayload struct {
	Email     string          `json:"email"`
	Countries json.RawMessage `json:"countries"`
	CreatedAt string          `json:"created_at"`
}

func (h *SubscribeHandler) Create(w http.ResponseWriter, r *http.Request) {
	payload, err := parseSubscribeBody(r)
	if err != nil {
		h.logger.Error("failed to parse subscribe body", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	req := domain.SubscribeRequest{
		Email:     strings.ToLower(strings.TrimSpace(payload.Email)),
		Countries: parseCountries(payload.Countries),
		CreatedAt: payload.CreatedAt,
	}
	if req.CreatedAt == "" {
		req.CreatedAt = domain.Timestamp(h.now())
	}

	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	subscriber := req.Subscriber()
	subscriber.Normalize()

	if err := h.store.Save(r.Context(), subscriber); err != nil {
		h.logger.Error("failed to save subscription",
			"error", err,
			"email", subscriber.Email,
		)
		respondError(w, http.StatusInternalServerError, "Failed to save subscription")
		return
	}

	h.logger.Info("subscription saved",
		"email", subscriber.Email,
		"countries", subscriber.Countries,
	)

	respondJSON(w, http.StatusOK, domain.SubscribeResponse{
		Success: true,
		Message: "Successfully subscribed to scholarship alerts",
		Subscriber: domain.SubscriberSummary{
			Email:     subscriber.Email,
			Countries: subscriber.Countries,
		},
	})
}

// parseSubscribeBody picks a parse strategy from the declared content type:
// JSON, form-encoded, or a best-effort JSON attempt that degrades to an empty
// payload so validation produces the 400 instead of a parse crash.
func parseSubscribeBody(r *http.Request) (subscribePayload, error) {
	var payload subscribePayload

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return payload, err
	}

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(contentType, "application/json"):
		if err := json.Unmarshal(body, &payload); err != nil {
			return payload, err
		}
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return payload, err
		}
		payload = payloadFromForm(values)
	default:
		// Unknown content type: try JSON, fall back to an empty payload.
		if err := json.Unmarshal(body, &payload); err != nil {
			payload = subscribePayload{}
		}
	}

	return payload, nil
}

func payloadFromForm(values url.Values) subscribePayload {
	payload := subscribePayload{
		Email:     values.Get("email"),
		CreatedAt: values.Get("created_at"),
	}

	if countries := values["countries"]; len(countries) > 1 {
		// Repeated fields, e.g. countries=NO&countries=SE.
		raw, _ := json.Marshal(countries)
		payload.Countries = raw
	} else if len(countries) == 1 {
		raw, _ := json.Marshal(countries[0])
		payload.Countries = raw
	}

	return payload
}

// parseCountries accepts a native array, a JSON-encoded array inside a
// string, or a comma-separated string. Entries come back trimmed and
// uppercased; anything unparseable yields an empty set.
func parseCountries(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return upperAll(list)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}

	// A stringified array like "[\"NO\",\"SE\"]".
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return upperAll(list)
	}

	return upperAll(strings.Split(s, ","))
}

func upperAll(in []string) []string {
	var out []string
	for _, c := range in {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// validationMessage surfaces the field message the client should see, email
// problems first.
func validationMessage(err error) string {
	var errs validation.Errors
	if errors.As(err, &errs) {
		if fieldErr, ok := errs["email"]; ok {
			return fieldErr.Error()
		}
		if fieldErr, ok := errs["countries"]; ok {
			return fieldErr.Error()
		}
		for _, fieldErr := range errs {
			return fieldErr.Error()
		}
	}
	return "Invalid request"
}
