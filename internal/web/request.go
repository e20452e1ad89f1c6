package web

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goccy/go-json"

	"github.com/JonMunkholm/plotapi/internal/ingest"
)

// maxJSONBody bounds the fetch-url request body.
const maxJSONBody = 64 << 10

// FetchRequest is the body of POST /api/fetch-url.
type FetchRequest struct {
	URL       string `json:"url"`
	Delimiter string `json:"delimiter,omitempty"`
}

// Validate checks the request fields.
func (f FetchRequest) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.URL, validation.Required, is.URL),
		validation.Field(&f.Delimiter, validation.By(func(v any) error {
			_, err := ingest.ParseDelimiter(v.(string))
			return err
		})),
	)
}

// decodeFetchRequest reads and validates a FetchRequest.
func decodeFetchRequest(w http.ResponseWriter, r *http.Request) (FetchRequest, error) {
	var req FetchRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		return req, &ingest.Error{Kind: ingest.KindBadInput, Msg: "invalid JSON body", Err: err}
	}
	req.URL = strings.TrimSpace(req.URL)

	if err := req.Validate(); err != nil {
		return req, &ingest.Error{Kind: ingest.KindBadInput, Msg: "invalid request", Err: err}
	}
	return req, nil
}
