package shared

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldpay/internal/transport/http/api"
)

type samplePayload struct {
	Email string  `json:"email" validate:"required,email"`
	Month string  `json:"month" validate:"required,month"`
	Date  string  `json:"openingDate" validate:"isodate"`
	Rate  float64 `json:"rate" validate:"gte=0"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	issues := ValidateStruct(&samplePayload{Email: "nope", Month: "2024-13", Date: "13/01/2024", Rate: -1})

	require.Len(t, issues, 4)
	fields := []string{issues[0].Field, issues[1].Field, issues[2].Field, issues[3].Field}
	assert.Equal(t, []string{"email", "month", "openingDate", "rate"}, fields)
	assert.Equal(t, "must be a month in YYYY-MM format", issues[1].Reason)
}

func TestValidateStructAcceptsValid(t *testing.T) {
	assert.Empty(t, ValidateStruct(&samplePayload{Email: "a@b.co", Month: "2024-03"}))
}

func TestDecodeWritesValidationEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":"a@b.co"}`))
	rec := httptest.NewRecorder()

	var payload samplePayload
	ok := Decode(rec, req, &payload, "req-1")

	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var env api.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "validation_error", env.Error.Code)
	assert.Equal(t, "req-1", env.RequestID)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{`))
	rec := httptest.NewRecorder()

	var payload samplePayload
	require.False(t, Decode(rec, req, &payload, ""))
	assert.Contains(t, rec.Body.String(), "invalid_payload")
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-1", nil)

	p := ParsePagination(req, 50, 200)

	assert.Equal(t, Pagination{Limit: 200, Offset: 0}, p)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("05.03.2024")
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", ClientIP(req))
}

func TestQueryMonth(t *testing.T) {
	m, err := QueryMonth(httptest.NewRequest(http.MethodGet, "/?month=2024-03", nil))
	require.NoError(t, err)
	assert.Equal(t, "2024-03", m.String())
}
