package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/psds-microservice/crm-service/internal/errs"
	"github.com/psds-microservice/crm-service/internal/model"
	"github.com/psds-microservice/crm-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		wantPrio  model.TicketPriority
		wantEmail string
		hasEmail  bool
		hasName   bool
	}{
		{
			name:      "full payload",
			raw:       `{"title":"Login","description":"Kann mich nicht anmelden","priority":"Hoch","customerName":"Max","customerEmail":"max@muster.de"}`,
			wantPrio:  model.TicketPriorityHigh,
			wantEmail: "max@muster.de",
			hasEmail:  true,
			hasName:   true,
		},
		{
			name:     "null sender and english priority",
			raw:      `{"title":"Login","description":"x","priority":"urgent","customerName":null,"customerEmail":null}`,
			wantPrio: model.TicketPriorityUrgent,
		},
		{
			name:     "blank email treated as absent, unknown priority defaults",
			raw:      "```json\n{\"title\":\"A\",\"description\":\"B\",\"priority\":\"sofort\",\"customerEmail\":\"  \"}\n```",
			wantPrio: model.TicketPriorityMedium,
		},
		{name: "not json", raw: "Ich konnte das nicht lesen", wantErr: true},
		{name: "missing title", raw: `{"description":"x","priority":"Hoch"}`, wantErr: true},
		{name: "empty object", raw: `{}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, errs.ErrExtractionFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrio, got.Priority)
			email, ok := got.CustomerEmail.Get()
			assert.Equal(t, tt.hasEmail, ok)
			assert.Equal(t, tt.wantEmail, email)
			assert.Equal(t, tt.hasName, got.CustomerName.Present())
		})
	}
}

func TestOpt_JSON(t *testing.T) {
	b, err := json.Marshal(Extracted{Title: "t", Description: "d", Priority: model.TicketPriorityLow, CustomerEmail: Some("a@b.de")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"t","description":"d","priority":"Niedrig","customerName":null,"customerEmail":"a@b.de"}`, string(b))

	var e Extracted
	require.NoError(t, json.Unmarshal([]byte(`{"title":"t","customerName":"Eva"}`), &e))
	assert.Equal(t, "Eva", e.CustomerName.Or("?"))
	assert.False(t, e.CustomerEmail.Present())
	assert.Equal(t, "fallback", e.CustomerEmail.Or("fallback"))
}

// fakeCompletions отвечает как /chat/completions с заданным content.
func fakeCompletions(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			fmt.Fprint(w, `{"error":{"message":"quota exceeded","type":"rate_limit"}}`)
			return
		}
		body, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		})
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Extract(t *testing.T) {
	srv := fakeCompletions(t, http.StatusOK, `{"title":"Rechnung","description":"Rechnung fehlt","priority":"Mittel","customerEmail":"erika@schmidt.de"}`)
	c := NewClient("test-key", srv.URL+"/v1/", "test-model", testutil.Logger())

	got, err := c.Extract(context.Background(), "Hallo, meine Rechnung fehlt. Erika")
	require.NoError(t, err)
	assert.Equal(t, "Rechnung", got.Title)
	assert.Equal(t, "erika@schmidt.de", got.CustomerEmail.Or(""))
	assert.False(t, got.CustomerName.Present())
}

func TestClient_ExtractFailures(t *testing.T) {
	srv := fakeCompletions(t, http.StatusTooManyRequests, "")
	c := NewClient("test-key", srv.URL+"/v1", "test-model", testutil.Logger())
	_, err := c.Extract(context.Background(), "x")
	assert.ErrorIs(t, err, errs.ErrExtractionFailed)

	srv = fakeCompletions(t, http.StatusOK, "kein json")
	c = NewClient("test-key", srv.URL+"/v1", "test-model", testutil.Logger())
	_, err = c.Extract(context.Background(), "x")
	assert.ErrorIs(t, err, errs.ErrExtractionFailed)
}

func TestClient_ExtractHonoursDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	c := NewClient("test-key", srv.URL+"/v1", "test-model", testutil.Logger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Extract(ctx, "x")
	assert.ErrorIs(t, err, errs.ErrExtractionFailed)
}

func TestClient_Summarize(t *testing.T) {
	srv := fakeCompletions(t, http.StatusOK, "  Zwei Login-Probleme, beide gelöst. ")
	c := NewClient("test-key", srv.URL+"/v1", "test-model", testutil.Logger())
	got, err := c.Summarize(context.Background(), "Max", []string{"Login: geht nicht", "Login: wieder"})
	require.NoError(t, err)
	assert.Equal(t, "Zwei Login-Probleme, beide gelöst.", got)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Extract(context.Background(), "x")
	assert.ErrorIs(t, err, errs.ErrExtractionFailed)
	assert.ErrorIs(t, err, errs.ErrExtractionUnavailable)
	_, err = Disabled{}.Summarize(context.Background(), "x", nil)
	assert.ErrorIs(t, err, errs.ErrExtractionUnavailable)
}
