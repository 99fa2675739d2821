package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Recognizer backends. The rule recognizer ships in-process and needs
// no model files; the remote recognizer calls an external tagging
// service over HTTP. Either may be absent, in which case the pipeline
// runs degraded on layers 1, 1.5 and 3 alone.

// personCandidate matches runs of two to five capitalized words,
// optionally led by a title, after uppercase normalization has restored
// title case. Connectors (de, la, del, y) are admitted between words.
var personCandidate = regexp.MustCompile(
	`\b(?:(?:Ing|Econ|Dr|Dra|Mgs|Ab|Sr|Sra|Lic)\.?\s+)?` +
		`[A-ZÁÉÍÓÚÑ][a-záéíóúüñ]+` +
		`(?:\s+(?:de|del|la|los|las|y|[A-ZÁÉÍÓÚÑ][a-záéíóúüñ]+)){1,4}\b`)

// RuleRecognizer tags person candidates with capitalization heuristics.
// It over-generates on purpose; the detector's rejection filter does
// the narrowing.
type RuleRecognizer struct{}

// NewRuleRecognizer returns the built-in heuristic tagger.
func NewRuleRecognizer() *RuleRecognizer {
	return &RuleRecognizer{}
}

func (r *RuleRecognizer) Recognize(_ context.Context, text string) ([]Entity, error) {
	matches := personCandidate.FindAllString(text, -1)

	out := make([]Entity, 0, len(matches))
	for _, m := range matches {
		// Strip a leading title; the candidate is the name itself
		value := strings.TrimSpace(m)
		for _, title := range []string{"Ing.", "Econ.", "Dr.", "Dra.", "Mgs.", "Ab.", "Sr.", "Sra.", "Lic.",
			"Ing ", "Econ ", "Dr ", "Dra ", "Mgs ", "Ab ", "Sr ", "Sra ", "Lic "} {
			if strings.HasPrefix(value, title) {
				value = strings.TrimSpace(strings.TrimPrefix(value, title))
				break
			}
		}
		if value == "" {
			continue
		}
		out = append(out, Entity{Text: value, Label: LabelPerson})
	}
	return out, nil
}

// RemoteRecognizer calls an external NER service. Request and response
// bodies are JSON: {"text": ...} in, {"entities": [{"text", "label"}]}
// out.
type RemoteRecognizer struct {
	endpoint string
	client   *http.Client
}

// NewRemoteRecognizer returns a recognizer backed by the tagging
// service at endpoint.
func NewRemoteRecognizer(endpoint string, timeout time.Duration) *RemoteRecognizer {
	return &RemoteRecognizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type remoteRequest struct {
	Text string `json:"text"`
}

type remoteResponse struct {
	Entities []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
	} `json:"entities"`
}

func (r *RemoteRecognizer) Recognize(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(remoteRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building ner request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: service returned %d", ErrModelUnavailable, resp.StatusCode)
	}

	var decoded remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding ner response: %w", err)
	}

	out := make([]Entity, 0, len(decoded.Entities))
	for _, e := range decoded.Entities {
		out = append(out, Entity{Text: e.Text, Label: e.Label})
	}
	return out, nil
}
