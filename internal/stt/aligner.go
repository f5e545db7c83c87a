package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

var _ Aligner = (*HTTPAligner)(nil)

// HTTPAligner is the pure-Go forced-alignment backend: it POSTs the audio
// and a known transcript to a forced-alignment service's /align endpoint
// and parses back refined word timings, mirroring the whisper HTTPModel's
// multipart encoding for the ASR path.
type HTTPAligner struct {
	serverURL  string
	httpClient *http.Client
}

// NewHTTPAligner returns an Aligner targeting serverURL. An empty
// serverURL is valid and makes every Align call fail with
// apperr.EngineUnavailable, matching Service's "nil aligner" contract
// without requiring callers to branch on construction.
func NewHTTPAligner(serverURL string) *HTTPAligner {
	return &HTTPAligner{serverURL: serverURL, httpClient: &http.Client{Timeout: 60 * time.Second}}
}

type alignResponse struct {
	Words []struct {
		Text       string  `json:"text"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

// Align submits samples and the known text to the alignment server and
// returns the word-level timings it reports.
func (a *HTTPAligner) Align(ctx context.Context, samples []float32, rate int, text string) ([]types.Word, error) {
	if a.serverURL == "" {
		return nil, apperr.EngineUnavailable("aligner: no server configured")
	}

	wav, err := audiocodec.Encode(samples, rate)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "aligner: encode wav", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "aligner: create form file", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "aligner: write wav", err)
	}
	if err := mw.WriteField("text", text); err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "aligner: write text field", err)
	}
	if err := mw.Close(); err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "aligner: close multipart writer", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.serverURL+"/align", &body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "aligner: build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, apperr.EngineUnavailable("aligner: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.EngineFailure("aligner: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "aligner: read response", err)
	}
	var result alignResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, apperr.Wrap(apperr.KindEngineFailure, "aligner: parse response", err)
	}
	if len(result.Words) == 0 {
		return nil, errors.New("aligner: server returned no words")
	}

	words := make([]types.Word, len(result.Words))
	for i, w := range result.Words {
		words[i] = types.Word{Text: w.Text, Start: w.Start, End: w.End, Confidence: w.Confidence}
	}
	return words, nil
}
