package whisper

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
	"github.com/Astrocyte74/tts-hub/internal/stt"
	"github.com/Astrocyte74/tts-hub/pkg/audiocodec"
	"github.com/Astrocyte74/tts-hub/pkg/types"
)

var _ stt.ASRModel = (*HTTPModel)(nil)

// HTTPModel is the pure-Go fallback ASR backend: it POSTs a WAV file to a
// running whisper.cpp server's /inference endpoint and parses the JSON
// response, for build environments without the native CGO binding.
type HTTPModel struct {
	serverURL  string
	model      string
	httpClient *http.Client
}

// LoadHTTP returns an stt.ASRLoader that targets serverURL, for
// deployments without the CGO native binding.
func LoadHTTP(serverURL, model string) stt.ASRLoader {
	return func(string) (stt.ASRModel, error) {
		if serverURL == "" {
			return nil, errors.New("whisper: serverURL must not be empty")
		}
		return &HTTPModel{
			serverURL:  serverURL,
			model:      model,
			httpClient: &http.Client{Timeout: 120 * time.Second},
		}, nil
	}
}

func (m *HTTPModel) Close() error { return nil }

type httpInferenceResult struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// Transcribe encodes samples as a WAV file and submits it to the
// whisper.cpp server's /inference endpoint as multipart/form-data,
// mirroring the teacher's HTTP Provider.infer encoding.
func (m *HTTPModel) Transcribe(ctx context.Context, samples []float32, rate int, language string) (types.Transcript, error) {
	wav, err := audiocodec.Encode(samples, rate)
	if err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper http: encode wav", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper http: create form file", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper http: write wav", err)
	}
	if language != "" {
		_ = mw.WriteField("language", language)
	}
	if m.model != "" {
		_ = mw.WriteField("model", m.model)
	}
	_ = mw.WriteField("response_format", "verbose_json")
	if err := mw.Close(); err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper http: close multipart writer", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.serverURL+"/inference", &body)
	if err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper http: build request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return types.Transcript{}, apperr.EngineUnavailable("whisper http: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Transcript{}, apperr.EngineFailure("whisper http: server returned HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper http: read response", err)
	}
	var result httpInferenceResult
	if err := json.Unmarshal(data, &result); err != nil {
		return types.Transcript{}, apperr.Wrap(apperr.KindEngineFailure, "whisper http: parse response", err)
	}

	segments := make([]types.Segment, 0, len(result.Segments))
	var words []types.Word
	for _, seg := range result.Segments {
		segments = append(segments, types.Segment{Text: seg.Text, Start: seg.Start, End: seg.End})
		words = append(words, wordsFromSegment(seg.Text, seg.Start, seg.End)...)
	}

	lang := result.Language
	if lang == "" {
		lang = language
	}
	if lang == "" {
		lang = "en"
	}

	duration := float64(len(samples)) / float64(rate)
	if len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}

	return types.Transcript{
		Language: lang,
		Duration: duration,
		Segments: segments,
		Words:    words,
	}, nil
}
