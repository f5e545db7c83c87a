// Package streamproxy relays an upstream newline-JSON or WebSocket stream
// (Ollama generate/chat, a remote cloning engine's progress feed) to an SSE
// client, translating whichever upstream framing it got into the single
// "data: <json>\n\n" shape browsers can consume uniformly.
package streamproxy

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/Astrocyte74/tts-hub/internal/apperr"
)

// startingEvent is sent immediately on every relay to establish liveness
// before the upstream call has produced anything.
var startingEvent = []byte(`{"status":"starting"}`)

// PrepareSSE sets the response headers an SSE stream needs and writes the
// initial liveness frame. Callers must have not yet written anything to w.
func PrepareSSE(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	writeFrame(w, startingEvent)
}

func writeFrame(w http.ResponseWriter, line []byte) {
	fmt.Fprintf(w, "data: %s\n\n", line)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// RelayNDJSON reads newline-delimited JSON lines from upstream and emits
// one SSE frame per line verbatim, until upstream is exhausted or ctx is
// cancelled. There is no server-side timeout — the client controls the
// relay's lifetime by closing its connection.
func RelayNDJSON(ctx context.Context, w http.ResponseWriter, upstream io.Reader) error {
	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		writeFrame(w, []byte(line))
	}
	return scanner.Err()
}

// RelayWebSocket dials wsURL, sends outgoing as a single text message, and
// relays every subsequent message it receives as an SSE frame until the
// upstream closes the connection or ctx is cancelled — mirroring the
// teacher's ElevenLabs provider's dial-write-then-read-loop shape, except
// the destination is an SSE client rather than an audio channel.
func RelayWebSocket(ctx context.Context, w http.ResponseWriter, wsURL string, outgoing []byte) error {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return apperr.EngineUnavailable("streamproxy: dial %s: %v", wsURL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "relay done")

	if outgoing != nil {
		if err := conn.Write(ctx, websocket.MessageText, outgoing); err != nil {
			return apperr.Wrap(apperr.KindEngineFailure, "streamproxy: send initial message", err)
		}
	}

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A closed upstream socket ends the relay cleanly; the client
			// sees the SSE stream simply stop.
			return nil
		}
		writeFrame(w, msg)
	}
}

// NonStreamingPassthrough copies body verbatim to w with status, for the
// "stream:false" branch of a proxy endpoint: the upstream response is
// returned as-is rather than reframed as SSE.
func NonStreamingPassthrough(w http.ResponseWriter, status int, contentType string, body []byte) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// WantsStreaming reports whether a JSON request payload wants a streamed
// response. It is false only when the payload carries a boolean "stream"
// set to false; any other value (including the key's absence) means
// streaming.
func WantsStreaming(payload map[string]any) bool {
	if v, ok := payload["stream"].(bool); ok {
		return v
	}
	return true
}

// notFoundPatterns are the stderr/stdout substrings a local CLI fallback or
// an upstream HTTP response treats as "the thing we tried to delete is
// already gone" — i.e., a no-op success rather than a failure.
var notFoundPatterns = []string{
	"not found",
	"no such entity",
	"does not exist",
	"no such model",
}

// IsNotFoundLike reports whether message matches one of the recognized
// "target already absent" phrasings, case-insensitively.
func IsNotFoundLike(message string) bool {
	lower := strings.ToLower(message)
	for _, pattern := range notFoundPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// ShouldFallbackToCLI reports whether an upstream HTTP response's status
// warrants retrying a delete/remove operation through a local CLI
// invocation instead — 404 and 405 per the documented fallback rule.
func ShouldFallbackToCLI(status int) bool {
	return status == http.StatusNotFound || status == http.StatusMethodNotAllowed
}

// DecodeJSONLine parses one NDJSON line or WebSocket text message into a
// map; a malformed line is reported as bad_request.
func DecodeJSONLine(line []byte) (map[string]any, error) {
	var v map[string]any
	if err := json.Unmarshal(line, &v); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "streamproxy: decode line", err)
	}
	return v, nil
}
