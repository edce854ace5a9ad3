package metrics

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// MessageKind names a payload type in the compiler's message stream.
type MessageKind string

const MessageMetrics MessageKind = "metrics"

type envelope struct {
	Message json.RawMessage `json:"message"`
}

// FindMessageInStream scans a captured stdout stream for the first message
// of the requested kind. The stream is newline-delimited: each line is a
// JSON envelope {"message": <payload>}. Lines that are not valid JSON, or
// whose payload does not validate against the metrics schema, are skipped
// with a diagnostic; the scan never fails on malformed input. Returns nil
// if the stream holds no valid message of that kind.
func FindMessageInStream(logger *slog.Logger, stream string, kind MessageKind) *Metrics {
	if kind != MessageMetrics {
		logger.Error("unsupported message kind requested", slog.String("kind", string(kind)))
		return nil
	}

	for _, line := range strings.Split(strings.TrimRight(stream, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		var env envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			logger.Debug("skipping non-JSON message line", slog.String("error", err.Error()))
			continue
		}
		if len(env.Message) == 0 {
			logger.Debug("skipping message line without a payload")
			continue
		}

		m, err := decodeMetricsPayload(env.Message)
		if err != nil {
			logger.Debug("skipping message with non-metrics payload", slog.String("error", err.Error()))
			continue
		}
		return m
	}

	return nil
}

// decodeMetricsPayload validates a loose payload value against the Metrics
// schema. Unknown fields anywhere in the payload reject it, which is what
// distinguishes a metrics message from the compiler's other message kinds.
func decodeMetricsPayload(raw json.RawMessage) (*Metrics, error) {
	var loose map[string]any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, err
	}

	m := &Metrics{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      m,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(loose); err != nil {
		return nil, err
	}
	if m.Stages == nil {
		return nil, errMissingStages
	}
	return m, nil
}

var errMissingStages = errors.New(`payload has no "metrics" mapping`)
