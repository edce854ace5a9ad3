package metrics

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const metricsLine = `{"message":{"metrics":{"parse":{"total":{"start_rss":1,"end_rss":2,"duration":{"secs":0,"nanos":500000}},"children":{"metrics":{}}}}}}`

func TestFindMessageInStream(t *testing.T) {
	t.Run("skips malformed lines and returns the first valid payload", func(t *testing.T) {
		stream := strings.Join([]string{"not json", metricsLine}, "\n")

		m := FindMessageInStream(discardLogger(), stream, MessageMetrics)
		require.NotNil(t, m)

		parse, ok := m.Stages["parse"]
		require.True(t, ok)
		assert.Equal(t, int64(1), *parse.Total.StartRSS)
		assert.Equal(t, int64(2), *parse.Total.EndRSS)
		assert.Equal(t, Duration{Secs: 0, Nanos: 500000}, parse.Total.Duration)
		assert.Empty(t, parse.Children.Stages)
	})

	t.Run("skips payloads of other message kinds", func(t *testing.T) {
		stream := strings.Join([]string{
			`{"message":{"diagnostics":[{"severity":"warning"}]}}`,
			metricsLine,
		}, "\n")

		m := FindMessageInStream(discardLogger(), stream, MessageMetrics)
		require.NotNil(t, m)
		assert.Contains(t, m.Stages, "parse")
	})

	t.Run("null rss fields decode as missing", func(t *testing.T) {
		stream := `{"message":{"metrics":{"parse":{"total":{"start_rss":null,"end_rss":null,"duration":{"secs":1,"nanos":0}},"children":{"metrics":{}}}}}}`

		m := FindMessageInStream(discardLogger(), stream, MessageMetrics)
		require.NotNil(t, m)
		assert.Nil(t, m.Stages["parse"].Total.StartRSS)
		assert.Nil(t, m.Stages["parse"].Total.EndRSS)
	})

	t.Run("decodes a nested stage tree", func(t *testing.T) {
		stream := `{"message":{"metrics":{"build":{"total":{"start_rss":1,"end_rss":2,"duration":{"secs":1,"nanos":0}},"children":{"metrics":{"parse":{"total":{"start_rss":1,"end_rss":1,"duration":{"secs":0,"nanos":1000}},"children":{"metrics":{}}}}}}}}}`

		m := FindMessageInStream(discardLogger(), stream, MessageMetrics)
		require.NotNil(t, m)
		assert.Contains(t, m.Stages["build"].Children.Stages, "parse")
	})

	t.Run("returns nil after exhausting the stream", func(t *testing.T) {
		stream := strings.Join([]string{
			"garbage",
			`{"other":"shape"}`,
			`{"message":{"metrics":null}}`,
			"",
		}, "\n")

		assert.Nil(t, FindMessageInStream(discardLogger(), stream, MessageMetrics))
	})

	t.Run("empty stream yields nil", func(t *testing.T) {
		assert.Nil(t, FindMessageInStream(discardLogger(), "", MessageMetrics))
	})
}
