package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzuther/lalikan/internal/backuplevel"
)

func TestRunHookNoopOnEmptyCommand(t *testing.T) {
	require.NoError(t, RunHook(context.Background(), "music", ""))
}

func TestRunHookReportsFailure(t *testing.T) {
	err := RunHook(context.Background(), "music", "exit 1")
	assert.Error(t, err)
}

func TestRunHookRunsThroughShell(t *testing.T) {
	require.NoError(t, RunHook(context.Background(), "music", "test -n \"$HOME\""))
}

func TestOutcomeDuration(t *testing.T) {
	start := time.Now()
	outcome := Outcome{StartedAt: start, EndedAt: start.Add(90 * time.Second)}
	assert.Equal(t, 90*time.Second, outcome.Duration())
}

func TestRunNotificationHookSubstitutesEveryPlaceholder(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "notify.out")
	command := fmt.Sprintf("printf '%%s|%%s|%%s|%%s' '{application}' '{message}' '{urgency}' '{expiration}' > %s", outFile)

	start := time.Now()
	outcome := Outcome{Job: "music", Level: backuplevel.Full, StartedAt: start, EndedAt: start.Add(time.Minute)}

	require.NoError(t, RunNotificationHook(context.Background(), outcome, command))

	contents, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "lalikan (music)|full backup completed in 1m0s|normal|30000", string(contents))
}

func TestRunNotificationHookMarksErrorsCriticalAndNonExpiring(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "notify.out")
	command := fmt.Sprintf("printf '%%s|%%s' '{urgency}' '{expiration}' > %s", outFile)

	outcome := Outcome{Job: "music", Level: backuplevel.Incr, Err: assert.AnError}

	require.NoError(t, RunNotificationHook(context.Background(), outcome, command))

	contents, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "critical|0", string(contents))
}

func TestRunNotificationHookNoopOnEmptyCommand(t *testing.T) {
	require.NoError(t, RunNotificationHook(context.Background(), Outcome{Job: "music"}, ""))
}

func TestSlackSinkSkipsWhenNoWebhookConfigured(t *testing.T) {
	sink := SlackSink{}
	require.NoError(t, sink.Notify(Outcome{Job: "music", Level: backuplevel.Full}))
}

func TestSlackSinkPostsAttachmentForSuccess(t *testing.T) {
	var received slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := SlackSink{WebhookURL: server.URL}
	err := sink.Notify(Outcome{
		Job:       "music",
		Level:     backuplevel.Diff,
		StartedAt: time.Now().Add(-time.Minute),
		EndedAt:   time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "good", received.Attachments[0].Color)
}

func TestSlackSinkMarksFailureRed(t *testing.T) {
	var received slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := SlackSink{WebhookURL: server.URL}
	err := sink.Notify(Outcome{Job: "music", Level: backuplevel.Incr, Err: assert.AnError})
	require.NoError(t, err)
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "danger", received.Attachments[0].Color)
	assert.Equal(t, assert.AnError.Error(), received.Attachments[0].Text)
}

func TestSlackSinkReturnsErrorOnNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := SlackSink{WebhookURL: server.URL}
	err := sink.Notify(Outcome{Job: "music", Level: backuplevel.Full})
	assert.Error(t, err)
}
