// Package notify runs the pre-run, post-run and result hooks a job can
// configure, and mirrors run outcomes to Slack. Shell hooks are grounded
// on the original tool's "sh -c" composition pattern (backup-full.go);
// the webhook payload shape is grounded on its slack.go.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mzuther/lalikan/internal/backuplevel"
	"github.com/mzuther/lalikan/internal/logging"
)

// RunHook executes command through the shell, the same "sh -c" wrapping
// the original tool used for every external command, so the configured
// string may itself contain pipes and redirections. An empty command is
// a no-op, not an error: command-pre-run/command-post-run are optional.
func RunHook(ctx context.Context, job, command string) error {
	if command == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		logging.For(job).Error().Err(err).Str("output", string(output)).Msg("hook failed")
		return fmt.Errorf("notify: hook %q failed: %w", command, err)
	}
	logging.For(job).Debug().Str("output", string(output)).Msg("hook completed")
	return nil
}

// Outcome summarises one completed (or failed) backup run, the payload
// handed to the command-notification hook and to Slack.
type Outcome struct {
	Job       string
	Level     backuplevel.Level
	StartedAt time.Time
	EndedAt   time.Time
	Err       error
}

func (o Outcome) Duration() time.Duration { return o.EndedAt.Sub(o.StartedAt) }

// Summary renders a one-line human-readable description of the
// outcome, the {message} placeholder's value.
func (o Outcome) Summary() string {
	if o.Err != nil {
		return fmt.Sprintf("%s backup failed: %v", o.Level, o.Err)
	}
	return fmt.Sprintf("%s backup completed in %s", o.Level, o.Duration())
}

// notifyUrgency and notifyExpirationMillis mirror the original tool's
// __notify_user: informational messages expire after 30 seconds,
// warnings and errors never expire on their own.
func notifyUrgency(outcome Outcome) string {
	if outcome.Err != nil {
		return "critical"
	}
	return "normal"
}

func notifyExpirationMillis(outcome Outcome) int {
	if outcome.Err != nil {
		return 0
	}
	return 30000
}

// RunNotificationHook renders command-notification's
// {application}/{message}/{urgency}/{expiration} template against
// outcome and runs the result through the shell, grounded on the
// original tool's __notify_user, which built the equivalent
// notify-send invocation by hand instead of letting the user configure
// the command.
func RunNotificationHook(ctx context.Context, outcome Outcome, command string) error {
	if command == "" {
		return nil
	}

	replacer := strings.NewReplacer(
		"{application}", fmt.Sprintf("lalikan (%s)", outcome.Job),
		"{message}", outcome.Summary(),
		"{urgency}", notifyUrgency(outcome),
		"{expiration}", strconv.Itoa(notifyExpirationMillis(outcome)),
	)
	return RunHook(ctx, outcome.Job, replacer.Replace(command))
}

// SlackSink posts run outcomes to an incoming Slack webhook, in the
// attachment shape the original tool's slack.go used for its backup
// summaries.
type SlackSink struct {
	WebhookURL string
	Client     *http.Client
}

type slackMessage struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fields    []slackField `json:"fields,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify posts outcome to Slack. A zero-value WebhookURL silently skips
// the post, matching the original's "webhook not configured" short
// circuit.
func (s SlackSink) Notify(outcome Outcome) error {
	if s.WebhookURL == "" {
		return nil
	}

	color := "good"
	title := fmt.Sprintf("%s completed", outcome.Level)
	if outcome.Err != nil {
		color = "danger"
		title = fmt.Sprintf("%s failed", outcome.Level)
	}

	msg := slackMessage{
		Text: fmt.Sprintf("Backup job %s: %s", outcome.Job, title),
		Attachments: []slackAttachment{
			{
				Color:     color,
				Title:     title,
				Timestamp: outcome.EndedAt.Unix(),
				Fields: []slackField{
					{Title: "Job", Value: outcome.Job, Short: true},
					{Title: "Level", Value: outcome.Level.String(), Short: true},
					{Title: "Duration", Value: outcome.Duration().String(), Short: true},
				},
			},
		},
	}
	if outcome.Err != nil {
		msg.Attachments[0].Text = outcome.Err.Error()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("notify: failed to marshal Slack payload: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Post(s.WebhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: failed to post to Slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: Slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}
