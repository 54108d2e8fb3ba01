package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"scribe/internal/config"
)

const userAgent = "Scribe-Go/0.1.0"

// Job describes the job an event refers to.
type Job struct {
	ID       string
	Name     string
	Duration time.Duration
	Error    string
}

// Service defines the notification surface exposed to the workflow.
type Service interface {
	NotifyJobCompleted(ctx context.Context, job Job) error
	NotifyJobFailed(ctx context.Context, job Job) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.NtfyRequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, job Job) error {
	message := fmt.Sprintf("Transcript ready: %s", jobLabel(job))
	if job.Duration > 0 {
		message = fmt.Sprintf("%s (%s)", message, job.Duration.Round(time.Second))
	}
	return n.send(ctx, payload{
		title:   "Scribe - Transcript Ready",
		message: message,
		tags:    []string{"scribe", "job", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, job Job) error {
	var builder strings.Builder
	builder.WriteString("Transcription failed: ")
	builder.WriteString(jobLabel(job))
	if reason := strings.TrimSpace(job.Error); reason != "" {
		builder.WriteString("\n")
		builder.WriteString(reason)
	}
	return n.send(ctx, payload{
		title:    "Scribe - Job Failed",
		message:  builder.String(),
		tags:     []string{"scribe", "job", "failed"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "Scribe - Test",
		message:  "Notification system test",
		tags:     []string{"scribe", "test"},
		priority: "low",
	})
}

func jobLabel(job Job) string {
	name := strings.TrimSpace(job.Name)
	id := strings.TrimSpace(job.ID)
	if len(id) > 8 {
		id = id[:8]
	}
	switch {
	case name == "":
		return id
	case id == "":
		return name
	default:
		return fmt.Sprintf("%s [%s]", name, id)
	}
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, Job) error { return nil }
func (noopService) NotifyJobFailed(context.Context, Job) error    { return nil }
func (noopService) TestNotification(context.Context) error        { return nil }
