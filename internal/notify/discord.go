// Package notify sends pipeline outcome notifications to configured
// Discord webhook channels as colored embeds.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/re-cinq/fleetd/internal/config"
)

const (
	colorSuccess = 0x2ECC71
	colorFailure = 0xE74C3C
)

// Metrics is the subset of a pipeline run's metrics surfaced in a success
// notification.
type Metrics struct {
	DurationMs int64
	CPUUsage   float64
	MemUsage   float64
	MemUsageKB uint64
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// SendSuccess notifies every configured discord channel that a pipeline
// run succeeded, with duration/CPU/memory fields.
func SendSuccess(channels []config.NotifyChan, projectName string, m Metrics) {
	e := embed{
		Title: "✅Pipeline finish",
		Color: colorSuccess,
		Fields: []embedField{
			{Name: "Service name", Value: projectName, Inline: true},
			{Name: "Duration (s)", Value: fmt.Sprintf("%.2f", float64(m.DurationMs)/1000), Inline: true},
			{Name: "CPU (%)", Value: fmt.Sprintf("%.2f", m.CPUUsage), Inline: true},
			{Name: "Mem (%)", Value: fmt.Sprintf("%.2f", m.MemUsage), Inline: true},
			{Name: "Mem (Mb)", Value: fmt.Sprintf("%.2f", float64(m.MemUsageKB)/1024), Inline: true},
		},
		Footer:    &embedFooter{Text: "Fleet CI/CD Pipeline"},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	send(channels, e)
}

// SendFailure notifies every configured discord channel that a pipeline
// run failed, with the error's first two lines as the description.
func SendFailure(channels []config.NotifyChan, projectName string, cause error) {
	lines := strings.SplitN(cause.Error(), "\n", 3)
	if len(lines) > 2 {
		lines = lines[:2]
	}
	e := embed{
		Title:       "❌ Pipeline failed",
		Description: fmt.Sprintf("**%s**\n%s", projectName, strings.Join(lines, "\n")),
		Color:       colorFailure,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	send(channels, e)
}

func send(channels []config.NotifyChan, e embed) {
	for _, ch := range channels {
		if ch.Service != "discord" {
			continue
		}
		if err := postDiscord(ch.URL, e); err != nil {
			// Notification failures must never fail the pipeline itself.
			fmt.Printf("notify: discord send to %s failed: %s\n", ch.URL, err)
		}
	}
}

func postDiscord(url string, e embed) error {
	body, err := json.Marshal(map[string]any{"embeds": []embed{e}})
	if err != nil {
		return fmt.Errorf("marshaling embed: %w", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned status %d", resp.StatusCode)
	}
	return nil
}
