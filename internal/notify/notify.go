// Package notify dispatches processing outcomes: a structured log line for
// every event, plus rich Slack messages for creates and errors when a
// webhook URL is configured.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"violet-sync/pkg/httpclient"
)

// Details carries the record fields a notification can mention.
type Details struct {
	ChatID      string `json:"chat_id"`
	ContactID   string `json:"contact_id"`
	JobID       string `json:"job_id"`
	Stage       string `json:"stage"`
	Tier        string `json:"tier"`
	ApplicantID string `json:"applicant_id,omitempty"`
	Agent       string `json:"agent,omitempty"`
	JobDesc     string `json:"job_desc,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Notifier is the sink the processor reports terminal outcomes to.
type Notifier interface {
	Notify(eventType string, d Details)
}

// Service is the default Notifier.
type Service struct {
	slackWebhookURL string
	instanceURL     string
	http            *httpclient.Client
}

// NewService builds a notifier. slackWebhookURL may be empty (log-only);
// instanceURL is used to build record deep links in Slack messages.
func NewService(slackWebhookURL, instanceURL string) *Service {
	return &Service{
		slackWebhookURL: slackWebhookURL,
		instanceURL:     instanceURL,
		http:            httpclient.New(10 * time.Second),
	}
}

func (s *Service) Notify(eventType string, d Details) {
	s.logEvent(eventType, d)

	if s.slackWebhookURL != "" && (eventType == "created" || eventType == "error") {
		s.sendSlack(eventType, d)
	}
}

func (s *Service) logEvent(eventType string, d Details) {
	entry, _ := json.Marshal(struct {
		Event string `json:"event"`
		Details
	}{Event: eventType, Details: d})

	switch eventType {
	case "created":
		log.Printf("SF_CREATE | %s", entry)
	case "error":
		log.Printf("SF_ERROR | %s", entry)
	default:
		log.Printf("EVENT | %s", entry)
	}
}

func (s *Service) sendSlack(eventType string, d Details) {
	var payload map[string]interface{}

	switch eventType {
	case "created":
		link := fmt.Sprintf("%s/lightning/r/AVTRRT__Job_Applicant__c/%s/view", s.instanceURL, d.ApplicantID)
		jobDesc := d.JobDesc
		if jobDesc == "" {
			jobDesc = "Unknown position"
		}
		payload = map[string]interface{}{
			"blocks": []map[string]interface{}{
				{
					"type": "header",
					"text": map[string]string{"type": "plain_text", "text": fmt.Sprintf("New %s Candidate", strings.ToUpper(d.Tier))},
				},
				{
					"type": "section",
					"fields": []map[string]string{
						{"type": "mrkdwn", "text": "*Position:*\n" + jobDesc},
						{"type": "mrkdwn", "text": "*Stage:*\n" + d.Stage},
						{"type": "mrkdwn", "text": "*Agent:*\n" + d.Agent},
						{"type": "mrkdwn", "text": "*Chat ID:*\n" + shortID(d.ChatID)},
					},
				},
				{
					"type": "actions",
					"elements": []map[string]interface{}{
						{
							"type":  "button",
							"text":  map[string]string{"type": "plain_text", "text": "View in Salesforce"},
							"url":   link,
							"style": "primary",
						},
					},
				},
			},
		}
	case "error":
		payload = map[string]interface{}{
			"text": fmt.Sprintf(":warning: *SF Create Failed*\nChat: %s\nContact: %s\nError: %.200s",
				shortID(d.ChatID), d.ContactID, d.Error),
		}
	default:
		return
	}

	resp, err := s.http.PostJSON(context.Background(), s.slackWebhookURL, nil, payload)
	if err != nil {
		log.Printf("[Notify] Slack notification error: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Notify] Slack notification failed: %d", resp.StatusCode)
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}
