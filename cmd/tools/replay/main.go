package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"time"

	"violet-sync/pkg/httpclient"
)

// Triggers a dead-letter replay on a running service and prints the outcome.
func main() {
	var addr string
	var timeout time.Duration
	flag.StringVar(&addr, "addr", "http://localhost:8080", "Base URL of the running service")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "How long to wait for the replay to finish")
	flag.Parse()

	client := httpclient.New(timeout)

	log.Printf("Replaying dead letters via %s/api/retry-failed ...", addr)
	resp, err := client.PostJSON(context.Background(), addr+"/api/retry-failed", nil, struct{}{})
	if err != nil {
		log.Fatalf("replay request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		log.Fatalf("replay request failed: HTTP %d", resp.StatusCode)
	}

	var out struct {
		Message  string `json:"message"`
		Retried  int    `json:"retried"`
		Created  int    `json:"created"`
		Failed   int    `json:"failed"`
		Archived string `json:"archived"`
		Results  []struct {
			ChatID string `json:"chat_id"`
			Action string `json:"action"`
			Detail string `json:"detail"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("decode response: %v", err)
	}

	if out.Message != "" && out.Retried == 0 {
		log.Println(out.Message)
		return
	}

	for _, r := range out.Results {
		log.Printf("  %-32s %-10s %s", r.ChatID, r.Action, r.Detail)
	}
	log.Printf("Retried %d: %d created, %d failed. Archive: %s", out.Retried, out.Created, out.Failed, out.Archived)
}
