package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"violet-sync/pkg/httpclient"
)

const (
	createAttempts = 3
	jobApplicant   = "AVTRRT__Job_Applicant__c"
)

// Client issues authenticated requests against the Salesforce REST API. A 401
// triggers exactly one invalidate-and-retry cycle; a second rejection is
// returned as a RemoteError.
type Client struct {
	resolver *Resolver
	http     *httpclient.Client

	// retryDelay is the pause between create attempts after a timeout.
	retryDelay time.Duration
}

func NewClient(resolver *Resolver) *Client {
	return &Client{
		resolver:   resolver,
		http:       httpclient.New(resolver.cfg.RequestTimeout),
		retryDelay: 2 * time.Second,
	}
}

// Get issues a GET under /services/data/<version> and returns the raw body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a JSON POST under /services/data/<version> and returns the raw
// body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	creds, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, method, creds, path, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.resolver.Invalidate()
		creds, err = c.resolver.Resolve(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = c.send(ctx, method, creds, path, body)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Body: truncate(string(data), 300)}
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, method string, creds Credentials, path string, body interface{}) (*http.Response, error) {
	fullURL := creds.InstanceURL + "/services/data/" + apiVersion + path
	headers := map[string]string{
		"Authorization": "Bearer " + creds.AccessToken,
		"Content-Type":  "application/json",
	}
	if method == http.MethodGet {
		return c.http.Get(ctx, fullURL, headers)
	}
	return c.http.PostJSON(ctx, fullURL, headers, body)
}

// QueryAll runs a SOQL query, following nextRecordsUrl until the backend
// reports done, and returns every record in order.
func (c *Client) QueryAll(ctx context.Context, soql string) ([]map[string]interface{}, error) {
	data, err := c.Get(ctx, "/query?q="+url.QueryEscape(soql))
	if err != nil {
		return nil, err
	}

	var records []map[string]interface{}
	for {
		var page struct {
			Done           bool                     `json:"done"`
			NextRecordsURL string                   `json:"nextRecordsUrl"`
			Records        []map[string]interface{} `json:"records"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("query response: %w", err)
		}
		records = append(records, page.Records...)

		if page.Done || page.NextRecordsURL == "" {
			return records, nil
		}
		next := strings.TrimPrefix(page.NextRecordsURL, "/services/data/"+apiVersion)
		data, err = c.Get(ctx, next)
		if err != nil {
			return nil, err
		}
	}
}

// CreateJobApplicant creates one Job Applicant record via the composite
// sobjects endpoint and returns the new record id. A network timeout is
// retried up to three attempts total, refreshing credentials and pausing
// between attempts. An HTTP 200 does not mean the record was created: the
// per-record success flag in the response array is what counts.
func (c *Client) CreateJobApplicant(ctx context.Context, contactID, jobID, stage string) (string, error) {
	payload := map[string]interface{}{
		"allOrNone": false,
		"records": []map[string]interface{}{
			{
				"attributes":                   map[string]string{"type": jobApplicant},
				"AVTRRT__Contact_Candidate__c": contactID,
				"AVTRRT__Job__c":               jobID,
				"AVTRRT__Stage__c":             stage,
			},
		},
	}

	var resp *http.Response
	for attempt := 1; ; attempt++ {
		creds, err := c.resolver.Resolve(ctx)
		if err != nil {
			return "", err
		}
		resp, err = c.send(ctx, http.MethodPost, creds, "/composite/sobjects", payload)
		if err == nil {
			break
		}
		if !isTimeout(err) {
			return "", err
		}
		log.Printf("[SFClient] create timeout, attempt %d/%d", attempt, createAttempts)
		if attempt == createAttempts {
			return "", fmt.Errorf("timeout after %d attempts", createAttempts)
		}
		c.resolver.Invalidate()
		time.Sleep(c.retryDelay)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &RemoteError{StatusCode: resp.StatusCode, Body: truncate(string(data), 300)}
	}

	var results []struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
		Errors  []struct {
			StatusCode string `json:"statusCode"`
			Message    string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(data, &results); err != nil || len(results) == 0 {
		return "", fmt.Errorf("unexpected create response: %s", truncate(string(data), 300))
	}
	if !results[0].Success {
		var msgs []string
		for _, e := range results[0].Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.StatusCode, e.Message))
		}
		return "", fmt.Errorf("create rejected: %s", strings.Join(msgs, "; "))
	}
	return results[0].ID, nil
}

// CheckConnection resolves credentials and reports the connected instance.
// Used by the health endpoint.
func (c *Client) CheckConnection(ctx context.Context) (string, error) {
	creds, err := c.resolver.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return creds.InstanceURL, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
