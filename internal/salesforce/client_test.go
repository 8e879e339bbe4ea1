package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func staticClient(srv *httptest.Server) *Client {
	resolver := NewResolver(Config{AccessToken: "tok", InstanceURL: srv.URL})
	return NewClient(resolver)
}

func TestGet_RetriesOnceOn401(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"done":true,"records":[]}`))
	}))
	defer srv.Close()

	c := staticClient(srv)
	if _, err := c.Get(context.Background(), "/query?q=SELECT"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("server saw %d requests, want 2", n)
	}
}

func TestGet_SecondRejectionIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("INVALID_SESSION_ID"))
	}))
	defer srv.Close()

	c := staticClient(srv)
	_, err := c.Get(context.Background(), "/limits")

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if remoteErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", remoteErr.StatusCode)
	}
}

func TestQueryAll_FollowsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/services/data/v59.0/query/01g-next"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"done":    true,
				"records": []map[string]string{{"Name": "c"}},
			})
		case strings.HasPrefix(r.URL.Path, "/services/data/v59.0/query"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"done":           false,
				"nextRecordsUrl": "/services/data/v59.0/query/01g-next",
				"records":        []map[string]string{{"Name": "a"}, {"Name": "b"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := staticClient(srv)
	records, err := c.QueryAll(context.Background(), "SELECT Name FROM Contact")
	if err != nil {
		t.Fatalf("QueryAll: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := records[i]["Name"]; got != want {
			t.Errorf("records[%d].Name = %v, want %q", i, got, want)
		}
	}
}

func TestCreateJobApplicant_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/data/v59.0/composite/sobjects" {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			AllOrNone bool                     `json:"allOrNone"`
			Records   []map[string]interface{} `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad create payload: %v", err)
		}
		if payload.AllOrNone {
			t.Errorf("allOrNone = true, want false")
		}
		if len(payload.Records) != 1 || payload.Records[0]["AVTRRT__Stage__c"] != "New Application" {
			t.Errorf("records = %v", payload.Records)
		}
		w.Write([]byte(`[{"success":true,"id":"a0X000000000001AAA"}]`))
	}))
	defer srv.Close()

	c := staticClient(srv)
	id, err := c.CreateJobApplicant(context.Background(), "003XX00000ABCDE", "a0FXX00000JOB01", "New Application")
	if err != nil {
		t.Fatalf("CreateJobApplicant: %v", err)
	}
	if id != "a0X000000000001AAA" {
		t.Fatalf("id = %q", id)
	}
}

func TestCreateJobApplicant_HTTP200WithRecordFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"success":false,"errors":[{"statusCode":"DUPLICATE_VALUE","message":"already exists"}]}]`))
	}))
	defer srv.Close()

	c := staticClient(srv)
	_, err := c.CreateJobApplicant(context.Background(), "003XX00000ABCDE", "a0FXX00000JOB01", "New Application")
	if err == nil {
		t.Fatal("expected error for per-record failure behind an HTTP 200")
	}
	if !strings.Contains(err.Error(), "DUPLICATE_VALUE") {
		t.Errorf("err = %v", err)
	}
}

func TestCreateJobApplicant_TimeoutExhaustsAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	resolver := NewResolver(Config{
		AccessToken:    "tok",
		InstanceURL:    srv.URL,
		RequestTimeout: 20 * time.Millisecond,
	})
	c := NewClient(resolver)
	c.retryDelay = time.Millisecond

	_, err := c.CreateJobApplicant(context.Background(), "003XX00000ABCDE", "a0FXX00000JOB01", "New Application")
	if err == nil || err.Error() != "timeout after 3 attempts" {
		t.Fatalf("err = %v, want timeout after 3 attempts", err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("server saw %d attempts, want 3", n)
	}
}

func TestCreateJobApplicant_Non200IsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	c := staticClient(srv)
	_, err := c.CreateJobApplicant(context.Background(), "003XX00000ABCDE", "a0FXX00000JOB01", "New Application")

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if remoteErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", remoteErr.StatusCode)
	}
}
