package datacite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrSnakeDoc/landing/internal/domain"
	"github.com/MrSnakeDoc/landing/internal/logger"
)

func strPtr(s string) *string { return &s }

func testResource() *domain.Resource {
	return &domain.Resource{
		ID:              1,
		DOI:             strPtr("10.5880/GFZ.2025.001"),
		Title:           "Seismic records",
		Publisher:       "GFZ Data Services",
		PublicationYear: 2025,
		ResourceType:    "Dataset",
		Description:     "Hourly records.",
		Creators:        []string{"Doe, Jane", "GFZ Helmholtz Centre"},
	}
}

func testPage() *domain.LandingPage {
	return &domain.LandingPage{
		ID:         3,
		ResourceID: 1,
		DoiPrefix:  strPtr("10.5880/GFZ.2025.001"),
		Slug:       "seismic-records",
		Status:     domain.StatusPublished,
	}
}

func newTestClient(endpoint string, attempts int, timeout time.Duration) *Client {
	return New(Options{
		Endpoint:      endpoint,
		Username:      "GFZ.REPO",
		Password:      "secret",
		Timeout:       timeout,
		MaxAttempts:   attempts,
		RetryInterval: time.Millisecond,
	}, domain.NewURLBuilder("https://landing.example.org"), logger.New("error", false))
}

func TestClientSync_StatusMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantStatus   domain.SyncStatus
		wantMessage  string
		wantRequests int32
	}{
		{name: "ok", status: http.StatusOK, body: `{"data":{}}`, wantStatus: domain.SyncSucceeded, wantRequests: 1},
		{name: "created", status: http.StatusCreated, wantStatus: domain.SyncSucceeded, wantRequests: 1},
		{name: "unauthorized", status: http.StatusUnauthorized, wantStatus: domain.SyncFailed, wantMessage: "authentication failed", wantRequests: 1},
		{name: "not found", status: http.StatusNotFound, wantStatus: domain.SyncFailed, wantMessage: "not found", wantRequests: 1},
		{
			name:         "validation error surfaces registry title",
			status:       http.StatusUnprocessableEntity,
			body:         `{"errors":[{"source":"url","title":"Url is not allowed by repository domain settings."}]}`,
			wantStatus:   domain.SyncFailed,
			wantMessage:  "Url is not allowed by repository domain settings.",
			wantRequests: 1,
		},
		{name: "rate limited is retried", status: http.StatusTooManyRequests, wantStatus: domain.SyncFailed, wantMessage: "too many requests", wantRequests: 3},
		{name: "outage is retried", status: http.StatusInternalServerError, wantStatus: domain.SyncFailed, wantMessage: "temporarily unavailable", wantRequests: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requests int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&requests, 1)
				w.Header().Set("Content-Type", contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			out := newTestClient(srv.URL, 3, time.Second).Sync(context.Background(), testResource(), testPage())

			if out.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", out.Status, tt.wantStatus)
			}
			if !out.Attempted {
				t.Error("Attempted should be true once a request was sent")
			}
			if out.Success != (tt.wantStatus == domain.SyncSucceeded) {
				t.Errorf("Success = %v", out.Success)
			}
			if tt.wantMessage != "" && (out.ErrorMessage == nil || !strings.Contains(*out.ErrorMessage, tt.wantMessage)) {
				t.Errorf("ErrorMessage = %v, want it to contain %q", out.ErrorMessage, tt.wantMessage)
			}
			if tt.wantMessage == "" && out.ErrorMessage != nil {
				t.Errorf("ErrorMessage = %q, want nil", *out.ErrorMessage)
			}
			if out.Identifier == nil || *out.Identifier != "10.5880/GFZ.2025.001" {
				t.Errorf("Identifier = %v", out.Identifier)
			}
			if got := atomic.LoadInt32(&requests); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
		})
	}
}

func TestClientSync_RecoversAfterTransientFailure(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out := newTestClient(srv.URL, 3, time.Second).Sync(context.Background(), testResource(), testPage())
	if out.Status != domain.SyncSucceeded {
		t.Errorf("Status = %s, want succeeded after retry", out.Status)
	}
	if got := atomic.LoadInt32(&requests); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
}

func TestClientSync_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	out := newTestClient(srv.URL, 1, 50*time.Millisecond).Sync(context.Background(), testResource(), testPage())

	if out.Status != domain.SyncFailed {
		t.Fatalf("Status = %s, want failed", out.Status)
	}
	if out.ErrorMessage == nil || !strings.Contains(*out.ErrorMessage, "temporarily unavailable") {
		t.Errorf("ErrorMessage = %v", out.ErrorMessage)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Sync took %v, timeout not enforced", elapsed)
	}
}

func TestClientSync_Request(t *testing.T) {
	var (
		gotMethod, gotPath, gotType string
		gotUser, gotPass            string
		gotDoc                      document
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		gotUser, gotPass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotDoc)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	out := newTestClient(srv.URL+"/", 1, time.Second).Sync(context.Background(), testResource(), testPage())
	if out.Status != domain.SyncSucceeded {
		t.Fatalf("Status = %s", out.Status)
	}

	if gotMethod != http.MethodPut || gotPath != "/dois/10.5880/GFZ.2025.001" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotType != contentType {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotUser != "GFZ.REPO" || gotPass != "secret" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}

	attrs := gotDoc.Data.Attributes
	if gotDoc.Data.Type != "dois" || gotDoc.Data.ID != "10.5880/GFZ.2025.001" {
		t.Errorf("data = %+v", gotDoc.Data)
	}
	if attrs.URL != "https://landing.example.org/10.5880/GFZ.2025.001/seismic-records" {
		t.Errorf("url = %q", attrs.URL)
	}
	if len(attrs.Titles) != 1 || attrs.Titles[0].Title != "Seismic records" {
		t.Errorf("titles = %+v", attrs.Titles)
	}
	if len(attrs.Creators) != 2 || attrs.Creators[0].FamilyName != "Doe" || attrs.Creators[1].NameType != "" {
		t.Errorf("creators = %+v", attrs.Creators)
	}
	if attrs.Types.ResourceTypeGeneral != "Dataset" || attrs.PublicationYear != 2025 {
		t.Errorf("attributes = %+v", attrs)
	}
}

func TestClientSync_Preconditions(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	noDOI := testResource()
	noDOI.DOI = nil

	tests := []struct {
		name        string
		client      *Client
		res         *domain.Resource
		page        *domain.LandingPage
		wantStatus  domain.SyncStatus
		wantMessage string
	}{
		{
			name:       "no identifier",
			client:     newTestClient(srv.URL, 1, time.Second),
			res:        noDOI,
			page:       testPage(),
			wantStatus: domain.SyncNotRequired,
		},
		{
			name:        "identifier without landing page",
			client:      newTestClient(srv.URL, 1, time.Second),
			res:         testResource(),
			wantStatus:  domain.SyncFailed,
			wantMessage: "Landing page",
		},
		{
			name:        "missing credentials",
			client:      New(Options{Endpoint: srv.URL}, domain.NewURLBuilder("https://x.org"), nil),
			res:         testResource(),
			page:        testPage(),
			wantStatus:  domain.SyncFailed,
			wantMessage: "not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.client.Sync(context.Background(), tt.res, tt.page)
			if out.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", out.Status, tt.wantStatus)
			}
			if out.Attempted {
				t.Error("Attempted should be false when no request is sent")
			}
			if tt.wantMessage != "" && (out.ErrorMessage == nil || !strings.Contains(*out.ErrorMessage, tt.wantMessage)) {
				t.Errorf("ErrorMessage = %v, want %q", out.ErrorMessage, tt.wantMessage)
			}
		})
	}

	if got := atomic.LoadInt32(&requests); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}
}

func TestNewCreator(t *testing.T) {
	tests := []struct {
		in   string
		want creator
	}{
		{in: "Doe, Jane", want: creator{Name: "Doe, Jane", NameType: "Personal", GivenName: "Jane", FamilyName: "Doe"}},
		{in: " Roe ,Rick ", want: creator{Name: "Roe, Rick", NameType: "Personal", GivenName: "Rick", FamilyName: "Roe"}},
		{in: "GFZ Helmholtz Centre", want: creator{Name: "GFZ Helmholtz Centre"}},
		{in: "Trailing,", want: creator{Name: "Trailing,"}},
	}

	for _, tt := range tests {
		if got := newCreator(tt.in); got != tt.want {
			t.Errorf("newCreator(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
