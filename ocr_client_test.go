package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-ocr-relay/models"
)

var testDocument = models.UploadedFile{
	Filename:  "aadhaar front.png",
	MediaType: "image/png",
	Size:      9,
	Data:      []byte("png bytes"),
}

func TestHttpOcrClient_Extract_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("Expected path /extract, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}

		file, header, err := r.FormFile("document")
		if err != nil {
			t.Errorf("Expected file under field document: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		if header.Filename != "aadhaar front.png" {
			t.Errorf("Expected filename to be preserved, got %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("Expected part content type image/png, got %q", ct)
		}
		if string(data) != "png bytes" {
			t.Errorf("Expected file bytes to be forwarded, got %q", data)
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewHttpOcrClient(server.URL+"/extract", "document", time.Second)
	resp, err := client.Extract(context.Background(), testDocument)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"success":true}` {
		t.Errorf("Unexpected body %s", resp.Body)
	}
}

func TestHttpOcrClient_Extract_DefaultsMediaType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Expected file under field file: %v", err)
			return
		}
		if ct := header.Header.Get("Content-Type"); ct != "application/octet-stream" {
			t.Errorf("Expected application/octet-stream, got %q", ct)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	doc := testDocument
	doc.MediaType = ""
	client := NewHttpOcrClient(server.URL, "file", time.Second)
	if _, err := client.Extract(context.Background(), doc); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
}

func TestHttpOcrClient_Extract_Non2xxIsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"reason":"not found"}`))
	}))
	defer server.Close()

	client := NewHttpOcrClient(server.URL, "file", time.Second)
	_, err := client.Extract(context.Background(), testDocument)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected *UpstreamError, got %v", err)
	}
	if upstreamErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", upstreamErr.StatusCode)
	}
	if !upstreamErr.IsClientError() {
		t.Error("Expected 404 to be a client error")
	}
	if string(upstreamErr.Body) != `{"reason":"not found"}` {
		t.Errorf("Unexpected body %s", upstreamErr.Body)
	}
}

func TestHttpOcrClient_Extract_ServerErrorIsNotClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHttpOcrClient(server.URL, "file", time.Second)
	_, err := client.Extract(context.Background(), testDocument)

	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Expected *UpstreamError, got %v", err)
	}
	if upstreamErr.IsClientError() {
		t.Error("Expected 502 not to be a client error")
	}
}

func TestHttpOcrClient_Extract_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the server only notices a gone client once the body is drained
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewHttpOcrClient(server.URL, "file", 50*time.Millisecond)
	_, err := client.Extract(context.Background(), testDocument)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestHttpOcrClient_Extract_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	client := NewHttpOcrClient(server.URL, "file", 5*time.Second)
	_, err := client.Extract(ctx, testDocument)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context canceled, got %v", err)
	}
}

func TestUpstreamError_MessageIsTruncated(t *testing.T) {
	body := make([]byte, 1000)
	for i := range body {
		body[i] = 'x'
	}
	err := &UpstreamError{StatusCode: 500, Body: body}
	if len(err.Error()) > 300 {
		t.Errorf("Expected truncated message, got %d characters", len(err.Error()))
	}
}

func TestNewHttpOcrClient(t *testing.T) {
	url := "http://localhost:8000/extract"
	client := NewHttpOcrClient(url, "file", 30*time.Second)

	if client.URL() != url {
		t.Errorf("Expected url %s, got %s", url, client.URL())
	}
	if client.timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", client.timeout)
	}
}

func TestHttpOcrClient_Extract_OversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true,"data":{"NAME":"A"}}`))
	}))
	defer server.Close()

	client := NewHttpOcrClient(server.URL, "file", time.Second)
	client.maxBodyBytes = 16
	_, err := client.Extract(context.Background(), testDocument)
	if !errors.Is(err, ErrUpstreamBodyTooLarge) {
		t.Errorf("Expected ErrUpstreamBodyTooLarge, got %v", err)
	}
}

func TestHttpOcrClient_Extract_BodyAtLimit(t *testing.T) {
	body := `{"success":true}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewHttpOcrClient(server.URL, "file", time.Second)
	client.maxBodyBytes = int64(len(body))
	resp, err := client.Extract(context.Background(), testDocument)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if string(resp.Body) != body {
		t.Errorf("Unexpected body %s", resp.Body)
	}
}
