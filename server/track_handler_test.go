package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestServeMedia(t *testing.T) {
	body := []byte("0123456789abcdef")
	modTime := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("full request gets the whole object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/audio/unframe-01.mp3", nil)
		rec := httptest.NewRecorder()

		serveMedia(rec, req, "unframe-01.mp3", "audio/mpeg", modTime, bytes.NewReader(body))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
			t.Errorf("expected audio/mpeg, got %q", got)
		}
		if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
			t.Errorf("expected Accept-Ranges bytes, got %q", got)
		}
		if !bytes.Equal(rec.Body.Bytes(), body) {
			t.Errorf("expected the full body, got %q", rec.Body.String())
		}
	})

	t.Run("range request gets a partial response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/audio/unframe-01.mp3", nil)
		req.Header.Set("Range", "bytes=10-")
		rec := httptest.NewRecorder()

		serveMedia(rec, req, "unframe-01.mp3", "audio/mpeg", modTime, bytes.NewReader(body))

		if rec.Code != http.StatusPartialContent {
			t.Fatalf("expected 206, got %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes 10-15/16" {
			t.Errorf("expected bytes 10-15/16, got %q", got)
		}
		if rec.Body.String() != "abcdef" {
			t.Errorf("expected the tail of the object, got %q", rec.Body.String())
		}
	})

	t.Run("unsatisfiable range is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/audio/unframe-01.mp3", nil)
		req.Header.Set("Range", "bytes=100-")
		rec := httptest.NewRecorder()

		serveMedia(rec, req, "unframe-01.mp3", "audio/mpeg", modTime, bytes.NewReader(body))

		if rec.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Errorf("expected 416, got %d", rec.Code)
		}
	})
}

func TestSanitizeObjectName(t *testing.T) {
	got := sanitizeObjectName("my track #1 / final?.mp3")
	if strings.ContainsAny(got, " /#?&\\") {
		t.Errorf("expected unsafe characters replaced, got %q", got)
	}
}
