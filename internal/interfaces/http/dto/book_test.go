package dto

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "z-book-ai-api/pkg/errors"
)

func newJSONContext(body string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c
}

func TestParseWordCount(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{`1500`, 1500, false},
		{`1500.0`, 1500, false},
		{`"2000"`, 2000, false},
		{`" 42 "`, 42, false},
		{`12.5`, 0, true},
		{`"abc"`, 0, true},
		{`true`, 0, true},
		{`null`, 0, false},
	}
	for _, tc := range cases {
		got, err := ParseWordCount(json.RawMessage(tc.raw))
		if tc.wantErr != (err != nil) {
			t.Errorf("ParseWordCount(%s) err = %v", tc.raw, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseWordCount(%s) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestBindGenerateRequest(t *testing.T) {
	cases := []struct {
		body string
		msg  string
	}{
		{`not json`, "Request body must be JSON"},
		{`{"language":"English","word_count":500}`, "Missing required field: topic"},
		{`{"topic":"x","word_count":500}`, "Missing required field: language"},
		{`{"topic":"   ","language":"English","word_count":500}`, "Field 'topic' must be a non-empty string"},
		{`{"topic":"x","language":7,"word_count":500}`, "Field 'language' must be a non-empty string"},
		{`{"topic":"x","language":"English","word_count":0}`, "Field 'word_count' must be a positive integer"},
		{`{"topic":"x","language":"English","word_count":"many"}`, "Field 'word_count' must be a positive integer"},
	}
	for _, tc := range cases {
		_, err := BindGenerateRequest(newJSONContext(tc.body))
		appErr := apperrors.AsAppError(err)
		if err == nil || appErr.Code != apperrors.CodeInvalidParam || appErr.Message != tc.msg {
			t.Errorf("body %s: err = %v, want %q", tc.body, err, tc.msg)
		}
	}

	req, err := BindGenerateRequest(newJSONContext(`{"topic":"dragons","language":"English","word_count":"1500"}`))
	if err != nil {
		t.Fatalf("BindGenerateRequest: %v", err)
	}
	if req.Topic != "dragons" || req.Language != "English" || req.WordCount != 1500 {
		t.Fatalf("req = %+v", req)
	}
}

func TestBindDocumentRequest(t *testing.T) {
	if _, err := BindDocumentRequest(newJSONContext(`{"content":"x"}`)); err == nil ||
		apperrors.AsAppError(err).Message != "Missing required fields: 'content' and/or 'title'" {
		t.Fatalf("err = %v", err)
	}
	if _, err := BindDocumentRequest(newJSONContext(`{"content":"","title":"T"}`)); err == nil ||
		apperrors.AsAppError(err).Message != "Field 'content' must be a non-empty string" {
		t.Fatalf("err = %v", err)
	}

	req, err := BindDocumentRequest(newJSONContext(`{"content":"Chapter 1\nHello world.","title":"T"}`))
	if err != nil {
		t.Fatalf("BindDocumentRequest: %v", err)
	}
	if req.Title != "T" || !strings.HasPrefix(req.Content, "Chapter 1") {
		t.Fatalf("req = %+v", req)
	}
}
