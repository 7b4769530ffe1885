package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type partialResult struct {
	Updated  int64    `json:"updated"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *partialResult) ResultWarnings() []string { return r.Warnings }

func record(handle func(c *gin.Context)) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/api/v1/orders/status", nil)
	c.Set(RequestIDKey, "req-bulk-1")
	handle(c)
	c.Writer.WriteHeaderNow()

	var body map[string]json.RawMessage
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestHandleSuccessLiftsWarnings(t *testing.T) {
	result := &partialResult{Updated: 2, Warnings: []string{"1 of 3 orders were not updated"}}
	rec, body := record(func(c *gin.Context) { HandleSuccess(c, result, "order statuses updated") })

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var warnings []string
	if err := json.Unmarshal(body["warnings"], &warnings); err != nil || len(warnings) != 1 || warnings[0] != result.Warnings[0] {
		t.Errorf("envelope warnings = %s", body["warnings"])
	}
	if string(body["request_id"]) != `"req-bulk-1"` {
		t.Errorf("request_id = %s", body["request_id"])
	}
	var data partialResult
	if err := json.Unmarshal(body["data"], &data); err != nil || data.Updated != 2 {
		t.Errorf("data = %s", body["data"])
	}
}

func TestHandleSuccessWithoutWarnings(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
	}{
		{"plain data", map[string]int{"total": 3}},
		{"empty warnings", &partialResult{Updated: 3}},
		{"nil data", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body := record(func(c *gin.Context) { HandleSuccess(c, tt.data, "ok") })
			if _, ok := body["warnings"]; ok {
				t.Errorf("warnings must be omitted: %s", body["warnings"])
			}
			if string(body["success"]) != "true" {
				t.Errorf("success = %s", body["success"])
			}
		})
	}
}

func TestHandleCreated(t *testing.T) {
	rec, body := record(func(c *gin.Context) { HandleCreated(c, map[string]string{"orderNumber": "VR-15"}, "order placed successfully") })
	if rec.Code != http.StatusCreated || string(body["code"]) != "201" {
		t.Errorf("status %d code %s", rec.Code, body["code"])
	}
}

func TestHandleNoContent(t *testing.T) {
	rec, _ := record(HandleNoContent)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("status %d body %q", rec.Code, rec.Body.String())
	}
}
