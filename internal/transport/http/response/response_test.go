package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code, want int
	}{
		{CodeOK, http.StatusOK},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeConflict, http.StatusConflict},
		{CodeTimeout, http.StatusGatewayTimeout},
		{42, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.code); got != tt.want {
			t.Errorf("HTTPStatus(%d) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestEnvelope(t *testing.T) {
	b, _ := json.Marshal(OK(nil))
	if string(b) != `{"code":0,"msg":"OK","data":{}}` {
		t.Fatalf("OK(nil) = %s", b)
	}
	if r := Error(CodeNotFound, ""); r.Msg != "Not Found" {
		t.Fatalf("default msg = %q", r.Msg)
	}
	if r := Error(CodeNotFound, "hiring record not found"); r.Msg != "hiring record not found" {
		t.Fatalf("custom msg = %q", r.Msg)
	}
}

func TestAbort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Abort(c, CodeTooManyRequests, "")
	if w.Code != http.StatusTooManyRequests || !c.IsAborted() {
		t.Fatalf("status = %d aborted = %v", w.Code, c.IsAborted())
	}
	var body Resp
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Code != CodeTooManyRequests {
		t.Fatalf("body = %s, %v", w.Body.String(), err)
	}
}
