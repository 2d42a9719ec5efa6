package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/agentdevice/agent-device/internal/domain"
)

func TestJSONWriter_Success(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	resp := domain.Response{OK: true, Data: map[string]interface{}{"session": "default"}}

	if err := w.WriteResponse(resp); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Success {
		t.Error("expected Success=true")
	}
	if env.Data["session"] != "default" {
		t.Errorf("Data[session] = %v, want default", env.Data["session"])
	}
	if env.Error != nil {
		t.Errorf("expected no Error, got %+v", env.Error)
	}
}

func TestJSONWriter_Error(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	resp := domain.Response{OK: false, Error: &domain.Error{Code: "NOT_FOUND", Message: "no such session"}}

	if err := w.WriteResponse(resp); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success {
		t.Error("expected Success=false")
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Errorf("Error = %+v, want code NOT_FOUND", env.Error)
	}
}

func TestJSONWriter_NoHTMLEscaping(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf)
	resp := domain.Response{OK: true, Data: map[string]interface{}{"selector": `label="Terms & <Conditions>" || role=Button`}}

	if err := w.WriteResponse(resp); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`Terms & <Conditions>`)) {
		t.Errorf("expected & < > not to be escaped, got %q", buf.String())
	}
}

func TestTextWriter_SuccessEmptyData(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)
	if err := w.WriteResponse(domain.Response{OK: true}); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("OK")) {
		t.Errorf("expected OK line, got %q", buf.String())
	}
}

func TestTextWriter_ErrorFormat(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)
	resp := domain.Response{
		OK:    false,
		Error: &domain.Error{Code: "STALE_SELECTOR", Message: "no node matched", Hint: "try waiting first"},
	}
	if err := w.WriteResponse(resp); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}
	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("STALE_SELECTOR")) {
		t.Errorf("output %q missing error code", out)
	}
	if !bytes.Contains([]byte(out), []byte("no node matched")) {
		t.Errorf("output %q missing message", out)
	}
	if !bytes.Contains([]byte(out), []byte("try waiting first")) {
		t.Errorf("output %q missing hint", out)
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(domain.Response{OK: true}); got != 0 {
		t.Errorf("ExitCode(ok) = %d, want 0", got)
	}
	if got := ExitCode(domain.Response{OK: false}); got != 1 {
		t.Errorf("ExitCode(error) = %d, want 1", got)
	}
}
