package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestClientFromContext(t *testing.T) {
	if got := ClientFromContext(context.Background()); got != (Client{}) {
		t.Errorf("ClientFromContext(empty) = %+v, want zero", got)
	}

	want := Client{IP: "203.0.113.7", UserAgent: "curl/8.5"}
	if got := ClientFromContext(WithClient(context.Background(), want)); got != want {
		t.Errorf("ClientFromContext() = %+v, want %+v", got, want)
	}
}

func TestAuditLogger_ClientFields(t *testing.T) {
	tests := []struct {
		name   string
		client Client
		want   map[string]string
	}{
		{"both", Client{IP: "203.0.113.7", UserAgent: "curl/8.5"}, map[string]string{"ip": "203.0.113.7", "user_agent": "curl/8.5"}},
		{"ip only", Client{IP: "203.0.113.7"}, map[string]string{"ip": "203.0.113.7"}},
		{"none", Client{}, map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
			defer slog.SetDefault(prev)

			auditLogger(WithClient(context.Background(), tt.client)).Info("slab updated")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("decode %q: %v", buf.String(), err)
			}
			for _, key := range []string{"ip", "user_agent"} {
				got, ok := entry[key]
				want, wantOK := tt.want[key]
				if ok != wantOK || (ok && got != want) {
					t.Errorf("%s = %v (present %v), want %q (present %v)", key, got, ok, want, wantOK)
				}
			}
		})
	}
}
