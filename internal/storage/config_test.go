package storage

import (
	"errors"
	"testing"
	"time"
)

func TestGetString(t *testing.T) {
	config := map[string]string{"path": "/tmp/db", "empty": ""}

	if got := GetString(config, "path", "default"); got != "/tmp/db" {
		t.Errorf("got %q, want /tmp/db", got)
	}
	if got := GetString(config, "empty", "default"); got != "default" {
		t.Errorf("empty value: got %q, want default", got)
	}
	if got := GetString(config, "missing", "default"); got != "default" {
		t.Errorf("missing key: got %q, want default", got)
	}
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		def     bool
		want    bool
		wantErr bool
	}{
		{"true", "true", false, true, false},
		{"one", "1", false, true, false},
		{"yes", "yes", false, true, false},
		{"uppercase", "TRUE", false, true, false},
		{"false", "false", true, false, false},
		{"zero", "0", true, false, false},
		{"no", "no", true, false, false},
		{"missing uses default", "", true, true, false},
		{"invalid", "maybe", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := map[string]string{}
			if tt.value != "" {
				config["key"] = tt.value
			}
			got, err := GetBool(config, "key", tt.def)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var cerr *ConfigError
				if !errors.As(err, &cerr) {
					t.Errorf("got %T, want *ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetInt(t *testing.T) {
	config := map[string]string{"n": "42", "bad": "forty-two"}

	got, err := GetInt(config, "n", 0)
	if err != nil || got != 42 {
		t.Errorf("got (%d, %v), want (42, nil)", got, err)
	}
	got, err = GetInt(config, "missing", 7)
	if err != nil || got != 7 {
		t.Errorf("missing key: got (%d, %v), want (7, nil)", got, err)
	}
	if _, err := GetInt(config, "bad", 0); err == nil {
		t.Error("expected error for non-integer, got nil")
	}
}

func TestGetInt64(t *testing.T) {
	config := map[string]string{"size": "1073741824"}

	got, err := GetInt64(config, "size", 0)
	if err != nil || got != 1073741824 {
		t.Errorf("got (%d, %v), want (1073741824, nil)", got, err)
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Duration
		wantErr bool
	}{
		{"go duration", "5s", 5 * time.Second, false},
		{"compound", "1m30s", 90 * time.Second, false},
		{"plain integer seconds", "10", 10 * time.Second, false},
		{"invalid", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetDuration(map[string]string{"d": tt.value}, "d", 0)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	got, err := GetDuration(map[string]string{}, "d", time.Minute)
	if err != nil || got != time.Minute {
		t.Errorf("missing key: got (%v, %v), want (1m, nil)", got, err)
	}
}

func TestMergeConfig(t *testing.T) {
	dst := map[string]string{"a": "1", "b": "2"}
	src := map[string]string{"b": "override", "c": "3"}

	got := MergeConfig(dst, src)
	if got["a"] != "1" || got["b"] != "override" || got["c"] != "3" {
		t.Errorf("unexpected merge result: %v", got)
	}
	if dst["b"] != "2" {
		t.Error("merge mutated the destination map")
	}
}

func TestExpandPath(t *testing.T) {
	if got := ExpandPath("/var/lib/stamp/./db"); got != "/var/lib/stamp/db" {
		t.Errorf("got %q, want cleaned path", got)
	}
	got := ExpandPath("~/stamp")
	if got == "~/stamp" {
		t.Error("tilde was not expanded")
	}
}
