package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSetupLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger("info", "json", &buf)

	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug record emitted at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info record missing")
	}
}

func TestSetupLoggerFormats(t *testing.T) {
	for _, format := range []string{"json", "text", "pretty"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := SetupLogger("debug", format, &buf)
			logger.Info("hello", "key", "value")
			if buf.Len() == 0 {
				t.Errorf("format %s produced no output", format)
			}
		})
	}
}

func TestShutdownCoordinatorLIFO(t *testing.T) {
	var order []string
	s := &ShutdownCoordinator{}
	s.Register("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	s.Register("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("got order %v, want [second first]", order)
	}
}

func TestShutdownCollectsErrors(t *testing.T) {
	s := &ShutdownCoordinator{}
	boom := errors.New("boom")
	ran := false
	s.Register("ok", func(context.Context) error {
		ran = true
		return nil
	})
	s.Register("failing", func(context.Context) error { return boom })

	err := s.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("got %v, want error mentioning boom", err)
	}
	if !ran {
		t.Error("later handler skipped after earlier failure")
	}
}

func TestStartOperationWithoutMetrics(t *testing.T) {
	// Operations must be usable before observability is wired up.
	op, ctx := StartOperation(context.Background(), nil, "test.op")
	if ctx == nil {
		t.Fatal("nil context returned")
	}
	op.End(nil)
	op2, _ := StartOperation(context.Background(), nil, "test.op")
	op2.End(errors.New("failed"))
}

func TestOperationRecordsMetrics(t *testing.T) {
	m := NewMetrics()
	op, _ := StartOperation(context.Background(), m, "test.op")
	op.End(nil)
	opErr, _ := StartOperation(context.Background(), m, "test.op")
	opErr.End(errors.New("failed"))

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{"stampd_operation_total", "stampd_operation_duration_seconds", "stampd_errors_total"} {
		if !found[name] {
			t.Errorf("metric %s not recorded", name)
		}
	}
}
