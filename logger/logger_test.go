package logger

import (
	"io"
	"os"
	"sync/atomic"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestWarnAndErrorCountersByComponent(t *testing.T) {
	log := Logger()
	log.SetOutput(io.Discard)

	hubWarns := atomic.LoadInt64(&warnsHub)
	webErrors := atomic.LoadInt64(&errorsWeb)

	log.WithComponent("hub").Warn("connection interrupted")
	log.WithComponent("web").Error("render failed")
	log.WithComponent("trader").Warn("other components are not counted")

	if got := atomic.LoadInt64(&warnsHub) - hubWarns; got != 1 {
		t.Fatalf("hub warn counter delta = %d, want 1", got)
	}
	if got := atomic.LoadInt64(&errorsWeb) - webErrors; got != 1 {
		t.Fatalf("web error counter delta = %d, want 1", got)
	}
}

func streamStatFor(name string) (int64, int64) {
	v, ok := streams.Load(name)
	if !ok {
		return 0, 0
	}
	cs := v.(*streamStat)
	return atomic.LoadInt64(&cs.messages), atomic.LoadInt64(&cs.bytes)
}

func TestSignalStreamCounters(t *testing.T) {
	messages, bytes := streamStatFor("hub_buy_signal")

	IncrementSignalReceived("buy_signal", 128)
	IncrementSignalReceived("buy_signal", 64)

	gotMessages, gotBytes := streamStatFor("hub_buy_signal")
	if gotMessages-messages != 2 {
		t.Fatalf("message delta = %d, want 2", gotMessages-messages)
	}
	if gotBytes-bytes != 192 {
		t.Fatalf("byte delta = %d, want 192", gotBytes-bytes)
	}
}

func TestPageServedCounters(t *testing.T) {
	served := atomic.LoadInt64(&pagesServed)
	messages, _ := streamStatFor("web_Trades")

	IncrementPageServed("Trades")

	if got := atomic.LoadInt64(&pagesServed) - served; got != 1 {
		t.Fatalf("pages served delta = %d, want 1", got)
	}
	if gotMessages, _ := streamStatFor("web_Trades"); gotMessages-messages != 1 {
		t.Fatalf("page stream delta = %d, want 1", gotMessages-messages)
	}
}
