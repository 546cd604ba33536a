package observe_test

import (
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/narralign/internal/observe"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	mp := sdkmetric.NewMeterProvider()
	met, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	if met.AlignDuration == nil {
		t.Error("AlignDuration not initialised")
	}
	if met.WindowTokens == nil {
		t.Error("WindowTokens not initialised")
	}
	if met.AnchorsSelected == nil {
		t.Error("AnchorsSelected not initialised")
	}
	if met.GreedyFallbacks == nil {
		t.Error("GreedyFallbacks not initialised")
	}
	if met.SentencesFlagged == nil {
		t.Error("SentencesFlagged not initialised")
	}
	if met.TimingUnresolved == nil {
		t.Error("TimingUnresolved not initialised")
	}
	if met.ActiveChapters == nil {
		t.Error("ActiveChapters not initialised")
	}
}
