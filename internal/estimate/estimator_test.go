package estimate

import (
	"math"
	"testing"
	"time"

	"studio/internal/capability"
	"studio/internal/history"
)

var fixedNow = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func newTestEstimator() *Estimator {
	return New(func() time.Time { return fixedNow })
}

func timing(provider string, duration int, actual float64, age time.Duration) history.Record {
	return history.Record{
		Provider:      provider,
		Duration:      duration,
		ActualSeconds: actual,
		AspectRatio:   capability.AspectLandscape,
		CompletedAt:   fixedNow.Add(-age),
	}
}

func TestDurationStaticMatchesCapabilityTable(t *testing.T) {
	est := newTestEstimator()
	for _, rec := range capability.All() {
		for d := 1; d <= rec.MaxDuration; d++ {
			want := max(MinimumSeconds, int(math.Round(rec.QueueWaitSeconds+float64(d)*rec.SecondsPerOutputSecond)))
			if got := est.Duration(rec.Key, d, Context{}); got != want {
				t.Fatalf("%s %ds: expected %d, got %d", rec.Key, d, want, got)
			}
		}
	}
}

func TestDurationWanTenSecondsNoHistory(t *testing.T) {
	est := newTestEstimator()
	if got := est.Duration(capability.Wan, 10, Context{}); got != 110 {
		t.Fatalf("expected 110, got %d", got)
	}
	if got := est.Confidence(capability.Wan, nil); got != ConfidenceStatic {
		t.Fatalf("expected static confidence, got %s", got)
	}
}

func TestDurationUnknownProviderFallsBack(t *testing.T) {
	est := newTestEstimator()
	if got, want := est.Duration("mystery", 10, Context{}), est.Duration(capability.Wan, 10, Context{}); got != want {
		t.Fatalf("expected fallback estimate %d, got %d", want, got)
	}
}

func TestDurationMultipliers(t *testing.T) {
	est := newTestEstimator()
	cases := []struct {
		name     string
		provider string
		seconds  int
		ctx      Context
		want     int
	}{
		{"image", capability.Wan, 10, Context{HasImage: true}, int(math.Round(110 * 1.35))},
		{"short prompt untouched", capability.Wan, 10, Context{PromptLength: 300}, 110},
		{"long prompt", capability.Wan, 10, Context{PromptLength: 600}, 121},
		{"portrait", capability.LTX, 4, Context{AspectRatio: capability.AspectPortrait}, 18},
		{"square", capability.LTX, 4, Context{AspectRatio: capability.AspectSquare}, 17},
		{"landscape untouched", capability.LTX, 4, Context{AspectRatio: capability.AspectLandscape}, 17},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := est.Duration(tc.provider, tc.seconds, tc.ctx); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestDurationImageScalesStaticByExactFactor(t *testing.T) {
	est := newTestEstimator()
	for _, rec := range capability.All() {
		plain := StaticBaseline(rec, rec.MaxDuration)
		want := max(MinimumSeconds, int(math.Round(plain*1.35)))
		if got := est.Duration(rec.Key, rec.MaxDuration, Context{HasImage: true}); got != want {
			t.Fatalf("%s: expected %d, got %d", rec.Key, want, got)
		}
	}
}

func TestDurationBlendsTwoRecordEWMA(t *testing.T) {
	est := newTestEstimator()
	records := []history.Record{
		// newer first to prove the estimator sorts by completion time
		timing(capability.Wan, 5, 80, time.Hour),
		timing(capability.Wan, 5, 60, 2*time.Hour),
	}

	r1, r2 := 60.0/5, 80.0/5
	ewma := 0.3*r2 + 0.7*r1
	if got := EWMA([]float64{r1, r2}); math.Abs(got-ewma) > 1e-9 {
		t.Fatalf("expected ewma %v, got %v", ewma, got)
	}

	static := 20.0 + 5*9.0
	want := int(math.Round(0.7*(ewma*5) + 0.3*static))
	if got := est.Duration(capability.Wan, 5, Context{History: records}); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
	if want != 66 {
		t.Fatalf("sanity: expected 66, got %d", want)
	}
}

func TestDurationIgnoresOtherProvidersAndStaleRecords(t *testing.T) {
	est := newTestEstimator()
	records := []history.Record{
		timing(capability.Wan, 5, 500, 8*24*time.Hour),
		timing(capability.Wan, 5, 500, 9*24*time.Hour),
		timing(capability.Kling, 5, 500, time.Hour),
		timing(capability.Kling, 5, 500, 2*time.Hour),
	}
	if got := est.Duration(capability.Wan, 5, Context{History: records}); got != 65 {
		t.Fatalf("expected static 65, got %d", got)
	}
}

func TestDurationSingleRecordStaysStatic(t *testing.T) {
	est := newTestEstimator()
	records := []history.Record{timing(capability.Wan, 5, 500, time.Hour)}
	if got := est.Duration(capability.Wan, 5, Context{History: records}); got != 65 {
		t.Fatalf("expected static 65, got %d", got)
	}
}

func TestDurationPenalizesUnseenImageOverhead(t *testing.T) {
	est := newTestEstimator()
	records := []history.Record{
		timing(capability.Wan, 5, 60, 2*time.Hour),
		timing(capability.Wan, 5, 80, time.Hour),
	}
	static := 65 * 1.35
	adaptive := (0.3*16 + 0.7*12) * 5 * 1.2
	want := int(math.Round(0.7*adaptive + 0.3*static))
	if got := est.Duration(capability.Wan, 5, Context{HasImage: true, History: records}); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}

	for i := range records {
		records[i].HasImage = true
	}
	want = int(math.Round(0.7*(adaptive/1.2) + 0.3*static))
	if got := est.Duration(capability.Wan, 5, Context{HasImage: true, History: records}); got != want {
		t.Fatalf("expected %d once history covers images, got %d", want, got)
	}
}

func TestDurationFloor(t *testing.T) {
	est := newTestEstimator()
	records := []history.Record{
		timing(capability.LTX, 1, 0.1, 2*time.Hour),
		timing(capability.LTX, 1, 0.1, time.Hour),
	}
	if got := est.Duration(capability.LTX, 1, Context{History: records}); got != MinimumSeconds {
		t.Fatalf("expected floor %d, got %d", MinimumSeconds, got)
	}
}

func TestConfidenceBoundaries(t *testing.T) {
	est := newTestEstimator()
	cases := []struct {
		count int
		want  Confidence
	}{
		{0, ConfidenceStatic},
		{1, ConfidenceLowData},
		{2, ConfidenceLowData},
		{4, ConfidenceLowData},
		{5, ConfidenceLearned},
		{9, ConfidenceLearned},
	}
	for _, tc := range cases {
		records := make([]history.Record, 0, tc.count+1)
		for i := 0; i < tc.count; i++ {
			records = append(records, timing(capability.Kling, 5, 100, time.Duration(i+1)*time.Hour))
		}
		records = append(records, timing(capability.Kling, 5, 100, 10*24*time.Hour))
		if got := est.Confidence(capability.Kling, records); got != tc.want {
			t.Fatalf("%d records: expected %s, got %s", tc.count, tc.want, got)
		}
	}
}

func TestProjectRemaining(t *testing.T) {
	if got := ProjectRemaining(nil, 3); got != 0 {
		t.Fatalf("expected zero with nothing completed, got %s", got)
	}
	got := ProjectRemaining([]time.Duration{10 * time.Second, 20 * time.Second}, 3)
	if got != 45*time.Second {
		t.Fatalf("expected 45s, got %s", got)
	}
	if got := ProjectRemaining([]time.Duration{time.Second}, 0); got != 0 {
		t.Fatalf("expected zero with nothing remaining, got %s", got)
	}
}
