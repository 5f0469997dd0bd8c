package capability

import "testing"

func TestLookupFallsBackToDefault(t *testing.T) {
	for _, key := range []string{"", "sora", "  unknown  "} {
		key := key
		t.Run(key, func(t *testing.T) {
			resolved, rec := Resolve(key)
			if resolved != Default {
				t.Fatalf("resolved = %q, want %q", resolved, Default)
			}
			if rec.Key != Default {
				t.Fatalf("record key = %q, want %q", rec.Key, Default)
			}
		})
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	if got := Lookup(" KLING ").Key; got != Kling {
		t.Fatalf("Lookup(KLING).Key = %q, want %q", got, Kling)
	}
}

func TestRecordsAreUsable(t *testing.T) {
	for _, rec := range All() {
		if rec.MaxDuration <= 0 {
			t.Fatalf("%s: MaxDuration = %d", rec.Key, rec.MaxDuration)
		}
		if !rec.SupportsAspect(DefaultAspect) {
			t.Fatalf("%s: default aspect %s unsupported", rec.Key, DefaultAspect)
		}
		if rec.SecondsPerOutputSecond <= 0 || rec.QueueWaitSeconds < 0 {
			t.Fatalf("%s: invalid timing constants", rec.Key)
		}
	}
	if len(All()) != len(Keys()) {
		t.Fatalf("All/Keys length mismatch")
	}
}

func TestLookupReturnsCopies(t *testing.T) {
	rec := Lookup(Wan)
	rec.AspectRatios[0] = "mutated"
	if Lookup(Wan).AspectRatios[0] == "mutated" {
		t.Fatal("registry record was mutated through a returned copy")
	}
}

func TestClampDuration(t *testing.T) {
	rec := Lookup(LTX)
	cases := []struct {
		in, want int
	}{
		{in: 0, want: 1},
		{in: 3, want: 3},
		{in: 5, want: 5},
		{in: 12, want: rec.MaxDuration},
	}
	for _, tc := range cases {
		if got := rec.ClampDuration(tc.in); got != tc.want {
			t.Fatalf("ClampDuration(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEstimateCostUsesClampedDuration(t *testing.T) {
	if got := EstimateCost(LTX, 20); got != 0.1 {
		t.Fatalf("EstimateCost(ltx, 20) = %v, want 0.1", got)
	}
	if got := EstimateCost(Kling, 5); got != 1.4 {
		t.Fatalf("EstimateCost(kling, 5) = %v, want 1.4", got)
	}
}
