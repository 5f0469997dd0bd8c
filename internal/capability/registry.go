// Package capability holds the static per-provider constraints used to route,
// normalize and estimate video generation requests.
package capability

import "strings"

// Provider keys understood by the registry.
const (
	Wan      = "wan"
	Kling    = "kling"
	LTX      = "ltx"
	Veo      = "veo"
	Hailuo   = "hailuo"
	Seedance = "seedance"

	// Default resolves unknown keys and is the balanced auto-select choice.
	Default = Wan
)

// Aspect ratios referenced by the table and by request normalization.
const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
	AspectSquare    = "1:1"

	DefaultAspect = AspectLandscape
)

// Record is the immutable capability description of one provider.
type Record struct {
	Key                    string
	Name                   string
	MaxDuration            int
	AspectRatios           []string
	SupportsImage          bool
	SupportsNegativePrompt bool
	SupportsSeed           bool
	SupportsCameraMovement bool
	SupportsStylePreset    bool
	SecondsPerOutputSecond float64
	QueueWaitSeconds       float64
	CostPerSecond          float64
	Notes                  string
}

var order = []string{Wan, Kling, LTX, Veo, Hailuo, Seedance}

var records = map[string]Record{
	Wan: {
		Key:                    Wan,
		Name:                   "Wan 2.2",
		MaxDuration:            10,
		AspectRatios:           []string{AspectLandscape, AspectPortrait, AspectSquare},
		SupportsImage:          true,
		SupportsNegativePrompt: true,
		SupportsSeed:           true,
		SupportsStylePreset:    true,
		SecondsPerOutputSecond: 9,
		QueueWaitSeconds:       20,
		CostPerSecond:          0.08,
		Notes:                  "Balanced quality and cost; good general-purpose default.",
	},
	Kling: {
		Key:                    Kling,
		Name:                   "Kling 2.1 Master",
		MaxDuration:            10,
		AspectRatios:           []string{AspectLandscape, AspectPortrait, AspectSquare},
		SupportsImage:          true,
		SupportsNegativePrompt: true,
		SupportsCameraMovement: true,
		SecondsPerOutputSecond: 14,
		QueueWaitSeconds:       45,
		CostPerSecond:          0.28,
		Notes:                  "Strongest motion coherence; durations snap to 5s or 10s.",
	},
	LTX: {
		Key:                    LTX,
		Name:                   "LTX Video 13B Distilled",
		MaxDuration:            5,
		AspectRatios:           []string{AspectLandscape, AspectPortrait, AspectSquare},
		SupportsImage:          true,
		SupportsNegativePrompt: true,
		SupportsSeed:           true,
		SecondsPerOutputSecond: 3,
		QueueWaitSeconds:       5,
		CostPerSecond:          0.02,
		Notes:                  "Fastest and cheapest; best for drafts and short inserts.",
	},
	Veo: {
		Key:                    Veo,
		Name:                   "Google Veo 2",
		MaxDuration:            8,
		AspectRatios:           []string{AspectLandscape, AspectPortrait},
		SupportsImage:          true,
		SupportsNegativePrompt: true,
		SupportsSeed:           true,
		SecondsPerOutputSecond: 12,
		QueueWaitSeconds:       30,
		CostPerSecond:          0.50,
		Notes:                  "Photorealistic landscapes and nature; no square output.",
	},
	Hailuo: {
		Key:                    Hailuo,
		Name:                   "MiniMax Hailuo 02",
		MaxDuration:            10,
		AspectRatios:           []string{AspectLandscape},
		SupportsImage:          true,
		SecondsPerOutputSecond: 11,
		QueueWaitSeconds:       25,
		CostPerSecond:          0.045,
		Notes:                  "Expressive faces and people; over-indexes on quality buzzwords.",
	},
	Seedance: {
		Key:                    Seedance,
		Name:                   "Seedance 1.0 Pro",
		MaxDuration:            10,
		AspectRatios:           []string{AspectLandscape, AspectPortrait, AspectSquare, "4:3", "3:4", "21:9"},
		SupportsImage:          true,
		SupportsSeed:           true,
		SupportsCameraMovement: true,
		SecondsPerOutputSecond: 8,
		QueueWaitSeconds:       15,
		CostPerSecond:          0.12,
		Notes:                  "Parameters travel as prompt flags; camera can be locked.",
	},
}

// Lookup returns the record for key, or the Default provider's record when the
// key is unknown.
func Lookup(key string) Record {
	_, rec := Resolve(key)
	return rec
}

// Resolve returns the effective provider key together with its record.
func Resolve(key string) (string, Record) {
	normalized := strings.ToLower(strings.TrimSpace(key))
	rec, ok := records[normalized]
	if !ok {
		normalized = Default
		rec = records[Default]
	}
	return normalized, clone(rec)
}

// Known reports whether key names a registered provider.
func Known(key string) bool {
	_, ok := records[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Keys lists provider keys in display order.
func Keys() []string {
	return append([]string(nil), order...)
}

// All returns every record in display order.
func All() []Record {
	out := make([]Record, 0, len(order))
	for _, key := range order {
		out = append(out, clone(records[key]))
	}
	return out
}

// ClampDuration limits seconds to [1, MaxDuration].
func (r Record) ClampDuration(seconds int) int {
	if seconds < 1 {
		return 1
	}
	if seconds > r.MaxDuration {
		return r.MaxDuration
	}
	return seconds
}

// SupportsAspect reports whether the provider accepts the aspect ratio.
func (r Record) SupportsAspect(aspect string) bool {
	for _, candidate := range r.AspectRatios {
		if candidate == aspect {
			return true
		}
	}
	return false
}

func clone(r Record) Record {
	r.AspectRatios = append([]string(nil), r.AspectRatios...)
	return r
}
