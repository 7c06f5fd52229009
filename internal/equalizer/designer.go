package equalizer

import (
	"fmt"
	"math"

	"github.com/patrickmn/go-cache"
)

const (
	// designResolution quantizes gains to 0.01 dB before design.
	designResolution = 100.0
	// maxCachedDesigns bounds the memo; it is flushed when exceeded.
	maxCachedDesigns = 4096
)

// designer memoizes peaking designs keyed by band, rate and quantized gain.
type designer struct {
	designs *cache.Cache
}

func newDesigner() *designer {
	// no janitor: entries never expire and the size is capped by hand
	return &designer{designs: cache.New(cache.NoExpiration, 0)}
}

func quantizeGain(gainDB float64) float64 {
	return math.Round(gainDB*designResolution) / designResolution
}

// design returns coefficients for a band at the given applied gain.
// A quantized gain of exactly 0 dB is Identity.
func (d *designer) design(band Band, sampleRate, appliedGain float64) Coefficients {
	gain := quantizeGain(appliedGain)
	if gain == 0 {
		return Identity
	}

	key := fmt.Sprintf("%g/%g/%g/%g", band.Frequency, band.Q, sampleRate, gain)
	if v, ok := d.designs.Get(key); ok {
		if c, ok := v.(Coefficients); ok {
			return c
		}
	}

	c := PeakingCoefficients(band.Frequency, sampleRate, band.Q, gain)
	if d.designs.ItemCount() >= maxCachedDesigns {
		d.designs.Flush()
	}
	d.designs.SetDefault(key, c)
	return c
}

func (d *designer) size() int {
	return d.designs.ItemCount()
}
