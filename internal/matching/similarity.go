package matching

import (
	"math"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/desertthunder/ytsync/internal/models"
)

// DefaultTitleWeight is the share of the score taken by the title part of a key.
const DefaultTitleWeight = 0.75

// Scorer computes a similarity in [0,1] between two normalized keys.
// Implementations must be symmetric and return 1 only for identical keys.
type Scorer interface {
	Score(a, b models.NormalizedKey) float64
}

// JaroWinklerScorer scores keys with Jaro-Winkler similarity, computed separately
// for the title and artist parts and combined by TitleWeight.
type JaroWinklerScorer struct {
	TitleWeight float64
	metric      *metrics.JaroWinkler
}

func NewJaroWinklerScorer() *JaroWinklerScorer {
	return &JaroWinklerScorer{TitleWeight: DefaultTitleWeight, metric: metrics.NewJaroWinkler()}
}

func (s *JaroWinklerScorer) Score(a, b models.NormalizedKey) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	x, y := string(a), string(b)
	if x > y {
		x, y = y, x
	}

	var score float64
	titleX, artistX, okX := strings.Cut(x, KeySeparator)
	titleY, artistY, okY := strings.Cut(y, KeySeparator)
	if okX && okY {
		score = s.TitleWeight*s.compare(titleX, titleY) + (1-s.TitleWeight)*s.compare(artistX, artistY)
	} else {
		score = s.compare(x, y)
	}

	// Distinct keys never reach 1.
	return math.Max(0, math.Min(score, math.Nextafter(1, 0)))
}

func (s *JaroWinklerScorer) compare(a, b string) float64 {
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, s.metric)
}
