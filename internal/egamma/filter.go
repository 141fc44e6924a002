package egamma

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Cuts holds the filter configuration. Window bounds are inclusive.
// ExtraCut is an optional selection expression evaluated per candidate
// after the fixed cuts, over the variables et, eta, phi, sMin, sMaj,
// seedTime and nTracks.
type Cuts struct {
	EBOnly      bool    `json:"ebOnly"`
	SMinMin     float64 `json:"sMinMin"`
	SMinMax     float64 `json:"sMinMax"`
	SMajMin     float64 `json:"sMajMin"`
	SMajMax     float64 `json:"sMajMax"`
	SeedTimeMin float64 `json:"seedTimeMin"`
	SeedTimeMax float64 `json:"seedTimeMax"`
	TrackPtCut  float64 `json:"trackPtCut"`
	TrackDRCut  float64 `json:"trackDRCut"`
	MaxTrackCut int     `json:"maxTrackCut"`
	NCandCut    int     `json:"ncandCut"`
	ExtraCut    string  `json:"extraCut,omitempty"`
}

// DefaultCuts returns the standard displaced-e/gamma selection.
func DefaultCuts() Cuts {
	return Cuts{
		EBOnly:      false,
		SMinMin:     0.1,
		SMinMax:     0.4,
		SMajMin:     0.0,
		SMajMax:     999.0,
		SeedTimeMin: -25.0,
		SeedTimeMax: 25.0,
		TrackPtCut:  3.0,
		TrackDRCut:  0.5,
		MaxTrackCut: 0,
		NCandCut:    1,
	}
}

// Result is one filter decision: the candidates that passed all cuts
// and whether enough of them did.
type Result struct {
	Accepted bool        `json:"accepted"`
	Passed   []Candidate `json:"passed"`
}

// Filter applies a fixed set of cuts to candidate collections. The
// extra cut expression, if any, is compiled once at construction.
type Filter struct {
	cuts  Cuts
	extra *vm.Program
}

// NewFilter compiles the cuts into a reusable filter.
func NewFilter(cuts Cuts) (*Filter, error) {
	f := &Filter{cuts: cuts}
	if cuts.ExtraCut != "" {
		program, err := expr.Compile(cuts.ExtraCut, expr.Env(exprEnv(Candidate{}, 0)))
		if err != nil {
			return nil, fmt.Errorf("compile extra cut %q: %w", cuts.ExtraCut, err)
		}
		f.extra = program
	}
	return f, nil
}

// Apply runs the cut sequence over the candidates: barrel-only, sMin
// window, sMaj window, seed-time window, track isolation, extra cut.
// A candidate failing any cut is dropped and the next one is tried.
func (f *Filter) Apply(cands []Candidate, tracks []Track) (Result, error) {
	var passed []Candidate
	for _, c := range cands {
		if f.cuts.EBOnly && math.Abs(c.Eta) >= BarrelEtaMax {
			continue
		}
		if c.SMin < f.cuts.SMinMin || c.SMin > f.cuts.SMinMax {
			continue
		}
		if c.SMaj < f.cuts.SMajMin || c.SMaj > f.cuts.SMajMax {
			continue
		}
		if c.SeedTime < f.cuts.SeedTimeMin || c.SeedTime > f.cuts.SeedTimeMax {
			continue
		}

		nTracks := f.countNearbyTracks(c, tracks)
		if nTracks > f.cuts.MaxTrackCut {
			continue
		}

		if f.extra != nil {
			ok, err := f.evalExtra(c, nTracks)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				continue
			}
		}

		passed = append(passed, c)
	}
	return Result{Accepted: len(passed) >= f.cuts.NCandCut, Passed: passed}, nil
}

// countNearbyTracks counts tracks above the pt cut within the dR cone.
// Counting stops as soon as the candidate is vetoed.
func (f *Filter) countNearbyTracks(c Candidate, tracks []Track) int {
	n := 0
	for _, t := range tracks {
		if t.Pt < f.cuts.TrackPtCut {
			continue
		}
		if DeltaR(t.Eta, t.Phi, c.Eta, c.Phi) < f.cuts.TrackDRCut {
			n++
		}
		if n > f.cuts.MaxTrackCut {
			break
		}
	}
	return n
}

func (f *Filter) evalExtra(c Candidate, nTracks int) (bool, error) {
	out, err := expr.Run(f.extra, exprEnv(c, nTracks))
	if err != nil {
		return false, fmt.Errorf("evaluate extra cut %q: %w", f.cuts.ExtraCut, err)
	}
	return truthy(out), nil
}

func exprEnv(c Candidate, nTracks int) map[string]any {
	return map[string]any{
		"et":       c.Et,
		"eta":      c.Eta,
		"phi":      c.Phi,
		"sMin":     c.SMin,
		"sMaj":     c.SMaj,
		"seedTime": c.SeedTime,
		"nTracks":  nTracks,
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case int:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}
