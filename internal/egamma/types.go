// Package egamma implements the displaced-e/gamma candidate filter:
// shower-shape, seed-time and track-isolation cuts over candidates
// whose cluster moments and seed time arrive precomputed.
package egamma

// BarrelEtaMax is the barrel/endcap boundary in |eta|.
const BarrelEtaMax = 1.479

// Candidate is one e/gamma candidate. SMin and SMaj are the second
// moments of the seed cluster, SeedTime the seed crystal time in ns.
type Candidate struct {
	Et       float64 `json:"et"`
	Eta      float64 `json:"eta"`
	Phi      float64 `json:"phi"`
	SMin     float64 `json:"sMin"`
	SMaj     float64 `json:"sMaj"`
	SeedTime float64 `json:"seedTime"`
}

// Track is a reconstructed track used for the isolation veto.
type Track struct {
	Pt  float64 `json:"pt"`
	Eta float64 `json:"eta"`
	Phi float64 `json:"phi"`
}
