package egamma

import "math"

// DeltaPhi returns a-b wrapped into [-pi, pi].
func DeltaPhi(a, b float64) float64 {
	d := a - b
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// DeltaR returns the eta-phi distance between two directions.
func DeltaR(eta1, phi1, eta2, phi2 float64) float64 {
	dEta := eta1 - eta2
	dPhi := DeltaPhi(phi1, phi2)
	return math.Sqrt(dEta*dEta + dPhi*dPhi)
}
