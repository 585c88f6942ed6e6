package trigger

import "math"

// DeltaPhi returns phi1-phi2 wrapped into (-π, π].
func DeltaPhi(phi1, phi2 float64) float64 {
	d := math.Mod(phi1-phi2, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	} else if d <= -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

func DeltaEta(eta1, eta2 float64) float64 {
	return eta1 - eta2
}

// DeltaR is the angular distance in the (eta, phi) plane.
func DeltaR(eta1, phi1, eta2, phi2 float64) float64 {
	return math.Hypot(DeltaEta(eta1, eta2), DeltaPhi(phi1, phi2))
}

// matches reports whether a candidate is consistent with a cached trigger
// object. A cached pt of zero has no defined relative difference and never
// matches.
func matches(tol Tolerances, cand, obj Kinematics) bool {
	if obj.Pt == 0 {
		return false
	}
	if !(math.Abs(cand.Pt-obj.Pt)/obj.Pt < tol.Pt) {
		return false
	}
	return DeltaR(cand.Eta, cand.Phi, obj.Eta, obj.Phi) < tol.DeltaR
}

// Match sets bit f of the result when slot f of the species holds at least
// one trigger object within tolerance of the candidate.
func (c *Cache) Match(s Species, tol Tolerances, pt, eta, phi float64) Bits {
	if !s.valid() {
		return 0
	}
	cand := Kinematics{Pt: pt, Eta: eta, Phi: phi}

	var result Bits
	for f, objs := range c.objects[s] {
		for _, obj := range objs {
			if matches(tol, cand, obj) {
				result |= 1 << uint(f)
				break
			}
		}
	}
	return result
}
