package combat

import "math"

// WinProbability returns the chance that an attacker with strength as,
// ahp hit points and firepower afp destroys a defender with ds, dhp and dfp.
//
// Each round the attacker wins with probability as/(as+ds) and removes afp
// hit points from the defender; otherwise it loses dfp. The result is the
// binomial sum over every way the defender runs out of hit points first.
//
// Precondition: ahp, dhp, afp and dfp must be > 0.
// Postcondition: Returns a value in [0, 1].
func WinProbability(as, ahp, afp, ds, dhp, dfp int) float64 {
	if ahp <= 0 {
		return 0
	}
	if dhp <= 0 {
		return 1
	}
	if afp < 1 {
		afp = 1
	}
	if dfp < 1 {
		dfp = 1
	}
	attNLose := (ahp + dfp - 1) / dfp
	defNLose := (dhp + afp - 1) / afp

	attPLose1 := 0.5
	if as+ds > 0 {
		attPLose1 = float64(ds) / float64(as+ds)
	}
	defPLose1 := 1 - attPLose1

	binom := math.Pow(defPLose1, float64(defNLose-1))
	accum := binom
	for lr := 1; lr < attNLose; lr++ {
		n := lr + defNLose - 1
		binom *= float64(n)
		binom /= float64(lr)
		binom *= attPLose1
		accum += binom
	}
	chance := accum * defPLose1
	if chance < 0 {
		return 0
	}
	if chance > 1 {
		return 1
	}
	return chance
}

