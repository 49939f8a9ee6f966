package pool

import (
	"fmt"
	"math"

	"github.com/cory-johannsen/dicetab/internal/dist"
)

// RankSum returns the exact distribution of the sum of the selected order
// statistics of a count-dice dY pool.
//
// The pool is resolved face by face in ascending order. Every die showing the
// current face lands in one contiguous block of the sorted sequence, so a DP
// state needs only (dice placed so far, partial sum of selected ranks).
// Conditioned on showing at least face v, a die shows exactly v with
// probability 1/(faces-v+1), which makes each block size a binomial draw and
// keeps every intermediate weight a probability. Runtime is polynomial in
// count and faces; the faces^count outcome space is never enumerated.
//
// Precondition: ranks was built for a pool of exactly count dice.
// Postcondition: returns ErrInvalidDie, ErrPoolTooLarge, or a distribution
// whose masses sum to 1.
func (c *Calculator) RankSum(count, faces int, ranks RankSet) (dist.Distribution, error) {
	if err := c.check(count, faces); err != nil {
		return dist.Distribution{}, err
	}
	if ranks.size != count {
		panic(fmt.Sprintf("pool: RankSum precondition violated: rank set sized for %d dice, pool has %d",
			ranks.size, count))
	}
	if ranks.Count() == 0 {
		return dist.FromSingleton(0), nil
	}

	// prefix[i] counts the selected ranks among positions 1..i, so a block
	// occupying ranks p+1..p+c contributes v*(prefix[p+c]-prefix[p]).
	prefix := make([]int, count+1)
	for i := 1; i <= count; i++ {
		prefix[i] = prefix[i-1]
		if ranks.sel[i-1] {
			prefix[i]++
		}
	}

	// dp[p][s] is the probability that the p lowest dice are fixed and the
	// selected ranks among them sum to s.
	dp := make([]map[int]float64, count+1)
	dp[0] = map[int]float64{0: 1}

	for v := 1; v <= faces; v++ {
		q := 1.0 / float64(faces-v+1)
		next := make([]map[int]float64, count+1)
		for p := 0; p <= count; p++ {
			states := dp[p]
			if len(states) == 0 {
				continue
			}
			rem := count - p
			for block := 0; block <= rem; block++ {
				step := binomialPMF(rem, block, q)
				if step == 0 {
					continue
				}
				gain := v * (prefix[p+block] - prefix[p])
				np := p + block
				if next[np] == nil {
					next[np] = make(map[int]float64)
				}
				for s, w := range states {
					next[np][s+gain] += w * step
				}
			}
		}
		dp = next
	}

	// After the final face every die is placed; the last block draw has
	// probability 1 of absorbing all remaining dice.
	return dist.FromMasses(dp[count]), nil
}

// binomialPMF returns C(n,k) * p^k * (1-p)^(n-k), computed in log space so
// the result stays a probability even where the raw coefficient would
// overflow a float64.
func binomialPMF(n, k int, p float64) float64 {
	if k < 0 || k > n {
		return 0
	}
	if p >= 1 {
		if k == n {
			return 1
		}
		return 0
	}
	if p <= 0 {
		if k == 0 {
			return 1
		}
		return 0
	}
	logC := lgammaInt(n) - lgammaInt(k) - lgammaInt(n-k)
	logP := logC + float64(k)*math.Log(p) + float64(n-k)*math.Log(1-p)
	return math.Exp(logP)
}

// lgammaInt returns ln(x!) for x >= 0.
func lgammaInt(x int) float64 {
	v, _ := math.Lgamma(float64(x) + 1)
	return v
}
