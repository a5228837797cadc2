package evaluate

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
)

// StratifiedSplit partitions row indices into train and test sets so each
// label keeps its share of the data in both. The result depends only on
// labels, testSize and seed. testSize is the test fraction in (0, 1].
func StratifiedSplit(labels []int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize > 1 {
		return nil, nil, fmt.Errorf("evaluate: test size must be in (0, 1], got %v", testSize)
	}
	n := len(labels)
	if n == 0 {
		return nil, nil, fmt.Errorf("evaluate: nothing to split")
	}

	byClass := map[int][]int{}
	for i, l := range labels {
		byClass[l] = append(byClass[l], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	slices.Sort(classes)

	quota := allocate(classes, byClass, int(math.Ceil(testSize*float64(n))))

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for _, c := range classes {
		idx := slices.Clone(byClass[c])
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		test = append(test, idx[:quota[c]]...)
		train = append(train, idx[quota[c]:]...)
	}
	slices.Sort(train)
	slices.Sort(test)
	return train, test, nil
}

// allocate spreads nTest over the classes proportionally, handing leftover
// slots to the largest fractional remainders.
func allocate(classes []int, byClass map[int][]int, nTest int) map[int]int {
	total := 0
	for _, c := range classes {
		total += len(byClass[c])
	}

	type share struct {
		class int
		frac  float64
	}
	quota := make(map[int]int, len(classes))
	shares := make([]share, 0, len(classes))
	assigned := 0
	for _, c := range classes {
		exact := float64(nTest) * float64(len(byClass[c])) / float64(total)
		q := int(math.Floor(exact))
		quota[c] = q
		assigned += q
		shares = append(shares, share{c, exact - float64(q)})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for i := 0; assigned < nTest; i = (i + 1) % len(shares) {
		c := shares[i].class
		if quota[c] < len(byClass[c]) {
			quota[c]++
			assigned++
		}
	}
	return quota
}
