package reassign

import (
	"math/rand"

	"github.com/kilianp07/railjobs/core/model"
)

// ChooseCarCountNotExceedingLength returns a count k such that the first k
// cars are shorter than maxLength. The full count is kept when it fits;
// otherwise k is narrowed to a random value in [k/2, k) until it fits or
// reaches one. The result is some fitting count, not the largest one.
func ChooseCarCountNotExceedingLength(cars []model.Car, maxLength, separation float64, rng *rand.Rand) int {
	k := len(cars)
	for k > 1 {
		if model.TrainLength(cars[:k], separation) < maxLength {
			break
		}
		lo := k / 2
		k = lo + rng.Intn(k-lo)
	}
	return k
}

func randomElement[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}
