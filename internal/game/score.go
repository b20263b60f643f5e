package game

import (
	"math"
	"time"
)

// ScoringWindow is the fixed interval response latency is compared
// against. It is deliberately distinct from the configurable display
// timer: the timer paces clients, the window paces points.
const ScoringWindow = 30 * time.Second

// Score computes the points for one submission. Incorrect answers earn
// nothing; correct answers earn between half and all of maxPoints
// depending on how much of the window was left when the answer arrived.
func Score(isCorrect bool, responseTime, window time.Duration, maxPoints int) int {
	if !isCorrect {
		return 0
	}
	timeBonus := math.Max(0, float64(window-responseTime)/float64(window))
	return int(math.Round(float64(maxPoints) * (0.5 + 0.5*timeBonus)))
}
