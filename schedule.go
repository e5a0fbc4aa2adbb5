package skipgrid

import "math"

// learningRate returns the step size for the given scheduler step.
//
// With MinLearningRate set, the rate decays along a straight line in log
// space from LearningRate at progress 0 toward MinLearningRate at
// progress 1, where progress = step/totalSteps. The endpoint is never
// reached: the last step sits one increment short of progress 1. Without
// MinLearningRate the rate is constant.
func learningRate(lr0, lrMin float64, step, totalSteps int) float64 {
	if lrMin <= 0 {
		return lr0
	}
	progress := float64(step) / float64(totalSteps)
	return math.Exp(math.Log(lr0) - (math.Log(lr0)-math.Log(lrMin))*progress)
}
