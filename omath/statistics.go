package omath

import "math"

// Mean ...
func Mean(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	var sum float64
	for _, v := range nums {
		sum += v
	}
	return sum / float64(len(nums))
}

// Variance ...
func Variance(nums []float64) (variance float64) {
	if len(nums) == 0 {
		return 0
	}
	mean := Mean(nums)
	for _, v := range nums {
		variance += (v - mean) * (v - mean)
	}
	return variance / float64(len(nums))
}

// StandardDeviation ...
func StandardDeviation(nums []float64) float64 {
	return math.Sqrt(Variance(nums))
}

// Max returns the largest value in nums, or zero for an empty slice.
func Max(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	m := nums[0]
	for _, v := range nums[1:] {
		m = math.Max(m, v)
	}
	return m
}
