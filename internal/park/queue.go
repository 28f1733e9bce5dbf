package park

import "math"

// DispatchFactor reflects that not every seat is filled on every dispatch.
const DispatchFactor = 0.5

// DispatchCapacity returns the guests boarded per cycle for a ride with the
// given stated capacity and uptime. It is never below 1 for a ride that has
// any capacity at all; a non-positive capacity yields 0.
func DispatchCapacity(capacity int, uptime float64) int {
	if capacity <= 0 {
		return 0
	}
	d := int(math.Round(float64(capacity) * DispatchFactor * clamp01(uptime)))
	return max(1, d)
}

// EstimateQueueWaitMinutes estimates the wait for the last guest in a queue.
func EstimateQueueWaitMinutes(queueLength int, rideSeconds float64, capacity int, uptime float64) int {
	dispatch := DispatchCapacity(capacity, uptime)
	if dispatch == 0 || queueLength <= 0 {
		return 0
	}
	rideMinutes := max(1, math.Round(rideSeconds/60))
	wait := math.Round(float64(queueLength) / float64(dispatch) * rideMinutes)
	return max(0, int(wait))
}
