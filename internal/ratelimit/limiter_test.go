package ratelimit

func fixedLimits(perMinute, perHour int) TierLimits {
	return func(tier string) (int, int) { return perMinute, perHour }
}

func newTestLimiter(perMinute, perHour int) *Limiter {
	l := New(fixedLimits(perMinute, perHour))
	return l
}
