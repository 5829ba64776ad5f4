package calculator

import "errors"

// MovingAverage computes the arithmetic mean of the last `window` prices.
// If fewer points than `window` are available it averages what is there.
func MovingAverage(prices []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(prices) == 0 {
		return 0, errors.New("no prices provided")
	}
	start := len(prices) - window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for i := start; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(len(prices)-start), nil
}

// TrailingWindow returns the last n elements of prices in order, or fewer
// if the series is shorter.
func TrailingWindow(prices []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if len(prices) > n {
		return prices[len(prices)-n:]
	}
	return prices
}
