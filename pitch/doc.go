// Package pitch estimates the fundamental frequency of a single audio frame.
//
// The estimator is a time-domain autocorrelation detector tuned for monophonic
// instrument input such as a guitar string:
//
//   - Frames whose RMS level is below a silence threshold report no pitch.
//   - The frame edges are trimmed to the first low-amplitude sample on each
//     side, which reduces the discontinuity an implicit rectangular window
//     would otherwise introduce.
//   - The un-normalized autocorrelation is computed for every lag of the
//     trimmed frame, the initial decline from lag 0 is skipped and the
//     strongest remaining lag is taken as the period.
//
// # Usage
//
//	est, err := pitch.Detect(frame, 44100)
//	if err != nil {
//		return err // malformed frame, see ErrInvalidInput
//	}
//	if est.Detected {
//		fmt.Printf("%.2f Hz\n", est.FrequencyHz)
//	}
//
// The autocorrelation can be computed directly (O(N^2), the default) or via
// FFT using the Wiener-Khinchin relation:
//
//	est, err := pitch.Detect(frame, 48000, pitch.WithMethod(pitch.MethodFFT))
//
// Both methods select lags with identical rules; they differ only in cost and
// in floating-point rounding of the correlation values.
//
// Detect keeps no state between calls and may be used from several goroutines
// as long as each call gets a buffer nobody else is writing to.
package pitch
