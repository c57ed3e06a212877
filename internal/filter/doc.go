// Package filter implements the per-curve signal filters applied to well-log
// samples: Savitzky-Golay, moving-average and Gaussian smoothing, Haar
// wavelet shrinkage, Hampel / modified z-score / IQR spike detection, PCHIP
// interpolation and polynomial baseline removal.
//
// All filters are pure functions over []float64 where NaN marks a null
// sample. Inputs are never modified; nulls stay null unless a filter is
// explicitly asked to fill them.
package filter
