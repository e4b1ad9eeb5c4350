package ctd

import (
	"math"
	"time"
)

// Thermal and pressure corrections of the SBE43 membrane time constant.
const (
	tauTcor = -4.1776e-2
	tauPcor = 1.964e-4
)

// PumpTime returns how long the CTD pump must run before an oxygen sample
// so that the SBE43 settles within n time constants.
//
// p is the pressure in decibars, t the temperature in degrees Celsius and
// tau1P the sensor time constant at one atmosphere and 20C. Inputs outside
// their valid range (NaN included) are replaced by nominal values. The
// result is rounded to whole seconds and kept within 7 to 100 seconds.
func PumpTime(p, t, tau1P float64, n int) time.Duration {
	if !(tau1P > 1 && tau1P <= 10) {
		tau1P = 2.75
	}
	if !(t >= -2 && t <= 40) {
		t = 4
	}
	if !(p >= 0 && p <= 2500) {
		p = 2000
	}

	tau := tau1P * math.Exp(tauPcor*p) * math.Exp(tauTcor*(t-20))
	tau = min(max(tau, 2), 30)

	secs := math.Floor(float64(n)*tau + 0.5)
	secs = min(max(secs, 7), 100)
	return time.Duration(secs) * time.Second
}
