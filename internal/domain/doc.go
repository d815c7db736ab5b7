// Package domain models the planetary Kp index forecast published by the NOAA
// Space Weather Prediction Center (SWPC) and the rules for deciding whether a
// forecast is worth an aurora alert.
//
// # Data Source
//
// SWPC issues the "3-Day Forecast" text product several times a day at
// https://services.swpc.noaa.gov/text/3-day-forecast.txt. Its Kp section is a
// table of eight 3-hour UTC blocks by three calendar days:
//
//	NOAA Kp index breakdown Oct 18-Oct 20 2024
//
//	             Oct 18       Oct 19       Oct 20
//	00-03UT       3.67         2.67         5.00 (G1)
//	03-06UT       3.33         2.33         4.67
//	...
//
// Each cell becomes one [ForecastSample] stamped at the start of its block.
// A trailing "(G1)".."(G5)" marks the NOAA geomagnetic storm scale and carries
// no extra information beyond the Kp value itself.
//
// The same numbers are available as JSON from the planetary K-index forecast
// product, as rows of [time_tag, kp, observed, noaa_scale].
//
// # Kp Scale
//
// Kp runs from 0 (quiet) to 9 (extreme storm) in thirds. As a rule of thumb
// aurora becomes visible at mid-high latitudes from Kp 5 (G1) upward, which is
// why the default alert threshold is 5.
//
// # Windows and Days
//
// Evaluation only looks at samples inside a half-open [Window], normally the
// twelve hours following the daily check ("tonight"). Calendar days used for
// alert de-duplication are computed in the operator's configured location, not
// in UTC, so a single evening never spans two alert days. See [DateOf].
package domain
