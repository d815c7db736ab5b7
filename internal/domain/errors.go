package domain

import "errors"

var (
	// ErrDataUnavailable means the forecast could not be fetched or contained
	// no usable samples.
	ErrDataUnavailable = errors.New("forecast data unavailable")

	// ErrDelivery means the notification channel rejected or never received
	// an alert.
	ErrDelivery = errors.New("notification delivery failed")

	// ErrConfiguration means the service settings are invalid. It is fatal at
	// startup.
	ErrConfiguration = errors.New("invalid configuration")
)
