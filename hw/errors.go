package hw

import "errors"

var (
	ErrPinNotFound   = errors.New("gpio pin not found")
	ErrNoAck         = errors.New("coprocessor did not acknowledge")
	ErrNak           = errors.New("coprocessor rejected frame")
	ErrTooManyPulses = errors.New("pulse train too long")
	ErrPulseTooLong  = errors.New("pulse longer than frame word allows")
)
