package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"fireplacerf/rf"
)

// calibrationFile mirrors the YAML calibration file. Every key is optional;
// absent keys keep the built-in defaults.
type calibrationFile struct {
	Start  []int `yaml:"start"`
	K      *int  `yaml:"k"`
	Timing struct {
		One                *uint32 `yaml:"one"`
		Zero               *uint32 `yaml:"zero"`
		HeaderBitPause     *uint32 `yaml:"header_bit_pause"`
		HeaderSegmentPause *uint32 `yaml:"header_segment_pause"`
		BodyBitPause       *uint32 `yaml:"body_bit_pause"`
		BodySegmentPause   *uint32 `yaml:"body_segment_pause"`
		MessagePause       *uint32 `yaml:"message_pause"`
		Repeat             *int    `yaml:"repeat"`
		MaxDelay           *uint32 `yaml:"max_delay"`
	} `yaml:"timing"`
}

var ErrBadCalibration = errors.New("bad calibration")

// loadCalibration reads path, or returns the defaults when path is empty.
func loadCalibration(path string) (rf.Calibration, rf.Timing, error) {
	if path == "" {
		return rf.DefaultCalibration, rf.DefaultTiming, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return rf.Calibration{}, rf.Timing{}, err
	}
	cal, timing, err := parseCalibration(b)
	if err != nil {
		return rf.Calibration{}, rf.Timing{}, fmt.Errorf("%s: %w", path, err)
	}
	return cal, timing, nil
}

func parseCalibration(b []byte) (rf.Calibration, rf.Timing, error) {
	cal, timing := rf.DefaultCalibration, rf.DefaultTiming

	var f calibrationFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return cal, timing, err
	}

	if f.Start != nil {
		if len(f.Start) != len(cal.Start) {
			return cal, timing, fmt.Errorf("%w: start needs %d bytes, got %d", ErrBadCalibration, len(cal.Start), len(f.Start))
		}
		for i, v := range f.Start {
			if v < 0 || v > 0xFF {
				return cal, timing, fmt.Errorf("%w: start[%d] = %d is not a byte", ErrBadCalibration, i, v)
			}
			cal.Start[i] = byte(v)
		}
	}
	if f.K != nil {
		if *f.K < 0 || *f.K > 0xFF {
			return cal, timing, fmt.Errorf("%w: k = %d is not a byte", ErrBadCalibration, *f.K)
		}
		cal.K = byte(*f.K)
	}

	ft := f.Timing
	setUint32(&timing.One, ft.One)
	setUint32(&timing.Zero, ft.Zero)
	setUint32(&timing.HeaderBitPause, ft.HeaderBitPause)
	setUint32(&timing.HeaderSegmentPause, ft.HeaderSegmentPause)
	setUint32(&timing.BodyBitPause, ft.BodyBitPause)
	setUint32(&timing.BodySegmentPause, ft.BodySegmentPause)
	setUint32(&timing.MessagePause, ft.MessagePause)
	setUint32(&timing.MaxDelay, ft.MaxDelay)
	if ft.Repeat != nil {
		timing.Repeat = *ft.Repeat
	}

	if err := timing.Validate(); err != nil {
		return cal, timing, err
	}
	return cal, timing, nil
}

func setUint32(dst *uint32, v *uint32) {
	if v != nil {
		*dst = *v
	}
}
