// Package note converts between musical note names and frequencies using
// twelve-tone equal temperament with A4 = 440 Hz.
package note

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	A4Frequency = 440.0
	A4MIDI      = 69
)

var names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

var notePattern = regexp.MustCompile(`^([A-Ga-g])([#b]?)(-?\d+)$`)

// MIDI returns the MIDI number of a note name such as "C#4" or "Db4"
func MIDI(name string) (int, error) {
	m := notePattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return 0, fmt.Errorf("invalid note name %q", name)
	}

	semitone := semitones[strings.ToUpper(m[1])[0]]
	switch m[2] {
	case "#":
		semitone++
	case "b":
		semitone--
	}

	octave, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q: %w", name, err)
	}
	return (octave+1)*12 + semitone, nil
}

// MIDIFrequency returns the frequency of a MIDI note number
func MIDIFrequency(midi int) float64 {
	return A4Frequency * math.Pow(2, float64(midi-A4MIDI)/12)
}

// ToFrequency returns the frequency of a note name
func ToFrequency(name string) (float64, error) {
	midi, err := MIDI(name)
	if err != nil {
		return 0, err
	}
	return MIDIFrequency(midi), nil
}

// Name returns the nearest note name for freq, sharps only. freq must be > 0.
func Name(freq float64) string {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return ""
	}
	midi := int(math.Round(12*math.Log2(freq/A4Frequency))) + A4MIDI
	octave := floorDiv(midi, 12) - 1
	return names[midi-floorDiv(midi, 12)*12] + strconv.Itoa(octave)
}

// Cents returns how far freq lies from its nearest note, in cents
func Cents(freq float64) float64 {
	steps := 12 * math.Log2(freq/A4Frequency)
	return 100 * (steps - math.Round(steps))
}

// OctaveC returns the frequency of C in octave n (C4 = 261.63 Hz)
func OctaveC(n int) float64 {
	return MIDIFrequency((n + 1) * 12)
}

// ParseFrequency accepts a frequency in Hz ("440", "440Hz", "1.5kHz") or a
// note name ("A4")
func ParseFrequency(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)

	scale := 1.0
	switch {
	case strings.HasSuffix(lower, "khz"):
		scale = 1000
		lower = strings.TrimSuffix(lower, "khz")
	case strings.HasSuffix(lower, "hz"):
		lower = strings.TrimSuffix(lower, "hz")
	}

	if v, err := strconv.ParseFloat(strings.TrimSpace(lower), 64); err == nil {
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("frequency must be positive: %q", s)
		}
		return v * scale, nil
	}

	freq, err := ToFrequency(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a frequency nor a note name", s)
	}
	return freq, nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
