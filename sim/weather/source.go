// Package weather supplies daily forcing for the water-balance simulation:
// a calendar, a Source contract and two implementations.
//
// Depths (precipitation, PET) are in metres per day, temperatures in
// degrees Celsius.
package weather

import "time"

// Sample is one day of forcing.
type Sample struct {
	Date   time.Time
	Precip float64
	TMin   float64
	TMax   float64
	TAvg   float64
	PET    float64
}

// Source produces forcing for consecutive days.
type Source interface {
	Next(date time.Time) Sample
}

// Constant returns the same forcing every day.
type Constant struct {
	Precip float64 `yaml:"precip"`
	PET    float64 `yaml:"pet"`
	Temp   float64 `yaml:"temp"`
}

var _ Source = Constant{}

// Next implements Source.
func (c Constant) Next(date time.Time) Sample {
	return Sample{
		Date:   date,
		Precip: c.Precip,
		TMin:   c.Temp,
		TMax:   c.Temp,
		TAvg:   c.Temp,
		PET:    c.PET,
	}
}

// Series replays a fixed sequence of samples, repeating the last one once
// exhausted. The Date of each returned sample is the requested date.
type Series struct {
	Samples []Sample
	next    int
}

// Next implements Source.
func (s *Series) Next(date time.Time) Sample {
	if len(s.Samples) == 0 {
		return Sample{Date: date}
	}
	i := s.next
	if i >= len(s.Samples) {
		i = len(s.Samples) - 1
	} else {
		s.next++
	}
	out := s.Samples[i]
	out.Date = date
	return out
}
