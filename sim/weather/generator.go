package weather

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

const inch = 0.0254 // metres

// Deterministic switches individual random processes off.
type Deterministic struct {
	Markov      bool `yaml:"markov"`      // every day is wet
	Rain        bool `yaml:"rain"`        // wet-day depth is its expected value
	Temperature bool `yaml:"temperature"` // no temperature noise
}

// Params configures a Generator. Month-indexed arrays start with January.
type Params struct {
	PWetAfterDry [12]float64 `yaml:"p_wet_after_dry"`
	PWetAfterWet [12]float64 `yaml:"p_wet_after_wet"`
	MonthlyRain  [12]float64 `yaml:"monthly_rain"` // mean monthly total, metres
	MinRain      float64     `yaml:"min_rain"`     // wet-day depths below this count as dry

	TMaxMean float64 `yaml:"tmax_mean"`
	TMaxAmp  float64 `yaml:"tmax_amplitude"`
	TMinMean float64 `yaml:"tmin_mean"`
	TMinAmp  float64 `yaml:"tmin_amplitude"`
	PeakDay  int     `yaml:"peak_day"` // day of year of the warmest temperatures
	TempSD   float64 `yaml:"temp_sd"`

	Latitude float64 `yaml:"latitude"` // degrees, for extraterrestrial radiation

	Deterministic Deterministic `yaml:"deterministic"`
}

// DefaultParams returns a continental mid-latitude climate.
func DefaultParams() Params {
	p := Params{
		MonthlyRain: [12]float64{
			1.41 * inch, 1.68 * inch, 2.51 * inch, 3.63 * inch, 4.45 * inch, 4.15 * inch,
			3.95 * inch, 2.84 * inch, 4.00 * inch, 3.12 * inch, 1.58 * inch, 1.66 * inch,
		},
		TMaxMean: 18.4,
		TMaxAmp:  14.0,
		TMinMean: 6.9,
		TMinAmp:  13.3,
		PeakDay:  200,
		TempSD:   2.0,
		Latitude: 39.0,
	}
	for m := range p.PWetAfterDry {
		p.PWetAfterDry[m] = 0.2
		p.PWetAfterWet[m] = 0.45
	}
	return p
}

// Validate checks value ranges.
func (p Params) Validate() error {
	for m := 0; m < 12; m++ {
		if !isProb(p.PWetAfterDry[m]) || !isProb(p.PWetAfterWet[m]) {
			return fmt.Errorf("weather: month %d transition probabilities must be in [0, 1]", m+1)
		}
		if p.MonthlyRain[m] < 0 {
			return fmt.Errorf("weather: month %d rain must be >= 0, got %g", m+1, p.MonthlyRain[m])
		}
	}
	if p.MinRain < 0 {
		return fmt.Errorf("weather: min_rain must be >= 0, got %g", p.MinRain)
	}
	if p.TempSD < 0 {
		return fmt.Errorf("weather: temp_sd must be >= 0, got %g", p.TempSD)
	}
	if p.PeakDay < 1 || p.PeakDay > 366 {
		return fmt.Errorf("weather: peak_day must be in [1, 366], got %d", p.PeakDay)
	}
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("weather: latitude must be in [-90, 90], got %g", p.Latitude)
	}
	return nil
}

func isProb(v float64) bool { return v >= 0 && v <= 1 }

// WetFraction returns the long-run share of wet days in month m (0-11)
// implied by the transition probabilities.
func (p Params) WetFraction(m int) float64 {
	if p.Deterministic.Markov {
		return 1
	}
	p01, p11 := p.PWetAfterDry[m], p.PWetAfterWet[m]
	denom := 1 + p01 - p11
	if denom <= 0 {
		return p11
	}
	return p01 / denom
}

// Generator is a daily weather generator: a two-state Markov chain for
// wet and dry days, exponential wet-day depths scaled to the monthly mean,
// seasonal sinusoid temperatures with normal noise and Hargreaves PET.
// Not safe for concurrent use.
type Generator struct {
	params Params
	rng    *rand.Rand
	wet    bool
}

var _ Source = (*Generator)(nil)

// NewGenerator creates a Generator drawing from rng, typically the
// PartitionedRNG weather subsystem.
func NewGenerator(p Params, rng *rand.Rand) (*Generator, error) {
	if rng == nil {
		return nil, fmt.Errorf("weather: rng must not be nil")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Generator{params: p, rng: rng}, nil
}

// Params returns the generator configuration.
func (g *Generator) Params() Params { return g.params }

// Reset forgets the previous day's wet state.
func (g *Generator) Reset() { g.wet = false }

// Next implements Source.
func (g *Generator) Next(date time.Time) Sample {
	p := g.params
	m := int(date.Month()) - 1

	g.wet = g.nextWet(m)
	precip := 0.0
	if g.wet {
		precip = g.rainDepth(m, daysIn(date))
		if precip < p.MinRain {
			precip = 0
		}
	}

	tmin, tmax := g.temperatures(date.YearDay())
	s := Sample{
		Date:   date,
		Precip: precip,
		TMin:   tmin,
		TMax:   tmax,
		TAvg:   (tmin + tmax) / 2,
		PET:    Hargreaves(tmin, tmax, p.Latitude, date.YearDay()),
	}
	logrus.Debugf("weather %s: wet=%t precip=%g tmin=%.2f tmax=%.2f pet=%g",
		date.Format("2006-01-02"), g.wet, s.Precip, s.TMin, s.TMax, s.PET)
	return s
}

func (g *Generator) nextWet(m int) bool {
	if g.params.Deterministic.Markov {
		return true
	}
	prob := g.params.PWetAfterDry[m]
	if g.wet {
		prob = g.params.PWetAfterWet[m]
	}
	return distuv.Bernoulli{P: prob, Src: g.rng}.Rand() == 1
}

func (g *Generator) rainDepth(m, days int) float64 {
	frac := g.params.WetFraction(m)
	if frac <= 0 || g.params.MonthlyRain[m] <= 0 {
		return 0
	}
	mean := g.params.MonthlyRain[m] / (float64(days) * frac)
	if g.params.Deterministic.Rain {
		return mean
	}
	return distuv.Exponential{Rate: 1 / mean, Src: g.rng}.Rand()
}

func (g *Generator) temperatures(doy int) (tmin, tmax float64) {
	p := g.params
	phase := math.Cos(2 * math.Pi * float64(doy-p.PeakDay) / 365)
	tmax = p.TMaxMean + p.TMaxAmp*phase
	tmin = p.TMinMean + p.TMinAmp*phase
	if !p.Deterministic.Temperature && p.TempSD > 0 {
		noise := distuv.Normal{Mu: 0, Sigma: p.TempSD, Src: g.rng}
		tmax += noise.Rand()
		tmin += noise.Rand()
	}
	if tmin > tmax {
		tmin, tmax = tmax, tmin
	}
	return tmin, tmax
}

// Hargreaves returns reference evapotranspiration in metres per day from
// daily temperature extremes (degrees Celsius).
func Hargreaves(tmin, tmax, latitude float64, doy int) float64 {
	ra := ExtraterrestrialRadiation(latitude, doy) * 0.408 // MJ/m2/day -> mm/day
	tavg := (tmin + tmax) / 2
	mm := 0.0023 * ra * (tavg + 17.8) * math.Sqrt(math.Max(tmax-tmin, 0))
	return math.Max(mm, 0) / 1000
}

// ExtraterrestrialRadiation returns daily top-of-atmosphere radiation in
// MJ/m2/day for a latitude in degrees and a day of year.
func ExtraterrestrialRadiation(latitude float64, doy int) float64 {
	const gsc = 0.0820 // solar constant, MJ/m2/min
	j := 2 * math.Pi * float64(doy) / 365
	dr := 1 + 0.033*math.Cos(j)
	decl := 0.409 * math.Sin(j-1.39)
	phi := latitude * math.Pi / 180
	ws := math.Acos(math.Max(-1, math.Min(1, -math.Tan(phi)*math.Tan(decl))))
	return 24 * 60 / math.Pi * gsc * dr *
		(ws*math.Sin(phi)*math.Sin(decl) + math.Cos(phi)*math.Cos(decl)*math.Sin(ws))
}

func daysIn(date time.Time) int {
	return time.Date(date.Year(), date.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
