package effects

import (
	"math"
	"sync/atomic"
)

// BusEQBands is the number of bands in a BusEQ.
const BusEQBands = 5

// MaxBusEQGainDB bounds each band's boost or cut.
const MaxBusEQGainDB = 12

// BusEQ splits the drum bus at 90Hz, 300Hz, 2kHz and 7kHz, which roughly
// isolates kick, toms, snare body, snare crack and cymbals. Band gains are
// in dB and stored as float32 bits so the audio thread reads them lock-free.
type BusEQ struct {
	gains  [BusEQBands]atomic.Uint32 // linear gain bits
	alphas [BusEQBands - 1]float32
	lpL    [BusEQBands - 1]float32
	lpR    [BusEQBands - 1]float32
}

var busCrossovers = [BusEQBands - 1]float64{90, 300, 2000, 7000}

func NewBusEQ(sampleRate int) *BusEQ {
	eq := &BusEQ{}
	dt := 1.0 / float64(sampleRate)
	for i, freq := range busCrossovers {
		rc := 1.0 / (2.0 * math.Pi * freq)
		eq.alphas[i] = float32(dt / (rc + dt))
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float32bits(1))
	}
	return eq
}

// SetGainDB sets a band's gain in dB, clamped to ±MaxBusEQGainDB.
func (eq *BusEQ) SetGainDB(band int, db float64) {
	if band < 0 || band >= BusEQBands || math.IsNaN(db) {
		return
	}
	db = math.Max(-MaxBusEQGainDB, math.Min(MaxBusEQGainDB, db))
	eq.gains[band].Store(math.Float32bits(float32(math.Pow(10, db/20))))
}

// GainDB returns a band's gain in dB. Unknown bands report 0.
func (eq *BusEQ) GainDB(band int) float64 {
	if band < 0 || band >= BusEQBands {
		return 0
	}
	g := float64(math.Float32frombits(eq.gains[band].Load()))
	return math.Round(20*math.Log10(g)*100) / 100
}

func (eq *BusEQ) Process(l, r float32) (float32, float32) {
	var outL, outR float32
	remL, remR := l, r
	for i := range eq.alphas {
		eq.lpL[i] += eq.alphas[i] * (remL - eq.lpL[i])
		eq.lpR[i] += eq.alphas[i] * (remR - eq.lpR[i])
		g := math.Float32frombits(eq.gains[i].Load())
		outL += eq.lpL[i] * g
		outR += eq.lpR[i] * g
		remL -= eq.lpL[i]
		remR -= eq.lpR[i]
	}
	g := math.Float32frombits(eq.gains[BusEQBands-1].Load())
	return outL + remL*g, outR + remR*g
}

func (eq *BusEQ) Reset() {
	for i := range eq.lpL {
		eq.lpL[i] = 0
		eq.lpR[i] = 0
	}
}
