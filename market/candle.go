package market

import (
	"fmt"
	"math"
	"time"
)

// Candle is one closed OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate reports bars that cannot be used for indicator math.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("candle %s: prices must be positive and finite", c.Time.Format(time.RFC3339))
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("candle %s: high %.8f below low %.8f", c.Time.Format(time.RFC3339), c.High, c.Low)
	}
	if c.Volume < 0 || math.IsNaN(c.Volume) {
		return fmt.Errorf("candle %s: volume must be >= 0", c.Time.Format(time.RFC3339))
	}
	return nil
}
