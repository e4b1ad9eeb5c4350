// Package publish forwards CTD readings and configuration reports to
// downstream consumers.
package publish

import (
	"context"
	"time"

	"i4.energy/across/ctdlink/ctd"
)

// Record kinds.
const (
	KindSample       = "sample"
	KindStatus       = "status"
	KindOxygenStatus = "oxygen_status"
	KindConfigure    = "configure"
)

// Record is one driver outcome as seen by consumers.
type Record struct {
	Instrument int       `json:"instrument"`
	Kind       string    `json:"kind"`
	Op         string    `json:"op"`
	Time       time.Time `json:"time"`
	Result     string    `json:"result"`
	Code       int       `json:"code"`
	Data       any       `json:"data,omitempty"`
}

func NewRecord(instrument int, kind, op string, result ctd.Result, data any) Record {
	return Record{
		Instrument: instrument,
		Kind:       kind,
		Op:         op,
		Time:       time.Now().UTC(),
		Result:     result.String(),
		Code:       int(result),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, rec Record) error
	Close() error
}

// Discard drops every record.
type Discard struct{}

func (Discard) Publish(context.Context, Record) error { return nil }
func (Discard) Close() error                          { return nil }
