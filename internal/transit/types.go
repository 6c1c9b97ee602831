package transit

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Unknown is substituted for route and headsign values the API omits.
const Unknown = "N/A"

// maxMinutes caps predictions so absurd values never overflow int.
const maxMinutes = 24 * 60

// Arrival is one normalized prediction.
type Arrival struct {
	Route    string `json:"route"`
	Headsign string `json:"headsign"`
	Minutes  int    `json:"minutes"`
}

// Snapshot is the full set of arrivals produced by one successful fetch.
// Treat it as immutable: a new fetch builds a new Snapshot.
type Snapshot struct {
	ID       ulid.ULID `json:"id"`
	StopID   string    `json:"stop_id"`
	StopName string    `json:"stop_name,omitempty"`
	AsOf     time.Time `json:"as_of"`
	Arrivals []Arrival `json:"arrivals"`
}

// NewSnapshot copies arrivals into a new Snapshot stamped with asOf and a
// fresh ULID.
func NewSnapshot(stopID, stopName string, asOf time.Time, arrivals []Arrival) Snapshot {
	return Snapshot{
		ID:       ulid.MustNew(ulid.Timestamp(asOf), ulid.DefaultEntropy()),
		StopID:   stopID,
		StopName: stopName,
		AsOf:     asOf,
		Arrivals: cloneArrivals(arrivals),
	}
}

// IsZero reports whether s is the initial empty snapshot that no fetch
// produced.
func (s Snapshot) IsZero() bool {
	return s.ID == (ulid.ULID{})
}

// Len returns the number of arrivals.
func (s Snapshot) Len() int {
	return len(s.Arrivals)
}

// Age returns how long ago the snapshot was produced. The zero snapshot has
// no age.
func (s Snapshot) Age(now time.Time) time.Duration {
	if s.IsZero() || s.AsOf.IsZero() {
		return 0
	}
	if age := now.Sub(s.AsOf); age > 0 {
		return age
	}
	return 0
}

// Clone returns a copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	dup := s
	dup.Arrivals = cloneArrivals(s.Arrivals)
	return dup
}

func cloneArrivals(items []Arrival) []Arrival {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Arrival, len(items))
	copy(dup, items)
	return dup
}

// predictionsResponse mirrors the jPredictions payload. Predictions is a
// pointer so a missing key can be told apart from an empty list.
type predictionsResponse struct {
	StopName    string        `json:"StopName"`
	Predictions *[]prediction `json:"Predictions"`
}

// prediction carries the bus field names and the rail fallbacks.
type prediction struct {
	RouteID         flexString  `json:"RouteID"`
	Line            flexString  `json:"Line"`
	DirectionText   flexString  `json:"DirectionText"`
	DestinationName flexString  `json:"DestinationName"`
	Minutes         flexMinutes `json:"Minutes"`
	Min             flexMinutes `json:"Min"`
}

func (p prediction) normalize() Arrival {
	return Arrival{
		Route:    firstNonEmpty(p.RouteID, p.Line),
		Headsign: firstNonEmpty(p.DirectionText, p.DestinationName),
		Minutes:  firstMinutes(p.Minutes, p.Min),
	}
}

func firstNonEmpty(values ...flexString) string {
	for _, v := range values {
		if s := strings.TrimSpace(string(v)); s != "" {
			return s
		}
	}
	return Unknown
}

func firstMinutes(values ...flexMinutes) int {
	for _, v := range values {
		if v.valid {
			return v.value
		}
	}
	return 0
}

// flexString accepts JSON strings and numbers; null leaves it empty.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || data[0] == '{' || data[0] == '[' {
		return nil
	}
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*s = flexString(unquoted)
		return nil
	}
	*s = flexString(data)
	return nil
}

// flexMinutes accepts numbers and numeric strings. Anything else ("ARR",
// "BRD", null, objects) leaves it invalid rather than failing the decode.
type flexMinutes struct {
	value int
	valid bool
}

func (m *flexMinutes) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return nil
		}
		raw = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(max(0, min(f, maxMinutes)))
	m.value = n
	m.valid = true
	return nil
}
