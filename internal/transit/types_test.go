package transit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexMinutes(t *testing.T) {
	tests := []struct {
		in    string
		want  int
		valid bool
	}{
		{`5`, 5, true},
		{`"12"`, 12, true},
		{`" 3 "`, 3, true},
		{`4.7`, 4, true},
		{`-2`, 0, true},
		{`1e300`, maxMinutes, true},
		{`"99999999999999999999"`, maxMinutes, true},
		{`-1e300`, 0, true},
		{`"-9"`, 0, true},
		{`"ARR"`, 0, false},
		{`"BRD"`, 0, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`{"x":1}`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var m flexMinutes
			require.NoError(t, m.UnmarshalJSON([]byte(tt.in)))
			assert.Equal(t, tt.want, m.value)
			assert.Equal(t, tt.valid, m.valid)
		})
	}
}

func TestPredictionFallbacks(t *testing.T) {
	var resp predictionsResponse
	require.NoError(t, json.Unmarshal([]byte(`{"Predictions":[
		{"RouteID":" ","Line":"GR","DirectionText":null,"DestinationName":"Branch Ave","Minutes":"ARR","Min":"4"}
	]}`), &resp))
	require.NotNil(t, resp.Predictions)
	require.Len(t, *resp.Predictions, 1)

	got := (*resp.Predictions)[0].normalize()
	assert.Equal(t, Arrival{Route: "GR", Headsign: "Branch Ave", Minutes: 4}, got)
}

func TestPredictionsResponse_DistinguishesMissingFromEmpty(t *testing.T) {
	var missing, empty predictionsResponse
	require.NoError(t, json.Unmarshal([]byte(`{}`), &missing))
	require.NoError(t, json.Unmarshal([]byte(`{"Predictions":[]}`), &empty))
	assert.Nil(t, missing.Predictions)
	require.NotNil(t, empty.Predictions)
	assert.Empty(t, *empty.Predictions)
}

func TestSnapshot_CopiesInputAndClones(t *testing.T) {
	in := []Arrival{{Route: "70", Headsign: "North", Minutes: 3}}
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := NewSnapshot("1001195", "", asOf, in)
	in[0].Route = "mutated"
	assert.Equal(t, "70", snap.Arrivals[0].Route)

	dup := snap.Clone()
	dup.Arrivals[0].Minutes = 99
	assert.Equal(t, 3, snap.Arrivals[0].Minutes)
	assert.Equal(t, snap.ID, dup.ID)
}

func TestSnapshot_IDsAreUniqueAndOrdered(t *testing.T) {
	asOf := time.Now()
	a := NewSnapshot("s", "", asOf, nil)
	b := NewSnapshot("s", "", asOf.Add(time.Millisecond), nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Negative(t, a.ID.Compare(b.ID))
}

func TestSnapshot_ZeroAndAge(t *testing.T) {
	var zero Snapshot
	assert.True(t, zero.IsZero())
	assert.Zero(t, zero.Age(time.Now()))

	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot("s", "", asOf, nil)
	assert.False(t, snap.IsZero())
	assert.Equal(t, 90*time.Second, snap.Age(asOf.Add(90*time.Second)))
	assert.Zero(t, snap.Age(asOf.Add(-time.Second)))
}

func TestFetchError(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(&FetchError{Kind: KindTransport, Err: cause})
	assert.Equal(t, "transport: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, KindTransport))
	assert.False(t, IsKind(err, KindHTTP))
	assert.False(t, IsKind(cause, KindTransport))

	assert.Equal(t, "decode", KindDecode.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
