package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMillisAcceptsAlternateEncodings(t *testing.T) {
	want := int64(1700000000000)
	cases := []struct {
		name string
		in   string
	}{
		{"epoch millis", `1700000000000`},
		{"epoch seconds", `1700000000`},
		{"rfc3339", `"2023-11-14T22:13:20Z"`},
		{"numeric string", `"1700000000000"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m Millis
			if err := json.Unmarshal([]byte(tc.in), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if m.UnixMilli() != want {
				t.Errorf("got %d, want %d", m.UnixMilli(), want)
			}
		})
	}
}

func TestMillisUnparseableFallsBack(t *testing.T) {
	for _, in := range []string{`"last tuesday"`, `null`, `""`, `{}`, `[1,2]`} {
		var m Millis
		if err := json.Unmarshal([]byte(in), &m); err != nil {
			t.Fatalf("%s: unmarshal must not fail: %v", in, err)
		}
		if !m.Time().Equal(EpochFallback) {
			t.Errorf("%s: got %v, want epoch fallback", in, m.Time())
		}
	}
}

func TestMillisRoundTrip(t *testing.T) {
	m := Millis(time.UnixMilli(1700000000123).UTC())
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "1700000000123" {
		t.Errorf("marshalled = %s", data)
	}
	var back Millis
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(m) {
		t.Errorf("round trip changed value: %v != %v", back.Time(), m.Time())
	}
}

func TestCloneIsDeep(t *testing.T) {
	route := Route{
		ID:        "route-1",
		Waypoints: []Waypoint{{Lat: 1, Lng: 2}},
		Path:      [][2]float64{{1, 2}},
		RefinementHistory: []Refinement{
			{ID: "ref-1", Score: 1, Votes: 1},
		},
	}
	clone := route.Clone()
	clone.Waypoints[0].Lat = 99
	clone.Path[0][0] = 99
	clone.RefinementHistory[0].Score = 99

	if route.Waypoints[0].Lat == 99 || route.Path[0][0] == 99 || route.RefinementHistory[0].Score == 99 {
		t.Error("clone shares backing arrays with original")
	}
}
