package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Units names one unit code per dimension, using the wire field names.
type Units struct {
	Temperature string `json:"uT"`
	Pressure    string `json:"up"`
	Matter      string `json:"uM"`
	Energy      string `json:"uE"`
	Volume      string `json:"uV"`
}

// Numeric is a JSON number or a string holding one. Parsing is deferred so a
// bad value can be reported separately from malformed JSON.
type Numeric struct {
	text string
}

func NumericOf(v float64) *Numeric {
	return &Numeric{text: strconv.FormatFloat(v, 'g', -1, 64)}
}

func (n *Numeric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n.text = strings.TrimSpace(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("numeric: %w", err)
	}
	n.text = num.String()
	return nil
}

func (n Numeric) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(n.text, 64); err == nil {
		return []byte(n.text), nil
	}
	return json.Marshal(n.text)
}

// Float parses the value. Non-finite results are rejected.
func (n Numeric) Float() (float64, error) {
	v, err := strconv.ParseFloat(n.text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", n.text)
	}
	return v, nil
}

func (n Numeric) String() string { return n.text }

// Request is the body of POST /sat and of an MQTT query.
type Request struct {
	Units       Units    `json:"units"`
	Species     string   `json:"species"`
	Pressure    *Numeric `json:"pressure,omitempty"`
	Temperature *Numeric `json:"temp,omitempty"`

	// CorrelationID is echoed in MQTT replies; HTTP ignores it.
	CorrelationID string `json:"correlation_id,omitempty"`
}

const (
	PhaseGas   = "gas"
	PhaseFluid = "fluid"
)

// PhaseRecord holds the saturation properties of one phase: specific
// internal energy, enthalpy, entropy and volume at temperature t and
// pressure p.
type PhaseRecord struct {
	Phase string  `json:"phase"`
	E     float64 `json:"e"`
	H     float64 `json:"h"`
	S     float64 `json:"s"`
	V     float64 `json:"v"`
	T     float64 `json:"t"`
	P     float64 `json:"p"`
}

// ChartData is the saturation dome on the T-s plane; the three slices are
// index aligned.
type ChartData struct {
	TempValues []float64 `json:"temp_values"`
	SatLiquid  []float64 `json:"sat_liquid"`
	SatVapor   []float64 `json:"sat_vapor"`
}

type Response struct {
	Values    []PhaseRecord `json:"values"`
	ChartData ChartData     `json:"chart_data"`
}

// SpeciesInfo describes a catalog entry with its triple and critical points
// in K and Pa.
type SpeciesInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Model     string  `json:"model"`
	MolarMass float64 `json:"molar_mass"`
	TripleT   float64 `json:"triple_t"`
	TripleP   float64 `json:"triple_p"`
	CriticalT float64 `json:"critical_t"`
	CriticalP float64 `json:"critical_p"`
}

// Reply is published on the MQTT response topic for every request.
type Reply struct {
	CorrelationID string    `json:"correlation_id,omitempty"`
	Status        int       `json:"status"`
	Result        *Response `json:"result,omitempty"`
	Error         string    `json:"error,omitempty"`
	Message       string    `json:"message,omitempty"`
}
