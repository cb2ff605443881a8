package service

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"satquery/internal/modules/saturation/types"
	"satquery/internal/thermo"
	"satquery/internal/thermo/unit"
)

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrInvalidNumber    = errors.New("invalid number")
)

//go:embed request.schema.json
var requestSchemaJSON []byte

var requestSchema = mustLoadSchema(requestSchemaJSON)

func mustLoadSchema(b []byte) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		panic(fmt.Sprintf("request schema: %v", err))
	}
	return s
}

// Mode names the independent variable of a query.
type Mode string

const (
	ModePressure    Mode = "pressure"
	ModeTemperature Mode = "temperature"
)

// Query is an interpreted request: the species, the unit system and one
// independent variable expressed in that system.
type Query struct {
	Species string
	Units   unit.System
	Mode    Mode
	Value   float64
}

// DecodeRequest validates body against the request schema and decodes it.
func DecodeRequest(body []byte) (types.Request, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return types.Request{}, fmt.Errorf("%w: empty body", ErrMalformedRequest)
	}

	result, err := requestSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return types.Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.Field()+": "+e.Description())
		}
		return types.Request{}, fmt.Errorf("%w: %s", ErrMalformedRequest, strings.Join(msgs, "; "))
	}

	var req types.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return types.Request{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return req, nil
}

// Interpret builds the unit system and picks the independent variable.
// Pressure wins when both are present.
func Interpret(req types.Request) (Query, error) {
	if strings.TrimSpace(req.Species) == "" {
		return Query{}, fmt.Errorf("%w: species is required", ErrMalformedRequest)
	}
	u := req.Units
	system, err := unit.New(u.Temperature, u.Pressure, u.Matter, u.Energy, u.Volume)
	if err != nil {
		return Query{}, err
	}

	q := Query{Species: req.Species, Units: system}
	switch {
	case req.Pressure != nil:
		q.Mode = ModePressure
		q.Value, err = req.Pressure.Float()
		if err != nil {
			return Query{}, fmt.Errorf("%w: pressure %q", ErrInvalidNumber, req.Pressure.String())
		}
	case req.Temperature != nil:
		q.Mode = ModeTemperature
		q.Value, err = req.Temperature.Float()
		if err != nil {
			return Query{}, fmt.Errorf("%w: temp %q", ErrInvalidNumber, req.Temperature.String())
		}
	default:
		return Query{}, fmt.Errorf("%w: either pressure or temp is required", ErrMalformedRequest)
	}
	return q, nil
}

// StatusFor maps a query error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedRequest),
		errors.Is(err, ErrInvalidNumber),
		errors.Is(err, unit.ErrUnknownUnit):
		return http.StatusBadRequest
	case errors.Is(err, thermo.ErrSpeciesNotFound):
		return http.StatusNotFound
	case errors.Is(err, thermo.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// outcome is the metrics label for err.
func outcome(err error) string {
	switch StatusFor(err) {
	case http.StatusOK:
		return "ok"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "out_of_range"
	default:
		return "error"
	}
}
