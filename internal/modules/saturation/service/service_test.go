package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satquery/internal/metrics"
	"satquery/internal/modules/saturation/types"
	"satquery/internal/thermo"
	"satquery/internal/thermo/unit"
)

var testCatalog = []thermo.Constants{
	{ID: "mp.H2O", Name: "Water", Model: thermo.ModelIAPWS, MolarMass: 18.015268, TripleT: 273.16, CriticalT: 647.096, CriticalP: 22064000, Acentric: 0.3443},
	{ID: "mp.N2", Name: "Nitrogen", Model: thermo.ModelPengRobinson, MolarMass: 28.014, TripleT: 63.15, CriticalT: 126.2, CriticalP: 3398000, Acentric: 0.037,
		Cp: [5]float64{3.539, -0.261e-3, 0.007e-5, 0.157e-8, -0.099e-11}},
}

var celsius = types.Units{Temperature: "C", Pressure: "kPa", Matter: "kg", Energy: "kJ", Volume: "m3"}

func newTestService(t *testing.T) (*saturationServiceImpl, *metrics.Metrics) {
	t.Helper()
	reg, err := thermo.RegistryFromConstants(testCatalog)
	require.NoError(t, err)
	m := metrics.New()
	svc, err := NewSaturationService(reg, testCatalog, m)
	require.NoError(t, err)
	return svc.(*saturationServiceImpl), m
}

func waterRequest() types.Request {
	return types.Request{Units: celsius, Species: "mp.H2O"}
}

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"empty body", "", ErrMalformedRequest},
		{"whitespace", "  \n", ErrMalformedRequest},
		{"not json", "{units:", ErrMalformedRequest},
		{"array", "[]", ErrMalformedRequest},
		{"missing units", `{"species":"mp.H2O","pressure":1}`, ErrMalformedRequest},
		{"missing unit field", `{"units":{"uT":"K","up":"Pa","uM":"kg","uE":"kJ"},"species":"mp.H2O","pressure":1}`, ErrMalformedRequest},
		{"missing species", `{"units":{"uT":"K","up":"Pa","uM":"kg","uE":"kJ","uV":"m3"},"pressure":1}`, ErrMalformedRequest},
		{"neither variable", `{"units":{"uT":"K","up":"Pa","uM":"kg","uE":"kJ","uV":"m3"},"species":"mp.H2O"}`, ErrMalformedRequest},
		{"bool pressure", `{"units":{"uT":"K","up":"Pa","uM":"kg","uE":"kJ","uV":"m3"},"species":"mp.H2O","pressure":true}`, ErrMalformedRequest},
		{"numeric pressure", `{"units":{"uT":"K","up":"Pa","uM":"kg","uE":"kJ","uV":"m3"},"species":"mp.H2O","pressure":101325}`, nil},
		{"string temp", `{"units":{"uT":"K","up":"Pa","uM":"kg","uE":"kJ","uV":"m3"},"species":"mp.H2O","temp":"373.15"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "mp.H2O", req.Species)
			assert.Equal(t, "K", req.Units.Temperature)
		})
	}
}

func TestInterpret(t *testing.T) {
	t.Run("pressure wins over temperature", func(t *testing.T) {
		req := waterRequest()
		req.Pressure = types.NumericOf(101.325)
		req.Temperature = types.NumericOf(50)
		q, err := Interpret(req)
		require.NoError(t, err)
		assert.Equal(t, ModePressure, q.Mode)
		assert.Equal(t, 101.325, q.Value)
		assert.Equal(t, "C", q.Units.Code(unit.Temperature))
	})

	t.Run("temperature only", func(t *testing.T) {
		req := waterRequest()
		req.Temperature = types.NumericOf(100)
		q, err := Interpret(req)
		require.NoError(t, err)
		assert.Equal(t, ModeTemperature, q.Mode)
		assert.Equal(t, 100.0, q.Value)
	})

	tests := []struct {
		name    string
		mutate  func(*types.Request)
		wantErr error
	}{
		{"neither variable", func(r *types.Request) {}, ErrMalformedRequest},
		{"blank species", func(r *types.Request) { r.Species = " "; r.Pressure = types.NumericOf(1) }, ErrMalformedRequest},
		{"unknown unit", func(r *types.Request) { r.Units.Pressure = "furlong"; r.Pressure = types.NumericOf(1) }, unit.ErrUnknownUnit},
		{"non numeric pressure", func(r *types.Request) {
			require.NoError(t, json.Unmarshal([]byte(`"abc"`), &r.Pressure))
		}, ErrInvalidNumber},
		{"non finite temp", func(r *types.Request) {
			require.NoError(t, json.Unmarshal([]byte(`"NaN"`), &r.Temperature))
		}, ErrInvalidNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := waterRequest()
			tt.mutate(&req)
			_, err := Interpret(req)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrMalformedRequest, http.StatusBadRequest},
		{ErrInvalidNumber, http.StatusBadRequest},
		{unit.ErrUnknownUnit, http.StatusBadRequest},
		{thermo.ErrSpeciesNotFound, http.StatusNotFound},
		{thermo.ErrOutOfRange, http.StatusUnprocessableEntity},
		{thermo.ErrNoConvergence, http.StatusInternalServerError},
		{thermo.ErrZeroDensity, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "StatusFor(%v)", tt.err)
	}
}

func TestQuery_Pressure(t *testing.T) {
	svc, _ := newTestService(t)
	req := waterRequest()
	req.Pressure = types.NumericOf(101.325)

	resp, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Values, 2)

	gas, fluid := resp.Values[0], resp.Values[1]
	assert.Equal(t, types.PhaseGas, gas.Phase)
	assert.Equal(t, types.PhaseFluid, fluid.Phase)
	assert.Equal(t, 101.325, gas.P)
	assert.Equal(t, 101.325, fluid.P)
	assert.Equal(t, gas.T, fluid.T)
	assert.InDelta(t, 99.97, gas.T, 0.05)

	assert.InEpsilon(t, 2675.6, gas.H, 0.01)
	assert.InEpsilon(t, 419.1, fluid.H, 0.01)
	assert.Greater(t, gas.S, fluid.S)
	assert.Greater(t, gas.V, fluid.V)
	assert.InEpsilon(t, 1.0/0.5982, gas.V, 0.01)
	assert.InEpsilon(t, 1.0/958.35, fluid.V, 0.01)

	assert.Len(t, resp.ChartData.TempValues, ChartPoints)
}

func TestQuery_Temperature(t *testing.T) {
	svc, _ := newTestService(t)
	req := waterRequest()
	req.Temperature = types.NumericOf(100)

	resp, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Values, 2)
	for _, r := range resp.Values {
		assert.Equal(t, 100.0, r.T)
	}
	assert.Equal(t, resp.Values[0].P, resp.Values[1].P)
	assert.InEpsilon(t, 101.418, resp.Values[0].P, 0.002)
}

func TestQuery_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	for _, tc := range []float64{1, 25, 100, 250, 370} {
		req := waterRequest()
		req.Temperature = types.NumericOf(tc)
		byT, err := svc.Query(context.Background(), req)
		require.NoError(t, err)

		req = waterRequest()
		req.Pressure = types.NumericOf(byT.Values[0].P)
		byP, err := svc.Query(context.Background(), req)
		require.NoError(t, err)
		assert.InDelta(t, tc, byP.Values[0].T, 1e-6*math.Max(1, tc))
	}
}

func TestQuery_Errors(t *testing.T) {
	svc, m := newTestService(t)

	tests := []struct {
		name    string
		mutate  func(*types.Request)
		wantErr error
	}{
		{"unknown species", func(r *types.Request) { r.Species = "mp.Xe"; r.Pressure = types.NumericOf(100) }, thermo.ErrSpeciesNotFound},
		{"above critical", func(r *types.Request) { r.Temperature = types.NumericOf(500) }, thermo.ErrOutOfRange},
		{"below triple", func(r *types.Request) { r.Pressure = types.NumericOf(0.1) }, thermo.ErrOutOfRange},
		{"negative pressure", func(r *types.Request) { r.Pressure = types.NumericOf(-1) }, thermo.ErrOutOfRange},
		{"missing variable", func(r *types.Request) {}, ErrMalformedRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := waterRequest()
			tt.mutate(&req)
			resp, err := svc.Query(context.Background(), req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, resp.Values)
		})
	}

	n, err := testutil.GatherAndCount(m.Registry(), "satquery_saturation_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "expected one series per distinct species/mode/outcome")
}

func TestQuery_CanceledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := waterRequest()
	req.Temperature = types.NumericOf(100)
	_, err := svc.Query(ctx, req)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildChartData(t *testing.T) {
	reg, err := thermo.RegistryFromConstants(testCatalog)
	require.NoError(t, err)

	for _, id := range reg.IDs() {
		t.Run(id, func(t *testing.T) {
			src, err := reg.Get(id)
			require.NoError(t, err)
			u := unit.MustNew("C", "kPa", "kg", "kJ", "m3")
			tt, _, err := src.Triple(u)
			require.NoError(t, err)
			tc, _, err := src.Critical(u)
			require.NoError(t, err)

			chart, err := BuildChartData(src, u)
			require.NoError(t, err)
			require.Len(t, chart.TempValues, ChartPoints)
			require.Len(t, chart.SatLiquid, ChartPoints)
			require.Len(t, chart.SatVapor, ChartPoints)

			assert.Greater(t, chart.TempValues[0], tt)
			assert.Less(t, chart.TempValues[ChartPoints-1], tc)
			for i := 1; i < ChartPoints; i++ {
				assert.Greater(t, chart.TempValues[i], chart.TempValues[i-1])
			}
			for i := range chart.TempValues {
				assert.GreaterOrEqual(t, chart.SatVapor[i], chart.SatLiquid[i])
			}
		})
	}
}

func TestChart(t *testing.T) {
	svc, _ := newTestService(t)

	chart, err := svc.Chart(context.Background(), "mp.N2", types.Units{Temperature: "K", Pressure: "Pa", Matter: "kg", Energy: "J", Volume: "m3"})
	require.NoError(t, err)
	assert.Len(t, chart.TempValues, ChartPoints)

	_, err = svc.Chart(context.Background(), "mp.Xe", celsius)
	require.ErrorIs(t, err, thermo.ErrSpeciesNotFound)

	_, err = svc.Chart(context.Background(), "mp.N2", types.Units{Temperature: "X"})
	require.ErrorIs(t, err, unit.ErrUnknownUnit)
}

func TestSpeciesAndUnits(t *testing.T) {
	svc, _ := newTestService(t)

	species := svc.Species()
	require.Len(t, species, 2)
	assert.Equal(t, "mp.H2O", species[0].ID)
	assert.Equal(t, thermo.ModelIAPWS, species[0].Model)
	assert.InDelta(t, 611.657, species[0].TripleP, 0.01)
	assert.Equal(t, 647.096, species[0].CriticalT)
	assert.Equal(t, "mp.N2", species[1].ID)
	assert.Equal(t, thermo.ModelPengRobinson, species[1].Model)

	species[0].ID = "changed"
	assert.Equal(t, "mp.H2O", svc.Species()[0].ID)

	units := svc.Units()
	assert.Contains(t, units["temperature"], "K")
	assert.Contains(t, units["pressure"], "kPa")
	assert.Len(t, units, len(unit.Dimensions))
}

// zeroDensity wraps a real source and reports a zero vapor density.
type zeroDensity struct {
	thermo.SaturationPropertySource
}

func (z zeroDensity) Ds(at thermo.Point, u unit.System) (thermo.Pair, error) {
	d, err := z.SaturationPropertySource.Ds(at, u)
	d.Vapor = 0
	return d, err
}

func TestBuildFromPressure_ZeroDensity(t *testing.T) {
	reg, err := thermo.RegistryFromConstants(testCatalog)
	require.NoError(t, err)
	src, err := reg.Get("mp.H2O")
	require.NoError(t, err)

	_, err = BuildFromPressure(zeroDensity{src}, 101325, unit.SI())
	require.ErrorIs(t, err, thermo.ErrZeroDensity)
}

func TestHandleMessage(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name       string
		payload    string
		wantStatus int
		wantCorrID string
	}{
		{"ok", `{"correlation_id":"c1","units":{"uT":"C","up":"kPa","uM":"kg","uE":"kJ","uV":"m3"},"species":"mp.H2O","temp":100}`, http.StatusOK, "c1"},
		{"schema violation keeps correlation id", `{"correlation_id":"c2","species":"mp.H2O","temp":100}`, http.StatusBadRequest, "c2"},
		{"garbage", `not json`, http.StatusBadRequest, ""},
		{"unknown species", `{"correlation_id":"c3","units":{"uT":"C","up":"kPa","uM":"kg","uE":"kJ","uV":"m3"},"species":"mp.Xe","temp":100}`, http.StatusNotFound, "c3"},
		{"out of range", `{"correlation_id":"c4","units":{"uT":"C","up":"kPa","uM":"kg","uE":"kJ","uV":"m3"},"species":"mp.H2O","temp":1000}`, http.StatusUnprocessableEntity, "c4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := svc.HandleMessage(context.Background(), []byte(tt.payload))
			var reply types.Reply
			require.NoError(t, json.Unmarshal(out, &reply))
			assert.Equal(t, tt.wantStatus, reply.Status)
			assert.Equal(t, tt.wantCorrID, reply.CorrelationID)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, reply.Result)
				assert.Len(t, reply.Result.Values, 2)
				assert.Empty(t, reply.Error)
			} else {
				assert.Nil(t, reply.Result)
				assert.Equal(t, http.StatusText(tt.wantStatus), reply.Error)
				assert.NotEmpty(t, reply.Message)
			}
		})
	}
}

func TestNewSaturationService_NilRegistry(t *testing.T) {
	_, err := NewSaturationService(nil, nil, nil)
	require.Error(t, err)
}

func TestQuery_WaterBoilsNearOneAtmosphere(t *testing.T) {
	svc, _ := newTestService(t)
	req, err := DecodeRequest([]byte(`{"units":{"uT":"K","up":"Pa","uM":"kg","uE":"kJ","uV":"m3"},"species":"mp.H2O","temp":373.15}`))
	require.NoError(t, err)

	resp, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Values, 2)
	assert.Equal(t, types.PhaseGas, resp.Values[0].Phase)
	assert.Equal(t, types.PhaseFluid, resp.Values[1].Phase)
	for _, r := range resp.Values {
		assert.Equal(t, 373.15, r.T)
		assert.InEpsilon(t, 101325, r.P, 0.002)
	}
}

func TestBuildRecords_VolumeIsInverseDensity(t *testing.T) {
	reg, err := thermo.RegistryFromConstants(testCatalog)
	require.NoError(t, err)
	u := unit.MustNew("F", "psi", "lbmol", "BTU", "ft3")

	points := map[string]struct{ p, t float64 }{
		"mp.H2O": {p: 14.696, t: 212},
		"mp.N2":  {p: 14.696, t: -320},
	}
	for id, pt := range points {
		src, err := reg.Get(id)
		require.NoError(t, err)

		t.Run(id+" from pressure", func(t *testing.T) {
			records, err := BuildFromPressure(src, pt.p, u)
			require.NoError(t, err)
			d, err := src.Ds(thermo.AtPressure(pt.p), u)
			require.NoError(t, err)
			assert.Equal(t, 1/d.Vapor, records[0].V)
			assert.Equal(t, 1/d.Liquid, records[1].V)
		})

		t.Run(id+" from temperature", func(t *testing.T) {
			records, err := BuildFromTemperature(src, pt.t, u)
			require.NoError(t, err)
			d, err := src.Ds(thermo.AtTemperature(pt.t), u)
			require.NoError(t, err)
			assert.Equal(t, 1/d.Vapor, records[0].V)
			assert.Equal(t, 1/d.Liquid, records[1].V)
		})
	}
}
