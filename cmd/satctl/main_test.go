package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"satquery/internal/modules/saturation/types"
)

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_LOG_SQL", "false")
	t.Setenv("MQTT_ENABLED", "false")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "satquery.db"))
}

func TestRun_usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != 1 {
		t.Fatalf("exit = %d; want 1", code)
	}
	if !strings.Contains(stderr.String(), "usage: satctl") {
		t.Errorf("stderr = %q; want usage", stderr.String())
	}
}

func TestRun_commands(t *testing.T) {
	setEnv(t)
	ctx := context.Background()

	var stdout, stderr bytes.Buffer
	if code := run(ctx, []string{"migrate"}, &stdout, &stderr); code != 0 {
		t.Fatalf("migrate exit = %d; stderr %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "migrations applied: 2") {
		t.Errorf("migrate output = %q", stdout.String())
	}

	stdout.Reset()
	if code := run(ctx, []string{"species"}, &stdout, &stderr); code != 0 {
		t.Fatalf("species exit = %d; stderr %s", code, stderr.String())
	}
	if lines := strings.Split(strings.TrimSpace(stdout.String()), "\n"); len(lines) != 7 {
		t.Errorf("species lines = %d; want 7", len(lines))
	}

	stdout.Reset()
	if code := run(ctx, []string{"species", "mp.H2O"}, &stdout, &stderr); code != 0 {
		t.Fatalf("species mp.H2O exit = %d; stderr %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), `"Water"`) {
		t.Errorf("species output = %q", stdout.String())
	}

	stdout.Reset()
	if code := run(ctx, []string{"sat", "-u", "C,kPa,kg,kJ,m3", "mp.H2O", "temp=100"}, &stdout, &stderr); code != 0 {
		t.Fatalf("sat exit = %d; stderr %s", code, stderr.String())
	}
	var resp types.Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal sat output: %v", err)
	}
	if len(resp.Values) != 2 || resp.Values[0].Phase != types.PhaseGas || resp.Values[0].T != 100 {
		t.Errorf("sat values = %+v", resp.Values)
	}

	stderr.Reset()
	if code := run(ctx, []string{"sat", "mp.Xe", "pressure=1"}, &stdout, &stderr); code != 1 {
		t.Fatalf("sat unknown species exit = %d; want 1", code)
	}
	if !strings.Contains(stderr.String(), "species not found") {
		t.Errorf("stderr = %q", stderr.String())
	}

	stderr.Reset()
	if code := run(ctx, []string{"bogus"}, &stdout, &stderr); code != 1 {
		t.Fatalf("bogus exit = %d; want 1", code)
	}
}

func TestParseSatArgs(t *testing.T) {
	units := types.Units{Temperature: "K", Pressure: "Pa", Matter: "kg", Energy: "kJ", Volume: "m3"}
	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		pressure string
		temp     string
	}{
		{name: "pressure", args: []string{"mp.N2", "pressure=101325"}, pressure: "101325"},
		{name: "short temp", args: []string{"mp.N2", "T=77"}, temp: "77"},
		{name: "missing value", args: []string{"mp.N2", "temp="}, wantErr: true},
		{name: "no assignment", args: []string{"mp.N2", "77"}, wantErr: true},
		{name: "unknown variable", args: []string{"mp.N2", "rho=1"}, wantErr: true},
		{name: "too few args", args: []string{"mp.N2"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseSatArgs(tt.args, units)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseSatArgs(%v) = nil error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSatArgs(%v) = %v", tt.args, err)
			}
			if tt.pressure != "" && (req.Pressure == nil || req.Pressure.String() != tt.pressure) {
				t.Errorf("pressure = %v; want %s", req.Pressure, tt.pressure)
			}
			if tt.temp != "" && (req.Temperature == nil || req.Temperature.String() != tt.temp) {
				t.Errorf("temp = %v; want %s", req.Temperature, tt.temp)
			}
		})
	}
}

func TestParseUnits(t *testing.T) {
	u, err := parseUnits("C, bar ,lb,BTU,ft3")
	if err != nil {
		t.Fatalf("parseUnits() = %v", err)
	}
	if u.Pressure != "bar" || u.Volume != "ft3" {
		t.Errorf("units = %+v", u)
	}
	if _, err := parseUnits("K,Pa"); err == nil {
		t.Error("parseUnits(K,Pa) = nil error")
	}
}
