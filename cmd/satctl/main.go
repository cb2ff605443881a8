package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"satquery/internal/config"
	"satquery/internal/db"
	"satquery/internal/logging"
	"satquery/internal/migrate"
	"satquery/internal/modules/saturation"
	"satquery/internal/modules/saturation/repository"
	"satquery/internal/modules/saturation/service"
	"satquery/internal/modules/saturation/types"
)

const usage = `usage: satctl <command>
  migrate                                   apply pending schema/seed migrations
  species [id]                              list species, or show one
  sat [-u K,Pa,kg,kJ,m3] <species> pressure=<v>|temp=<v>
                                            evaluate a saturation query
`

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 1
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	logger := logging.New(stderr, cfg, "dev")

	conn, err := db.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "db open: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	switch args[0] {
	case "migrate":
		n, err := migrate.Run(ctx, conn, logger)
		if err != nil {
			fmt.Fprintf(stderr, "migrate: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "migrations applied: %d\n", n)
	case "species":
		if err := runSpecies(ctx, conn, args[1:], stdout); err != nil {
			fmt.Fprintf(stderr, "species: %v\n", err)
			return 1
		}
	case "sat":
		if err := runSat(ctx, conn, args[1:], stdout); err != nil {
			fmt.Fprintf(stderr, "sat: %v\n", err)
			return 1
		}
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n%s", args[0], usage)
		return 1
	}
	return 0
}

func runSpecies(ctx context.Context, conn *sql.DB, args []string, stdout io.Writer) error {
	repo := repository.NewRepository(conn)
	if len(args) > 0 {
		c, err := repo.GetSpecies(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(stdout, c)
	}

	all, err := repo.ListSpecies(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		fmt.Fprintf(stdout, "%-8s %-16s %-14s Tt=%g K Tc=%g K pc=%g Pa\n", c.ID, c.Name, c.Model, c.TripleT, c.CriticalT, c.CriticalP)
	}
	return nil
}

func runSat(ctx context.Context, conn *sql.DB, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	unitsFlag := fs.String("u", "K,Pa,kg,kJ,m3", "units uT,up,uM,uE,uV")
	if err := fs.Parse(args); err != nil {
		return err
	}

	units, err := parseUnits(*unitsFlag)
	if err != nil {
		return err
	}
	req, err := parseSatArgs(fs.Args(), units)
	if err != nil {
		return err
	}

	catalog, err := saturation.LoadCatalog(ctx, conn)
	if err != nil {
		return err
	}
	svc, err := service.NewSaturationService(catalog.Registry, catalog.Constants, nil)
	if err != nil {
		return err
	}
	resp, err := svc.Query(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(stdout, resp)
}

func parseUnits(s string) (types.Units, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 5 {
		return types.Units{}, fmt.Errorf("-u wants 5 comma separated codes uT,up,uM,uE,uV, got %q", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return types.Units{
		Temperature: parts[0],
		Pressure:    parts[1],
		Matter:      parts[2],
		Energy:      parts[3],
		Volume:      parts[4],
	}, nil
}

// parseSatArgs reads "<species> pressure=<v>" or "<species> temp=<v>"; p= and
// T= are accepted as short forms.
func parseSatArgs(args []string, units types.Units) (types.Request, error) {
	if len(args) != 2 {
		return types.Request{}, errors.New("want <species> pressure=<v>|temp=<v>")
	}
	key, value, ok := strings.Cut(args[1], "=")
	if !ok || value == "" {
		return types.Request{}, fmt.Errorf("bad assignment %q", args[1])
	}

	req := types.Request{Units: units, Species: args[0]}
	raw, _ := json.Marshal(value)
	var n types.Numeric
	if err := json.Unmarshal(raw, &n); err != nil {
		return types.Request{}, err
	}
	switch strings.ToLower(key) {
	case "pressure", "p":
		req.Pressure = &n
	case "temp", "t":
		req.Temperature = &n
	default:
		return types.Request{}, fmt.Errorf("unknown variable %q (want pressure or temp)", key)
	}
	return req, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
