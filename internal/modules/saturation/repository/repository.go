package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"satquery/internal/logging"
	"satquery/internal/thermo"
)

//go:embed sql/list-species.sql
var listSpeciesSQL string

//go:embed sql/get-species.sql
var getSpeciesSQL string

// SpeciesRepository reads the species catalog.
type SpeciesRepository interface {
	ListSpecies(ctx context.Context) ([]thermo.Constants, error)
	GetSpecies(ctx context.Context, id string) (thermo.Constants, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) SpeciesRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) ListSpecies(ctx context.Context) ([]thermo.Constants, error) {
	rows, err := r.db.QueryContext(ctx, listSpeciesSQL)
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.FromContext(ctx).Error("close species rows", "error", err)
		}
	}()

	var out []thermo.Constants
	for rows.Next() {
		c, err := scanConstants(rows)
		if err != nil {
			return nil, fmt.Errorf("list species: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetSpecies(ctx context.Context, id string) (thermo.Constants, error) {
	c, err := scanConstants(r.db.QueryRowContext(ctx, getSpeciesSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return thermo.Constants{}, fmt.Errorf("%w: %q", thermo.ErrSpeciesNotFound, id)
	}
	if err != nil {
		return thermo.Constants{}, fmt.Errorf("get species %q: %w", id, err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConstants(s scanner) (thermo.Constants, error) {
	var c thermo.Constants
	err := s.Scan(
		&c.ID, &c.Name, &c.Model, &c.MolarMass,
		&c.TripleT, &c.CriticalT, &c.CriticalP, &c.Acentric,
		&c.Cp[0], &c.Cp[1], &c.Cp[2], &c.Cp[3], &c.Cp[4],
	)
	return c, err
}
