package main

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"fixelcfestats/internal/models"
	"fixelcfestats/pkg/fixelio"
	"fixelcfestats/pkg/glm"
	"fixelcfestats/pkg/output"
	"fixelcfestats/pkg/permute"
)

// writeAuxiliaryMaps computes and writes the population maps component E
// produces unconditionally, before any permutation testing runs (spec
// §4.5's auxiliary outputs and §6's _beta{i}/_abs_effect/_std_effect/_std_dev
// files). contrastRow is the design-width, zero-padded contrast (for
// AbsEffectSize/TStatistic); numBetaColumns is the contrast's own,
// unpadded column count q, which bounds how many _beta{i}.msf files are
// written (spec §6: "per contrast column", matching
// original_source/cmd/fixelcfestats.cpp's write loop over contrast.columns()).
func writeAuxiliaryMaps(mask *models.SparseVolume, table *models.FixelTable, data *mat.Dense, fit *glm.Fit, contrastRow []float64, numBetaColumns int, prefix string, prov *fixelio.Provenance) error {
	numFixels := table.NumFixels()

	betas := make([][]float64, numBetaColumns)
	for p := range betas {
		betas[p] = make([]float64, numFixels)
	}
	absEffect := make([]float64, numFixels)
	stdEffect := make([]float64, numFixels)
	stdev := make([]float64, numFixels)

	for i := 0; i < numFixels; i++ {
		y := data.RawRowView(i)
		beta, sigma2 := fit.Solve(y)
		for p := 0; p < numBetaColumns; p++ {
			betas[p][i] = beta[p]
		}
		absEffect[i] = glm.AbsEffectSize(contrastRow, beta)
		stdev[i] = glm.Stdev(sigma2)
		stdEffect[i] = glm.StdEffectSize(absEffect[i], stdev[i])
	}

	for p, column := range betas {
		if err := output.WriteScalarMap(fmt.Sprintf("%s_beta%d.msf", prefix, p), mask, column, prov); err != nil {
			return err
		}
	}
	if err := output.WriteScalarMap(prefix+"_abs_effect.msf", mask, absEffect, prov); err != nil {
		return err
	}
	if err := output.WriteScalarMap(prefix+"_std_effect.msf", mask, stdEffect, prov); err != nil {
		return err
	}
	if err := output.WriteScalarMap(prefix+"_std_dev.msf", mask, stdev, prov); err != nil {
		return err
	}
	return nil
}

// writeTestMaps writes the permutation-dependent outputs (spec §6, skipped
// entirely under notest).
func writeTestMaps(mask *models.SparseVolume, table *models.FixelTable, res *permute.Result, prefix string, prov *fixelio.Provenance) error {
	writes := []struct {
		path   string
		values []float64
	}{
		{prefix + "_cfe_pos.msf", res.EPos},
		{prefix + "_cfe_neg.msf", res.ENeg},
		{prefix + "_tvalue.msf", res.TObs},
		{prefix + "_pvalue_pos.msf", res.PPos},
		{prefix + "_pvalue_neg.msf", res.PNeg},
	}
	for _, w := range writes {
		if err := output.WriteScalarMap(w.path, mask, w.values, prov); err != nil {
			return err
		}
	}

	if err := output.WriteNullDistribution(prefix+"_perm_dist_pos.txt", res.NullPos); err != nil {
		return err
	}
	if err := output.WriteNullDistribution(prefix+"_perm_dist_neg.txt", res.NullNeg); err != nil {
		return err
	}

	if res.Empirical != nil {
		if err := output.WriteScalarMap(prefix+"_cfe_empirical.msf", mask, res.Empirical, prov); err != nil {
			return err
		}
	}
	return nil
}
