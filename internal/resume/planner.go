// Package resume computes what a continuation run still has to do: which
// input documents a prior dataset already covers, which encoding the run
// must keep, and how to seed the new output file.
package resume

import (
	"log/slog"

	"github.com/nbirkbak/journalist/internal/dataset"
	"github.com/nbirkbak/journalist/internal/pathid"
)

// Plan is the outcome of consulting a prior dataset against the current
// input set.
type Plan struct {
	// Pruned holds the input refs whose identity is not yet covered.
	Pruned []string
	// Format is the encoding of the existing dataset. A continuation run
	// never changes encoding mid-dataset, so this overrides configuration.
	Format dataset.Format
	// SeededRows is the row count of the existing dataset.
	SeededRows int
	// PriorIdentities is the normalized identity set of the existing
	// dataset's file_name values.
	PriorIdentities map[string]struct{}
	// AlreadyCovered counts input identities present in the prior dataset,
	// an intersection so documents in the dataset but no longer in the
	// input set are not miscounted.
	AlreadyCovered int

	existingPath string
}

// PlanContinuation loads the dataset at existingPath, resolves its raw
// file_name values against root, and filters inputRefs down to the ones not
// yet covered. When the configured format differs from the dataset's, the
// dataset's format wins and the override is logged.
func PlanContinuation(inputRefs []string, existingPath, root string, configured dataset.Format, logger *slog.Logger) (*Plan, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := dataset.Load(existingPath, "")
	if err != nil {
		return nil, err
	}
	if configured != "" && configured != info.Format {
		logger.Warn("resume.format_override",
			"configured", configured, "existing", info.Format,
			"reason", "a continuation run inherits the encoding of the dataset it continues")
	}

	raw := make([]string, 0, len(info.Identities))
	for id := range info.Identities {
		raw = append(raw, id)
	}
	prior, err := pathid.BuildIdentitySet(raw, root)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Format:          info.Format,
		SeededRows:      info.Rows,
		PriorIdentities: prior,
		existingPath:    existingPath,
	}

	for _, ref := range inputRefs {
		ids, err := pathid.IdentityIDs(ref, root)
		if err != nil {
			return nil, err
		}
		covered := false
		for _, id := range ids {
			if _, ok := prior[id]; ok {
				covered = true
				break
			}
		}
		if !covered {
			plan.Pruned = append(plan.Pruned, ref)
		}
	}

	inputSet, err := pathid.BuildIdentitySet(inputRefs, root)
	if err != nil {
		return nil, err
	}
	for id := range inputSet {
		if _, ok := prior[id]; ok {
			plan.AlreadyCovered++
		}
	}

	logger.Info("resume.planned",
		"dataset", existingPath,
		"rows", plan.SeededRows,
		"inputs", len(inputRefs),
		"already_covered", plan.AlreadyCovered,
		"remaining", len(plan.Pruned),
	)
	return plan, nil
}

// Seed copies the existing dataset byte-for-byte to dst so new appends land
// after prior content.
func (p *Plan) Seed(dst string) error {
	return dataset.Copy(p.existingPath, dst)
}
