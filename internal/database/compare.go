package database

import (
	"context"
	"fmt"
	"slices"

	"github.com/quietwire/linkcheck/internal/model"
)

// Comparison is the difference between two runs of the same root.
type Comparison struct {
	Base    Run `json:"base"`
	Current Run `json:"current"`

	// NewlyBroken are failing findings of Current that did not fail in Base.
	NewlyBroken []model.Finding `json:"newly_broken"`

	// Fixed are failing findings of Base that no longer fail in Current.
	Fixed []model.Finding `json:"fixed"`

	// StillBroken fail in both runs.
	StillBroken []model.Finding `json:"still_broken"`

	// ChangedDocuments are paths whose digest differs between the runs,
	// including documents present in only one of them.
	ChangedDocuments []string `json:"changed_documents"`
}

// CompareRuns compares run current against run base. A finding is matched
// across runs by model.Finding.Key; warnings count as failures only when
// strict is set.
func (hdb *HistoryDB) CompareRuns(ctx context.Context, base, current int64, strict bool) (*Comparison, error) {
	baseRun, err := hdb.GetRun(ctx, base)
	if err != nil {
		return nil, err
	}
	currentRun, err := hdb.GetRun(ctx, current)
	if err != nil {
		return nil, err
	}

	baseFindings, err := hdb.GetRunFindings(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("failed to load base findings: %w", err)
	}
	currentFindings, err := hdb.GetRunFindings(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("failed to load current findings: %w", err)
	}

	baseDocs, err := hdb.GetRunDocuments(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("failed to load base documents: %w", err)
	}
	currentDocs, err := hdb.GetRunDocuments(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("failed to load current documents: %w", err)
	}

	cmp := diffFindings(baseFindings, currentFindings, strict)
	cmp.Base = baseRun
	cmp.Current = currentRun
	cmp.ChangedDocuments = diffDocuments(baseDocs, currentDocs)
	return cmp, nil
}

// CompareLatest compares the two newest runs of root. It returns
// ErrRunNotFound when fewer than two runs exist.
func (hdb *HistoryDB) CompareLatest(ctx context.Context, root string, strict bool) (*Comparison, error) {
	runs, err := hdb.ListRuns(ctx, root, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, fmt.Errorf("%w: need two runs of %s to compare, have %d", ErrRunNotFound, root, len(runs))
	}
	return hdb.CompareRuns(ctx, runs[1].ID, runs[0].ID, strict)
}

func diffFindings(base, current []model.Finding, strict bool) *Comparison {
	failing := func(findings []model.Finding) map[string]model.Finding {
		m := make(map[string]model.Finding)
		for _, f := range findings {
			if f.IsFailure(strict) {
				m[f.Key()] = f
			}
		}
		return m
	}
	before := failing(base)
	after := failing(current)

	cmp := &Comparison{}
	for _, f := range current {
		if !f.IsFailure(strict) {
			continue
		}
		if _, ok := before[f.Key()]; ok {
			cmp.StillBroken = append(cmp.StillBroken, f)
		} else {
			cmp.NewlyBroken = append(cmp.NewlyBroken, f)
		}
	}
	for _, f := range base {
		if !f.IsFailure(strict) {
			continue
		}
		if _, ok := after[f.Key()]; !ok {
			cmp.Fixed = append(cmp.Fixed, f)
		}
	}
	return cmp
}

func diffDocuments(base, current []model.DocumentDigest) []string {
	digests := make(map[string]string, len(base))
	for _, d := range base {
		digests[d.Path] = d.Digest
	}

	var changed []string
	for _, d := range current {
		old, ok := digests[d.Path]
		if !ok || old != d.Digest {
			changed = append(changed, d.Path)
		}
		delete(digests, d.Path)
	}
	for _, d := range base {
		if _, ok := digests[d.Path]; ok {
			changed = append(changed, d.Path)
		}
	}
	slices.Sort(changed)
	return changed
}
