// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tally_service provides the infotally HTTP service.
//
// The service owns one tally per configured variable and one paired tally
// per configured pair. It exposes endpoints for:
//   - Observing records
//   - Reporting distributions, entropy and mutual information
//   - Resetting tallies
//   - Saving and restoring snapshots of the counts
package tally_service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/infotally/pkg/infotheory"
	"github.com/AleutianAI/infotally/pkg/logging"
	"github.com/AleutianAI/infotally/pkg/tally"
	"github.com/AleutianAI/infotally/services/tally/config"
	"github.com/AleutianAI/infotally/services/tally/snapshot"
	"github.com/AleutianAI/infotally/services/tally/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"
)

// ServiceVersion is the infotally service version.
const ServiceVersion = "0.1.0"

// LatestSnapshot may be passed to Restore in place of a snapshot id.
const LatestSnapshot = "latest"

// tracerName is the instrumentation scope of service spans.
const tracerName = "infotally.service"

// variable is one configured variable and its tally.
type variable struct {
	cfg      config.VariableConfig
	labels   []string
	binCount int
	bin      tally.BinFunc[string]

	mu    sync.Mutex
	tally *tally.Tally[string]
}

// pair is one configured pair and its joint tally.
type pair struct {
	cfg  config.PairConfig
	x, y *variable

	mu    sync.Mutex
	tally *tally.Pair[string, string]
}

// Service tallies observed records.
//
// Thread Safety:
//
//	Service is safe for concurrent use. Each tally has its own mutex, held
//	across every Add, Merge and derived-value read, since tallies memoize
//	their views. Observe commits under a shared service lock and snapshots
//	take it exclusively, so a snapshot never sees half of an observe call.
type Service struct {
	cfg   *config.Config
	basis infotheory.Basis

	mu        sync.RWMutex
	variables map[string]*variable
	pairs     map[string]*pair
	varNames  []string
	pairNames []string

	store   *snapshot.Store
	logger  *logging.Logger
	metrics *Metrics

	records atomic.Int64
	started time.Time
	now     func() time.Time
}

// NewService creates a service for the variables and pairs in cfg.
//
// Description:
//
//	Validates cfg and builds an empty tally for every variable and pair.
//	Snapshots are disabled until WithStore is called.
//
// Inputs:
//
//	cfg - Validated or unvalidated configuration.
//
// Outputs:
//
//	*Service - The service.
//	error - cfg is invalid.
func NewService(cfg *config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:       cfg,
		basis:     cfg.BasisValue(),
		variables: make(map[string]*variable, len(cfg.Variables)),
		pairs:     make(map[string]*pair, len(cfg.Pairs)),
		logger:    logging.Nop(),
		started:   time.Now(),
		now:       time.Now,
	}

	for _, vc := range cfg.Variables {
		v := newVariable(vc)
		t, err := v.newTally()
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", vc.Name, err)
		}
		v.tally = t
		s.variables[vc.Name] = v
		s.varNames = append(s.varNames, vc.Name)
	}

	for _, pc := range cfg.Pairs {
		p := &pair{cfg: pc, x: s.variables[pc.X], y: s.variables[pc.Y]}
		t, err := p.newTally()
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", pc.Name, err)
		}
		p.tally = t
		s.pairs[pc.Name] = p
		s.pairNames = append(s.pairNames, pc.Name)
	}

	return s, nil
}

// WithStore enables snapshots backed by store.
func (s *Service) WithStore(store *snapshot.Store) *Service {
	s.store = store
	return s
}

// WithLogger sets the service logger. The default discards everything.
func (s *Service) WithLogger(logger *logging.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics records observation and snapshot counters to m.
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

// Basis returns the configured default basis.
func (s *Service) Basis() infotheory.Basis { return s.basis }

// VariableNames returns configured variable names in declaration order.
func (s *Service) VariableNames() []string { return slices.Clone(s.varNames) }

// PairNames returns configured pair names in declaration order.
func (s *Service) PairNames() []string { return slices.Clone(s.pairNames) }

// =============================================================================
// Observe
// =============================================================================

// Observe tallies a batch of records.
//
// Description:
//
//	Every field named like a variable is added to that variable, and every
//	pair whose two fields are present is added to that pair. A value that
//	cannot be binned is rejected on its own; the rest of the record still
//	counts. The batch is built off to the side and merged in one step, so
//	readers see either none of it or all of it.
//
// Inputs:
//
//	ctx - Cancellation. A cancelled batch is discarded.
//	records - Records to tally.
//
// Outputs:
//
//	*ObserveResponse - Accepted, rejected and unmatched counts.
//	error - ctx was cancelled, or a merge failed.
func (s *Service) Observe(ctx context.Context, records []Record) (*ObserveResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Service.Observe",
		trace.WithAttributes(attribute.Int("tally.records", len(records))),
	)
	defer span.End()

	b, err := s.newBatch()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	resp := &ObserveResponse{Records: len(records)}
	for i, rec := range records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
		}
		if !b.add(i, rec, resp) {
			resp.Unmatched++
		}
	}

	if err := s.commit(b); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.records.Add(int64(len(records)))
	if s.metrics != nil {
		for target, o := range b.outcomes {
			s.metrics.RecordObservations(target, o.accepted, o.rejected)
		}
		s.metrics.RecordsTotal.Add(float64(len(records)))
	}

	span.SetAttributes(
		attribute.Int64("tally.accepted", resp.Accepted),
		attribute.Int64("tally.rejected", resp.Rejected),
	)
	s.logger.Debug("observed records",
		"records", resp.Records,
		"accepted", resp.Accepted,
		"rejected", resp.Rejected,
		"unmatched", resp.Unmatched)
	telemetry.SetSpanOK(span)
	return resp, nil
}

// outcome counts values accepted and rejected by one target.
type outcome struct {
	accepted, rejected int64
}

// batch holds fresh tallies that are merged into the service on commit.
type batch struct {
	s         *Service
	variables map[string]*tally.Tally[string]
	pairs     map[string]*tally.Pair[string, string]
	outcomes  map[string]*outcome
}

func (s *Service) newBatch() (*batch, error) {
	b := &batch{
		s:         s,
		variables: make(map[string]*tally.Tally[string], len(s.variables)),
		pairs:     make(map[string]*tally.Pair[string, string], len(s.pairs)),
		outcomes:  make(map[string]*outcome, len(s.variables)+len(s.pairs)),
	}
	for name, v := range s.variables {
		t, err := v.newTally()
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		b.variables[name] = t
		b.outcomes[name] = &outcome{}
	}
	for name, p := range s.pairs {
		t, err := p.newTally()
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", name, err)
		}
		b.pairs[name] = t
		b.outcomes[name] = &outcome{}
	}
	return b, nil
}

// add tallies one record and reports whether any field matched.
func (b *batch) add(index int, rec Record, resp *ObserveResponse) bool {
	matched := false
	for _, name := range b.s.varNames {
		raw, ok := rec[name]
		if !ok {
			continue
		}
		matched = true
		b.record(index, name, b.variables[name].Add(raw), resp)
	}
	for _, name := range b.s.pairNames {
		p := b.s.pairs[name]
		x, okX := rec[p.cfg.X]
		y, okY := rec[p.cfg.Y]
		if !okX || !okY {
			continue
		}
		b.record(index, name, b.pairs[name].Add(x, y), resp)
	}
	return matched
}

func (b *batch) record(index int, target string, err error, resp *ObserveResponse) {
	o := b.outcomes[target]
	if err == nil {
		o.accepted++
		resp.Accepted++
		return
	}
	o.rejected++
	resp.Rejected++
	if len(resp.Errors) < MaxReportedErrors {
		resp.Errors = append(resp.Errors, ObservationError{
			Record: index,
			Target: target,
			Error:  err.Error(),
		})
	}
}

func (s *Service) commit(b *batch) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for name, t := range b.variables {
		if t.Samples() == 0 {
			continue
		}
		v := s.variables[name]
		v.mu.Lock()
		err := v.tally.Merge(t)
		v.mu.Unlock()
		if err != nil {
			return fmt.Errorf("merge variable %q: %w", name, err)
		}
	}
	for name, t := range b.pairs {
		if t.Samples() == 0 {
			continue
		}
		p := s.pairs[name]
		p.mu.Lock()
		err := p.tally.Merge(t)
		p.mu.Unlock()
		if err != nil {
			return fmt.Errorf("merge pair %q: %w", name, err)
		}
	}
	return nil
}

// =============================================================================
// Reports
// =============================================================================

// Report describes every variable and pair in basis.
//
// Description:
//
//	Each variable and pair is read under its own lock, so the report is
//	consistent per entry but not across entries while observations are
//	arriving.
//
// Inputs:
//
//	ctx - Tracing context.
//	basis - Logarithm basis for every information quantity.
//
// Outputs:
//
//	*Report - The report.
//	error - ErrInvalidBasis.
func (s *Service) Report(ctx context.Context, basis infotheory.Basis) (*Report, error) {
	_, span := telemetry.StartSpan(ctx, tracerName, "Service.Report",
		trace.WithAttributes(attribute.String("tally.basis", basis.String())),
	)
	defer span.End()

	if !basis.Valid() {
		err := fmt.Errorf("%w: %s", ErrInvalidBasis, basis)
		telemetry.RecordError(span, err)
		return nil, err
	}

	r := &Report{
		Basis:       basis.String(),
		GeneratedAt: s.now().UTC(),
		Variables:   make([]VariableReport, 0, len(s.varNames)),
		Pairs:       make([]PairReport, 0, len(s.pairNames)),
	}
	for _, name := range s.varNames {
		r.Variables = append(r.Variables, s.variables[name].report(basis))
	}
	for _, name := range s.pairNames {
		r.Pairs = append(r.Pairs, s.pairs[name].report(basis))
	}
	return r, nil
}

// VariableReport describes one variable in basis.
func (s *Service) VariableReport(_ context.Context, name string, basis infotheory.Basis) (*VariableReport, error) {
	if !basis.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBasis, basis)
	}
	v, ok := s.variables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	r := v.report(basis)
	return &r, nil
}

// PairReport describes one pair in basis.
func (s *Service) PairReport(_ context.Context, name string, basis infotheory.Basis) (*PairReport, error) {
	if !basis.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBasis, basis)
	}
	p, ok := s.pairs[name]
	if !ok {
		return nil, fmt.Errorf("%w: pair %q", ErrUnknownVariable, name)
	}
	r := p.report(basis)
	return &r, nil
}

func (v *variable) report(basis infotheory.Basis) VariableReport {
	v.mu.Lock()
	defer v.mu.Unlock()

	r := VariableReport{
		Name:       v.cfg.Name,
		Kind:       v.cfg.Kind,
		Samples:    v.tally.Samples(),
		Bins:       make([]BinReport, v.binCount),
		MaxEntropy: infotheory.Entropy(uniform(v.binCount), basis),
	}
	counts := v.tally.Counts()
	probs, err := v.tally.Probabilities()
	for i := range r.Bins {
		r.Bins[i] = BinReport{Label: v.labels[i], Count: counts[i]}
		if err == nil {
			r.Bins[i].Probability = probs[i]
		}
	}
	if h, err := v.tally.Entropy(basis); err == nil {
		r.Entropy = &h
	}
	return r
}

func (p *pair) report(basis infotheory.Basis) PairReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := PairReport{
		Name:    p.cfg.Name,
		X:       p.cfg.X,
		Y:       p.cfg.Y,
		Samples: p.tally.Samples(),
	}
	if r.Samples == 0 {
		return r
	}

	r.EntropyX = value(p.tally.EntropyX(basis))
	r.EntropyY = value(p.tally.EntropyY(basis))
	r.JointEntropy = value(p.tally.EntropyXY(basis))
	r.EntropyXGivenY = value(p.tally.EntropyXGivenY(basis))
	r.EntropyYGivenX = value(p.tally.EntropyYGivenX(basis))
	r.MutualInformation = value(p.tally.MutualInformationXY(basis))
	r.VariationOfInformation = value(p.tally.VariationOfInformationXY(basis))

	if pxy, err := p.tally.ProbabilitiesXY(); err == nil {
		rows, _ := pxy.Dims()
		r.Joint = make([][]float64, rows)
		for i := range r.Joint {
			r.Joint[i] = mat.Row(nil, i, pxy)
		}
	}
	return r
}

// value converts a tally result into an optional report field.
func value(v float64, err error) *float64 {
	if err != nil {
		return nil
	}
	return &v
}

func uniform(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	return p
}

// =============================================================================
// Reset
// =============================================================================

// Reset clears the named variable or pair, or everything when name is "".
//
// Outputs:
//
//	[]string - Names that were cleared.
//	error - ErrUnknownVariable.
func (s *Service) Reset(ctx context.Context, name string) ([]string, error) {
	_, span := telemetry.StartSpan(ctx, tracerName, "Service.Reset",
		trace.WithAttributes(attribute.String("tally.name", name)),
	)
	defer span.End()

	if name == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, v := range s.variables {
			v.clear()
		}
		for _, p := range s.pairs {
			p.clear()
		}
		s.logger.Info("reset all tallies")
		return slices.Concat(s.varNames, s.pairNames), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.variables[name]; ok {
		v.clear()
	} else if p, ok := s.pairs[name]; ok {
		p.clear()
	} else {
		err := fmt.Errorf("%w: %q", ErrUnknownVariable, name)
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("reset tally", "name", name)
	return []string{name}, nil
}

func (v *variable) clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tally.Clear()
}

func (p *pair) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tally.Clear()
}

// =============================================================================
// Snapshots
// =============================================================================

// Snapshot saves the current counts of every variable and pair.
//
// Description:
//
//	Counts are captured under the exclusive service lock, so the snapshot
//	reflects a point between two observe calls.
//
// Inputs:
//
//	ctx - Cancellation and tracing.
//	label - Optional free-form label.
//
// Outputs:
//
//	*snapshot.Summary - The stored snapshot's summary.
//	error - ErrSnapshotsDisabled or a storage failure.
func (s *Service) Snapshot(ctx context.Context, label string) (*snapshot.Summary, error) {
	if s.store == nil {
		return nil, ErrSnapshotsDisabled
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Service.Snapshot")
	defer span.End()

	snap := s.capture(label)
	if err := s.store.Save(ctx, snap); err != nil {
		s.recordSnapshot("save", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.recordSnapshot("save", nil)

	summary := snap.Summary()
	span.SetAttributes(attribute.String("snapshot.id", summary.ID))
	telemetry.SetSpanOK(span)
	s.logger.Info("snapshot saved", "id", summary.ID, "label", label)
	return &summary, nil
}

func (s *Service) capture(label string) *snapshot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &snapshot.Snapshot{
		Label:     label,
		Variables: make(map[string]snapshot.Variable, len(s.variables)),
		Pairs:     make(map[string]snapshot.PairCounts, len(s.pairs)),
	}
	for name, v := range s.variables {
		v.mu.Lock()
		snap.Variables[name] = snapshot.Variable{Counts: v.tally.Counts(), Samples: v.tally.Samples()}
		v.mu.Unlock()
	}
	for name, p := range s.pairs {
		p.mu.Lock()
		snap.Pairs[name] = snapshot.PairCounts{Counts: p.tally.Counts(), Samples: p.tally.Samples()}
		p.mu.Unlock()
	}
	return snap
}

// Restore replaces every tally with the counts in a stored snapshot.
//
// Description:
//
//	id may be LatestSnapshot. Configured entries missing from the snapshot
//	are cleared and snapshot entries that are no longer configured are
//	skipped. Nothing changes unless every count table fits its tally.
//
// Inputs:
//
//	ctx - Cancellation and tracing.
//	id - Snapshot id or LatestSnapshot.
//
// Outputs:
//
//	*RestoreResponse - What was restored, cleared and skipped.
//	error - ErrSnapshotsDisabled, ErrSnapshotNotFound, a count table that
//	does not fit (wrapping infotheory.ErrShapeMismatch or
//	tally.ErrNegativeCount), or a storage failure.
func (s *Service) Restore(ctx context.Context, id string) (*RestoreResponse, error) {
	if s.store == nil {
		return nil, ErrSnapshotsDisabled
	}
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Service.Restore",
		trace.WithAttributes(attribute.String("snapshot.id", id)),
	)
	defer span.End()

	var snap *snapshot.Snapshot
	var err error
	if id == LatestSnapshot {
		snap, err = s.store.Latest(ctx)
	} else {
		snap, err = s.store.Get(ctx, id)
	}
	if errors.Is(err, snapshot.ErrNotFound) {
		err = fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err == nil {
		var resp *RestoreResponse
		resp, err = s.apply(snap)
		if err == nil {
			s.recordSnapshot("restore", nil)
			s.logger.Info("snapshot restored",
				"id", snap.ID,
				"restored", len(resp.Restored),
				"cleared", len(resp.Cleared),
				"skipped", len(resp.Skipped))
			telemetry.SetSpanOK(span)
			return resp, nil
		}
	}

	s.recordSnapshot("restore", err)
	telemetry.RecordError(span, err)
	return nil, err
}

func (s *Service) apply(snap *snapshot.Snapshot) (*RestoreResponse, error) {
	resp := &RestoreResponse{Snapshot: snap.Summary()}

	variables := make(map[string]*tally.Tally[string], len(s.variables))
	for _, name := range s.varNames {
		t, err := s.variables[name].newTally()
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		saved, ok := snap.Variables[name]
		if !ok {
			resp.Cleared = append(resp.Cleared, name)
		} else {
			if err := t.Restore(saved.Counts); err != nil {
				return nil, fmt.Errorf("restore variable %q: %w", name, err)
			}
			if t.Samples() != saved.Samples {
				s.logger.Warn("snapshot sample count disagrees with counts",
					"snapshot", snap.ID, "name", name,
					"recorded", saved.Samples, "counted", t.Samples())
			}
			resp.Restored = append(resp.Restored, name)
		}
		variables[name] = t
	}

	pairs := make(map[string]*tally.Pair[string, string], len(s.pairs))
	for _, name := range s.pairNames {
		t, err := s.pairs[name].newTally()
		if err != nil {
			return nil, fmt.Errorf("pair %q: %w", name, err)
		}
		saved, ok := snap.Pairs[name]
		if !ok {
			resp.Cleared = append(resp.Cleared, name)
		} else {
			if err := t.Restore(saved.Counts); err != nil {
				return nil, fmt.Errorf("restore pair %q: %w", name, err)
			}
			resp.Restored = append(resp.Restored, name)
		}
		pairs[name] = t
	}

	for name := range snap.Variables {
		if _, ok := s.variables[name]; !ok {
			resp.Skipped = append(resp.Skipped, name)
		}
	}
	for name := range snap.Pairs {
		if _, ok := s.pairs[name]; !ok {
			resp.Skipped = append(resp.Skipped, name)
		}
	}
	slices.Sort(resp.Skipped)

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range variables {
		v := s.variables[name]
		v.mu.Lock()
		v.tally = t
		v.mu.Unlock()
	}
	for name, t := range pairs {
		p := s.pairs[name]
		p.mu.Lock()
		p.tally = t
		p.mu.Unlock()
	}
	return resp, nil
}

// ListSnapshots returns stored snapshots, newest first.
func (s *Service) ListSnapshots(ctx context.Context) ([]snapshot.Summary, error) {
	if s.store == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.store.List(ctx)
}

// DeleteSnapshot removes a stored snapshot.
func (s *Service) DeleteSnapshot(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrSnapshotsDisabled
	}
	err := s.store.Delete(ctx, id)
	if errors.Is(err, snapshot.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	return err
}

func (s *Service) recordSnapshot(op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordSnapshot(op, err == nil)
	}
}

// =============================================================================
// Health
// =============================================================================

// Health reports service liveness and size.
func (s *Service) Health() *HealthResponse {
	return &HealthResponse{
		Status:    "healthy",
		Version:   ServiceVersion,
		Variables: len(s.variables),
		Pairs:     len(s.pairs),
		Snapshots: s.store != nil,
		Records:   s.records.Load(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	}
}

// =============================================================================
// Binning
// =============================================================================

func newVariable(vc config.VariableConfig) *variable {
	v := &variable{cfg: vc, labels: binLabels(vc)}
	switch vc.Kind {
	case config.KindRange:
		bin := tally.RangeBins(vc.Bins, vc.Min, vc.Max)
		v.binCount = vc.Bins
		v.bin = func(raw string) int {
			x, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return -1
			}
			return bin(x)
		}
	default:
		bin := tally.AlphabetBins(vc.Alphabet)
		v.binCount = len(vc.Alphabet)
		v.bin = func(raw string) int {
			return bin(strings.TrimSpace(raw))
		}
	}
	return v
}

func (v *variable) newTally() (*tally.Tally[string], error) {
	return tally.New(v.binCount, v.bin)
}

func (p *pair) newTally() (*tally.Pair[string, string], error) {
	return tally.NewPair(p.x.binCount, p.x.bin, p.y.binCount, p.y.bin)
}

// binLabels names each bin of a variable.
//
// Range bins are half-open intervals of width (max-min)/(bins-1), and the
// last bin holds max alone, matching tally.RangeBins.
func binLabels(vc config.VariableConfig) []string {
	if vc.Kind != config.KindRange {
		return slices.Clone(vc.Alphabet)
	}
	n := vc.Bins
	if n == 1 {
		return []string{fmt.Sprintf("[%g, %g]", vc.Min, vc.Max)}
	}
	width := (vc.Max - vc.Min) / float64(n-1)
	labels := make([]string, n)
	for i := 0; i < n-1; i++ {
		lo := vc.Min + float64(i)*width
		labels[i] = fmt.Sprintf("[%g, %g)", lo, lo+width)
	}
	labels[n-1] = strconv.FormatFloat(vc.Max, 'g', -1, 64)
	return labels
}
