package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/ladder/internal/adapters/output"
	"github.com/okian/ladder/internal/domain/analytics"
	"github.com/okian/ladder/internal/domain/compression"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rivalry"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// RunResult is the immutable outcome of one pipeline run.
type RunResult struct {
	RunID      string
	Dataset    model.Dataset
	AsOf       time.Time // last snapshot date covered
	Snapshots  int
	Scaler     compression.Scaler
	Standings  analytics.Standings
	History    []analytics.HistoryRow
	Rivalries  map[rivalry.Board][]rivalry.Record
	Pairs      int // qualifying rivalry pairs before the top-N cut
	Artifacts  []output.Artifact
	StartedAt  time.Time
	FinishedAt time.Time
}

// PlayerView is one player's final standing and day-by-day history.
type PlayerView struct {
	Standing analytics.Standing     `json:"standing"`
	History  []analytics.HistoryRow `json:"history"`
}

// Player returns a player's view from the latest run of d.
func (s *Service) Player(d model.Dataset, name string) (PlayerView, error) {
	r, err := s.Latest(d)
	if err != nil {
		return PlayerView{}, err
	}
	for _, st := range r.Standings.All {
		if st.Player == name {
			return PlayerView{Standing: st, History: analytics.PlayerHistory(r.History, name)}, nil
		}
	}
	return PlayerView{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
}

// Standings returns the standings of the latest run of d.
func (s *Service) Standings(d model.Dataset) (analytics.Standings, error) {
	r, err := s.Latest(d)
	if err != nil {
		return analytics.Standings{}, err
	}
	return r.Standings, nil
}

// Rivalries returns the rivalry boards of the latest run of d. The map is
// empty when the rivalry stage was skipped.
func (s *Service) Rivalries(d model.Dataset) (map[rivalry.Board][]rivalry.Record, error) {
	r, err := s.Latest(d)
	if err != nil {
		return nil, err
	}
	if r.Rivalries == nil {
		return map[rivalry.Board][]rivalry.Record{}, nil
	}
	return r.Rivalries, nil
}

// Run replays dataset d from the store, publishes its artifacts and caches
// the result. Runs are serialised.
func (s *Service) Run(ctx context.Context, d model.Dataset) (*RunResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	r := &RunResult{RunID: uuid.NewString(), Dataset: d, StartedAt: start}
	log := s.logger.Named("pipeline")
	fields := []logger.Field{logger.String("run", r.RunID), logger.String("dataset", d.String())}

	err := s.run(ctx, r, log, fields)
	metrics.RecordPipelineDuration(d.String(), float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordPipelineRun(d.String(), "error")
		metrics.RecordErrorByComponent("pipeline", "run_failed")
		log.Error(ctx, "run failed", append(fields, logger.Error(err))...)
		return nil, err
	}
	r.FinishedAt = time.Now()
	metrics.RecordPipelineRun(d.String(), "ok")
	metrics.UpdateReplayStats(d.String(), r.Snapshots, len(r.Standings.All), len(r.Standings.Active))
	s.publish(r)
	log.Info(ctx, "run finished", append(fields,
		logger.String("as_of", model.FormatDay(r.AsOf)),
		logger.Int("artifacts", len(r.Artifacts)),
		logger.Duration("took", r.FinishedAt.Sub(start)),
	)...)
	return r, nil
}

func (s *Service) run(ctx context.Context, r *RunResult, log logger.Logger, fields []logger.Field) error {
	snaps, err := s.snapshots(ctx, r.Dataset)
	if err != nil {
		return err
	}
	r.Snapshots = len(snaps)
	r.AsOf = snaps[len(snaps)-1].Date()
	log.Info(ctx, "replaying", append(fields,
		logger.Int("snapshots", len(snaps)),
		logger.String("from", model.FormatDay(snaps[0].Date())),
		logger.String("to", model.FormatDay(r.AsOf)),
	)...)

	res, err := s.engine.Replay(snaps)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	values := make([]float64, len(res.Players))
	for i, p := range res.Players {
		values[i] = p.Rating
	}
	r.Scaler = compression.NewScaler(s.mode, values)
	if r.Scaler.Degenerate {
		log.Warn(ctx, "degenerate rating distribution, every player gets the baseline", fields...)
	}

	b := analytics.Builder{Gate: s.gate, Params: s.engine.Params(), Scaler: r.Scaler}
	r.Standings = b.Standings(res.Players, r.AsOf)
	r.History = b.History(res.Days)
	log.Info(ctx, "standings built", append(fields,
		logger.Int("players", len(r.Standings.All)),
		logger.Int("active", len(r.Standings.Active)),
		logger.Int("history_rows", len(r.History)),
	)...)

	arts, err := s.writer.WriteStandings(ctx, r.Dataset, r.Standings)
	if err != nil {
		return fmt.Errorf("write standings: %w", err)
	}
	r.Artifacts = append(r.Artifacts, arts...)
	hist, err := s.writer.WriteHistory(ctx, r.Dataset, r.AsOf, r.History)
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	r.Artifacts = append(r.Artifacts, hist)

	rv, err := s.rivalries(ctx, r.Dataset, log, fields)
	switch {
	case errors.Is(err, output.ErrArtifactNotFound):
		return nil
	case err != nil:
		return err
	}
	r.Rivalries, r.Pairs = rv.Boards, rv.Pairs
	r.Artifacts = append(r.Artifacts, rv.Artifacts...)
	return nil
}

// snapshots returns the stored lineage of d in date order.
func (s *Service) snapshots(ctx context.Context, d model.Dataset) ([]snapshot.Snapshot, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	switch d {
	case model.DatasetFull:
	case model.DatasetRecent:
		if s.cutoff.IsZero() {
			return nil, ErrNoCutoff
		}
		recent := all[:0:0]
		for _, snap := range all {
			if !snap.Date().Before(s.cutoff) {
				recent = append(recent, snap)
			}
		}
		all = recent
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownDataset, d)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: dataset %s", ErrNoSnapshots, d)
	}
	return all, nil
}

// RivalryResult is the outcome of the rivalry stage.
type RivalryResult struct {
	Boards    map[rivalry.Board][]rivalry.Record
	Pairs     int
	Artifacts []output.Artifact
}

// RunRivalry recomputes the rivalry boards of d from its published history
// artifact. It returns output.ErrArtifactNotFound when d has no history yet.
func (s *Service) RunRivalry(ctx context.Context, d model.Dataset) (RivalryResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	log := s.logger.Named("rivalry")
	rv, err := s.rivalries(ctx, d, log, []logger.Field{logger.String("dataset", d.String())})
	if err != nil {
		return RivalryResult{}, err
	}
	s.mu.Lock()
	if prev, ok := s.results[d]; ok {
		next := *prev
		next.Rivalries, next.Pairs = rv.Boards, rv.Pairs
		s.results[d] = &next
	}
	s.mu.Unlock()
	return rv, nil
}

func (s *Service) rivalries(ctx context.Context, d model.Dataset, log logger.Logger, fields []logger.Field) (RivalryResult, error) {
	rows, hist, err := s.writer.ReadHistory(d)
	if errors.Is(err, output.ErrArtifactNotFound) {
		log.Warn(ctx, "no history artifact, skipping rivalries", fields...)
		return RivalryResult{}, err
	}
	if err != nil {
		return RivalryResult{}, fmt.Errorf("read history: %w", err)
	}
	records := rivalry.Compute(rows, s.rivalryOpts...)
	boards := rivalry.Leaderboards(records, s.rivalryOpts...)
	arts, err := s.writer.WriteRivalries(ctx, d, hist.AsOf, boards)
	if err != nil {
		return RivalryResult{}, fmt.Errorf("write rivalries: %w", err)
	}
	metrics.UpdateRivalries(d.String(), len(records))
	log.Info(ctx, "rivalries computed", append(fields,
		logger.String("history", hist.Path),
		logger.Int("pairs", len(records)),
	)...)
	return RivalryResult{Boards: boards, Pairs: len(records), Artifacts: arts}, nil
}
