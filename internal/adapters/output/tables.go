package output

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/ladder/internal/domain/analytics"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rivalry"
	"github.com/okian/ladder/pkg/atomicfile"
)

var standingsHeader = []string{
	"rank", "active_rank", "player", "rating", "raw_rating", "games", "confidence",
	"last_seen", "days_inactive", "uncertainty", "active",
}

var historyHeader = []string{
	"date", "player", "played", "rank", "score", "raw_rating", "rating", "delta", "games",
	"uncertainty", "active", "active_rank", "last7_avg", "prev7_avg", "trend",
	"consistency", "wins", "top10", "avg_rank", "peak_rating",
}

var rivalryHeader = []string{
	"player_a", "player_b", "encounters", "wins_a", "wins_b",
	"avg_rank_a", "avg_rank_b", "closeness", "elite",
}

// WriteStandings publishes the active and all-players views.
func (w *Writer) WriteStandings(ctx context.Context, d model.Dataset, st analytics.Standings) ([]Artifact, error) {
	var out []Artifact
	for _, t := range []struct {
		c    Category
		rows []analytics.Standing
	}{
		{CategoryStandingsActive, st.Active},
		{CategoryStandingsAll, st.All},
	} {
		rows := make([][]string, 0, len(t.rows))
		for _, s := range t.rows {
			rows = append(rows, []string{
				strconv.Itoa(s.Rank),
				fmtOptInt(s.ActiveRank),
				s.Player,
				fmtFloat(s.Rating),
				fmtFloat(s.RawRating),
				strconv.Itoa(s.Games),
				fmtFloat(s.Confidence),
				model.FormatDay(s.LastSeen),
				strconv.Itoa(s.DaysInactive),
				fmtFloat(s.Uncertainty),
				strconv.FormatBool(s.Active),
			})
		}
		a, err := w.Write(ctx, t.c, d, st.AsOf, standingsHeader, rows)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

// WriteHistory publishes the enriched day-by-day history.
func (w *Writer) WriteHistory(ctx context.Context, d model.Dataset, asOf time.Time, history []analytics.HistoryRow) (Artifact, error) {
	rows := make([][]string, 0, len(history))
	for _, h := range history {
		rows = append(rows, []string{
			model.FormatDay(h.Date),
			h.Player,
			strconv.FormatBool(h.Played),
			strconv.Itoa(h.Rank),
			strconv.FormatInt(h.Score, 10),
			fmtFloat(h.RawRating),
			fmtFloat(h.Rating),
			fmtFloat(h.Delta),
			strconv.Itoa(h.Games),
			fmtFloat(h.Uncertainty),
			strconv.FormatBool(h.Active),
			fmtOptInt(h.ActiveRank),
			fmtOptFloat(h.Last7Avg),
			fmtOptFloat(h.Prev7Avg),
			string(h.Trend),
			fmtOptFloat(h.Consistency),
			strconv.Itoa(h.Wins),
			strconv.Itoa(h.Top10),
			fmtFloat(h.AvgRank),
			fmtFloat(h.PeakRating),
		})
	}
	return w.Write(ctx, CategoryHistory, d, asOf, historyHeader, rows)
}

// ReadHistory loads the latest history artifact of a dataset.
func (w *Writer) ReadHistory(d model.Dataset) ([]analytics.HistoryRow, Artifact, error) {
	a, err := w.Latest(CategoryHistory, d)
	if err != nil {
		return nil, Artifact{}, err
	}
	rows, err := readHistory(a.Path)
	return rows, a, err
}

func readHistory(path string) ([]analytics.HistoryRow, error) {
	header, records, err := atomicfile.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if len(header) != len(historyHeader) {
		return nil, fmt.Errorf("%w: %s has %d columns", ErrBadArtifact, path, len(header))
	}
	out := make([]analytics.HistoryRow, 0, len(records))
	for i, rec := range records {
		p := newCellParser(rec)
		row := analytics.HistoryRow{
			Date:        p.Day(0),
			Player:      rec[1],
			Played:      p.Bool(2),
			Rank:        p.Int(3),
			Score:       p.Int64(4),
			RawRating:   p.Float(5),
			Rating:      p.Float(6),
			Delta:       p.Float(7),
			Games:       p.Int(8),
			Uncertainty: p.Float(9),
			Active:      p.Bool(10),
			ActiveRank:  p.OptInt(11),
			Last7Avg:    p.OptFloat(12),
			Prev7Avg:    p.OptFloat(13),
			Trend:       analytics.Trend(rec[14]),
			Consistency: p.OptFloat(15),
			Wins:        p.Int(16),
			Top10:       p.Int(17),
			AvgRank:     p.Float(18),
			PeakRating:  p.Float(19),
		}
		if err := p.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrBadArtifact, path, i+2, err)
		}
		out = append(out, row)
	}
	return out, nil
}

// WriteRivalries publishes one artifact per board.
func (w *Writer) WriteRivalries(ctx context.Context, d model.Dataset, asOf time.Time, boards map[rivalry.Board][]rivalry.Record) ([]Artifact, error) {
	var out []Artifact
	for _, b := range rivalry.Boards() {
		records := boards[b]
		rows := make([][]string, 0, len(records))
		for _, r := range records {
			rows = append(rows, []string{
				r.PlayerA, r.PlayerB,
				strconv.Itoa(r.Encounters), strconv.Itoa(r.WinsA), strconv.Itoa(r.WinsB),
				fmtFloat(r.AvgRankA), fmtFloat(r.AvgRankB),
				fmtFloat(r.Closeness), fmtFloat(r.Elite),
			})
		}
		a, err := w.Write(ctx, rivalryCategory(b), d, asOf, rivalryHeader, rows)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

func rivalryCategory(b rivalry.Board) Category {
	switch b {
	case rivalry.BoardCloseness:
		return CategoryRivalryCloseness
	case rivalry.BoardElite:
		return CategoryRivalryElite
	default:
		return CategoryRivalryEncounters
	}
}
