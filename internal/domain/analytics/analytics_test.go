package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/okian/ladder/internal/domain/compression"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rating"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/testdays"
	. "github.com/smartystreets/goconvey/convey"
)

var day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func builderFor(res rating.Result) Builder {
	values := make([]float64, 0, len(res.Players))
	for _, p := range res.Players {
		values = append(values, p.Rating)
	}
	return Builder{
		Gate:   DefaultGate(),
		Params: rating.DefaultParams(),
		Scaler: compression.NewScaler(compression.ModeHybrid, values),
	}
}

func TestWindow(t *testing.T) {
	Convey("Given a window of three", t, func() {
		w := newWindow(3)

		Convey("Then an empty window has no mean or spread", func() {
			_, ok := w.mean()
			So(ok, ShouldBeFalse)
			_, ok = w.stdDev()
			So(ok, ShouldBeFalse)
		})

		Convey("Then pushing past capacity evicts the oldest value", func() {
			for _, v := range []float64{1, 2, 3} {
				_, ok := w.push(v)
				So(ok, ShouldBeFalse)
			}
			old, ok := w.push(10)
			So(ok, ShouldBeTrue)
			So(old, ShouldEqual, 1)
			So(w.len(), ShouldEqual, 3)

			m, _ := w.mean()
			So(m, ShouldEqual, 5)
			sd, _ := w.stdDev()
			So(sd, ShouldAlmostEqual, math.Sqrt(19), 1e-9)
		})
	})
}

func TestGate(t *testing.T) {
	Convey("Given the default activity gate", t, func() {
		g := DefaultGate()

		Convey("Then both recency and volume are required", func() {
			So(g.Active(day0, 10, day0.AddDate(0, 0, 14)), ShouldBeTrue)
			So(g.Active(day0, 10, day0.AddDate(0, 0, 15)), ShouldBeFalse)
			So(g.Active(day0, 9, day0), ShouldBeFalse)
		})
	})
}

func TestStandings(t *testing.T) {
	Convey("Given a season where one regular disappears", t, func() {
		roster := testdays.Roster(31)
		snaps := testdays.Repeat(day0, 20, roster[:30], 3000, 50)
		// the last player replaces the first for the final 20 days
		late := append([]string{}, roster[1:31]...)
		snaps = append(snaps, testdays.Repeat(day0.AddDate(0, 0, 20), 20, late, 3000, 50)...)

		res, err := rating.New().Replay(snaps)
		So(err, ShouldBeNil)
		b := builderFor(res)
		asOf := snaps[len(snaps)-1].Date()
		st := b.Standings(res.Players, asOf)

		Convey("Then the all view holds everyone and the active view excludes the absent player", func() {
			So(st.All, ShouldHaveLength, 31)
			So(st.Active, ShouldHaveLength, 30)
			for _, s := range st.Active {
				So(s.Player, ShouldNotEqual, roster[0])
				So(s.Active, ShouldBeTrue)
			}
		})

		Convey("Then active ranks are dense, start at 1 and follow compressed rating", func() {
			So(*st.Active[0].ActiveRank, ShouldEqual, 1)
			for i := 1; i < len(st.Active); i++ {
				So(st.Active[i].Rating, ShouldBeLessThanOrEqualTo, st.Active[i-1].Rating)
				step := *st.Active[i].ActiveRank - *st.Active[i-1].ActiveRank
				So(step == 0 || step == 1, ShouldBeTrue)
			}
		})

		Convey("Then the absent player is tagged inactive with no active rank", func() {
			var gone *Standing
			for i := range st.All {
				if st.All[i].Player == roster[0] {
					gone = &st.All[i]
				}
			}
			So(gone, ShouldNotBeNil)
			So(gone.Active, ShouldBeFalse)
			So(gone.ActiveRank, ShouldBeNil)
			So(gone.DaysInactive, ShouldEqual, 20)
			So(gone.Confidence, ShouldEqual, 20.0/30.0)
			So(gone.Uncertainty, ShouldBeGreaterThan, rating.DefaultParams().UncertaintyBase)
		})
	})
}

func TestHistory(t *testing.T) {
	Convey("Given a player who ranks 20th for 7 days then 5th for 7 days", t, func() {
		roster := testdays.Roster(30)
		snaps := testdays.Repeat(day0, 7, roster, 3000, 50)
		// move player020 to rank 5
		climb := append([]string{}, roster[:4]...)
		climb = append(climb, roster[19])
		climb = append(climb, roster[4:19]...)
		climb = append(climb, roster[20:]...)
		snaps = append(snaps, testdays.Repeat(day0.AddDate(0, 0, 7), 7, climb, 3000, 50)...)

		res, err := rating.New().Replay(snaps)
		So(err, ShouldBeNil)
		rows := builderFor(res).History(res.Days)
		mine := PlayerHistory(rows, roster[19])
		So(mine, ShouldHaveLength, 14)

		Convey("Then prev7 stays empty until the eighth game", func() {
			for _, r := range mine[:7] {
				So(r.Prev7Avg, ShouldBeNil)
				So(r.Trend, ShouldEqual, TrendStable)
			}
			So(mine[7].Prev7Avg, ShouldNotBeNil)
		})

		Convey("Then the final trend is up with the expected averages", func() {
			last := mine[13]
			So(*last.Last7Avg, ShouldEqual, 5)
			So(*last.Prev7Avg, ShouldEqual, 20)
			So(last.Trend, ShouldEqual, TrendUp)
			So(last.Top10, ShouldEqual, 7)
			So(last.AvgRank, ShouldEqual, 12.5)
		})

		Convey("Then consistency appears from the second game", func() {
			So(mine[0].Consistency, ShouldBeNil)
			So(*mine[1].Consistency, ShouldEqual, 0)
		})

		Convey("Then the peak never decreases", func() {
			for i := 1; i < len(mine); i++ {
				So(mine[i].PeakRating, ShouldBeGreaterThanOrEqualTo, mine[i-1].PeakRating)
			}
		})
	})

	Convey("Given a player who skips a day", t, func() {
		roster := testdays.Roster(31)
		snaps := testdays.Repeat(day0, 3, roster[:30], 3000, 50)
		snaps = append(snaps, testdays.Day(day0.AddDate(0, 0, 3), roster[1:31], 3000, 50))

		res, err := rating.New().Replay(snaps)
		So(err, ShouldBeNil)
		rows := builderFor(res).History(res.Days)

		Convey("Then a forward-filled row exists for the missed date", func() {
			mine := PlayerHistory(rows, roster[0])
			So(mine, ShouldHaveLength, 4)
			skipped := mine[3]
			So(skipped.Played, ShouldBeFalse)
			So(skipped.Rank, ShouldEqual, 0)
			So(skipped.Delta, ShouldEqual, 0)
			So(skipped.Games, ShouldEqual, 3)
			So(skipped.RawRating, ShouldEqual, mine[2].RawRating)
			So(*skipped.Last7Avg, ShouldEqual, *mine[2].Last7Avg)
			So(skipped.Wins, ShouldEqual, 3)
		})

		Convey("Then the late joiner has no rows before the first appearance", func() {
			So(PlayerHistory(rows, roster[30]), ShouldHaveLength, 1)
		})

		Convey("Then no one is active yet under the ten-game minimum", func() {
			for _, r := range rows {
				So(r.Active, ShouldBeFalse)
				So(r.ActiveRank, ShouldBeNil)
			}
		})
	})
}

func TestHistoryActiveRank(t *testing.T) {
	Convey("Given a leader who stops playing after three sparse days", t, func() {
		roster := testdays.Roster(31)
		played := []time.Time{day0, day0.AddDate(0, 0, 9), day0.AddDate(0, 0, 19)}
		var snaps []snapshot.Snapshot
		for _, d := range played {
			snaps = append(snaps, testdays.Day(d, roster[:30], 3000, 50))
		}
		gone := day0.AddDate(0, 0, 34)
		snaps = append(snaps, testdays.Day(gone, roster[1:31], 3000, 50))

		res, err := rating.New().Replay(snaps)
		So(err, ShouldBeNil)
		b := builderFor(res)
		b.Gate = Gate{WindowDays: DefaultActivityWindowDays, MinGames: 2}
		rows := b.History(res.Days)
		leader := PlayerHistory(rows, roster[0])
		second := PlayerHistory(rows, roster[1])
		So(leader, ShouldHaveLength, 4)
		So(second, ShouldHaveLength, 4)

		Convey("Then no one has an active rank before the second game", func() {
			So(leader[0].ActiveRank, ShouldBeNil)
			So(second[0].ActiveRank, ShouldBeNil)
		})

		Convey("Then the leader holds dense rank one while active", func() {
			for _, r := range leader[1:3] {
				So(r.Active, ShouldBeTrue)
				So(r.ActiveRank, ShouldNotBeNil)
				So(*r.ActiveRank, ShouldEqual, 1)
			}
			So(*second[2].ActiveRank, ShouldEqual, 2)
		})

		Convey("Then the leader drops out once the window has passed", func() {
			So(model.DaysBetween(played[2], gone), ShouldBeGreaterThan, DefaultActivityWindowDays)
			So(leader[3].Date, ShouldEqual, gone)
			So(leader[3].Active, ShouldBeFalse)
			So(leader[3].ActiveRank, ShouldBeNil)
		})

		Convey("Then the rest of the field closes the gap", func() {
			So(second[3].Active, ShouldBeTrue)
			So(*second[3].ActiveRank, ShouldEqual, 1)
			third := PlayerHistory(rows, roster[2])
			So(*third[3].ActiveRank, ShouldEqual, 2)
		})
	})
}
