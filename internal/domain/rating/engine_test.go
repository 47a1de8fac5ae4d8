package rating_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/rating"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/testdays"
	. "github.com/smartystreets/goconvey/convey"
)

var start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func changeOf(day rating.DayResult, player string) rating.Change {
	for _, c := range day.Changes {
		if c.Player == player {
			return c
		}
	}
	panic("no change for " + player)
}

func stateOf(res rating.Result, player string) rating.PlayerState {
	for _, s := range res.Players {
		if s.Name == player {
			return s
		}
	}
	panic("no state for " + player)
}

func TestReplay_SingleDayTwoNewPlayers(t *testing.T) {
	Convey("Given a first day where A scores 1000 and B scores 500", t, func() {
		rows := []model.Entry{
			{Player: "A", Rank: 1, Score: 1000},
			{Player: "B", Rank: 2, Score: 500},
		}
		for r := 3; r <= snapshot.RanksPerDay; r++ {
			rows = append(rows, model.Entry{Player: fmt.Sprintf("pad%02d", r), Rank: r, Score: int64(460 - r*10)})
		}
		snap, err := snapshot.Validate(start, rows)
		So(err, ShouldBeNil)

		res, err := rating.New().Replay([]snapshot.Snapshot{snap})
		So(err, ShouldBeNil)

		Convey("Then A gains, the last pad loses and A ends above B", func() {
			a, b := stateOf(res, "A"), stateOf(res, "B")
			So(a.Rating, ShouldBeGreaterThan, rating.DefaultBaseline)
			So(a.Rating, ShouldBeGreaterThan, b.Rating)
			So(stateOf(res, "pad30").Rating, ShouldBeLessThan, rating.DefaultBaseline)
			So(a.Games, ShouldEqual, 1)
		})

		Convey("Then the A-versus-B comparison moves both by exactly opposite amounts", func() {
			p := rating.DefaultParams()
			gain, loss := rating.PairDelta(p,
				rating.Side{Rating: 1500, Score: 1000, Games: 0},
				rating.Side{Rating: 1500, Score: 500, Games: 0}, 1000-160)
			So(gain, ShouldBeGreaterThan, 0)
			So(gain, ShouldEqual, -loss)
		})
	})
}

func TestReplay_RepeatedIdenticalDay(t *testing.T) {
	Convey("Given the same 30-player ranking replayed for 40 days", t, func() {
		players := testdays.Roster(30)
		res, err := rating.New().Replay(testdays.Repeat(start, 40, players, 3000, 100))
		So(err, ShouldBeNil)

		Convey("Then everyone has 40 games, full confidence and base uncertainty", func() {
			So(len(res.Players), ShouldEqual, 30)
			for _, s := range res.Players {
				So(s.Games, ShouldEqual, 40)
				So(rating.Confidence(s.Games, rating.DefaultConfidenceGames), ShouldEqual, 1.0)
				So(s.Uncertainty, ShouldEqual, rating.DefaultUncertaintyBase)
				So(s.LastSeen.Equal(start.AddDate(0, 0, 39)), ShouldBeTrue)
			}
		})

		Convey("Then the ranking order is reflected in the ratings", func() {
			So(stateOf(res, players[0]).Rating, ShouldBeGreaterThan, stateOf(res, players[15]).Rating)
			So(stateOf(res, players[15]).Rating, ShouldBeGreaterThan, stateOf(res, players[29]).Rating)
		})
	})
}

func TestReplay_Determinism(t *testing.T) {
	Convey("Given a noisy season with gaps", t, func() {
		season := testdays.Season(testdays.Config{Days: 90, RosterSize: 48, SkipEvery: 7})

		Convey("When it is replayed twice", func() {
			a, errA := rating.New().Replay(season)
			b, errB := rating.New().Replay(season)

			Convey("Then the results are identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldResemble, b)
			})
		})

		Convey("When the daily-result model is used", func() {
			m, err := rating.NewModel(rating.KindDailyResult)
			So(err, ShouldBeNil)
			a, _ := rating.New(rating.WithModel(m)).Replay(season)
			b, _ := rating.New(rating.WithModel(m)).Replay(season)

			Convey("Then it is deterministic as well", func() {
				So(a, ShouldResemble, b)
			})
		})
	})
}

func TestReplay_FloorInvariant(t *testing.T) {
	Convey("Given long replays under both models and both weightings", t, func() {
		season := testdays.Season(testdays.Config{Days: 150, RosterSize: 60, Seed: 7})
		fixed := testdays.Repeat(start, 150, testdays.Roster(30), 30_000, 1000)

		noRatio := rating.DefaultParams()
		noRatio.RatioWeighting = false
		noRatio.LogScaling = false

		engines := []*rating.Engine{
			rating.New(),
			rating.New(rating.WithParams(noRatio)),
			rating.New(rating.WithModel(rating.DailyResult{})),
		}

		Convey("Then no rating ever drops below the floor and uncertainty never below base", func() {
			for _, e := range engines {
				for _, snaps := range [][]snapshot.Snapshot{season, fixed} {
					res, err := e.Replay(snaps)
					So(err, ShouldBeNil)
					for _, d := range res.Days {
						for _, c := range d.Changes {
							So(c.After, ShouldBeGreaterThanOrEqualTo, rating.DefaultFloor)
							So(c.Uncertainty, ShouldBeGreaterThanOrEqualTo, rating.DefaultUncertaintyBase)
						}
					}
				}
			}
		})
	})
}

func TestStep_FloorClamp(t *testing.T) {
	Convey("Given a player already at the floor who finishes last", t, func() {
		players := testdays.Roster(30)
		ledger := rating.NewLedger()
		for _, p := range players {
			ledger.Put(rating.PlayerState{Name: p, Rating: 1500, Games: 50, LastSeen: start, Uncertainty: 1})
		}
		ledger.Put(rating.PlayerState{Name: players[29], Rating: rating.DefaultFloor, Games: 50, LastSeen: start, Uncertainty: 1})

		day, err := rating.New().Step(ledger, testdays.Day(start.AddDate(0, 0, 1), players, 3000, 100))
		So(err, ShouldBeNil)

		Convey("Then the player stays exactly at the floor", func() {
			c := changeOf(day, players[29])
			So(c.After, ShouldEqual, rating.DefaultFloor)
			So(c.Delta, ShouldEqual, 0)
			So(c.RawDelta, ShouldBeLessThan, 0)
		})

		Convey("Then beating the floored player earns nothing", func() {
			gain, loss := rating.PairDelta(rating.DefaultParams(),
				rating.Side{Rating: 1500, Score: 3000, Games: 50},
				rating.Side{Rating: rating.DefaultFloor, Score: 100, Games: 50}, 2900)
			So(gain, ShouldEqual, 0)
			So(loss, ShouldBeLessThan, 0)
		})
	})
}

func TestStep_InactivityThenReturn(t *testing.T) {
	Convey("Given two otherwise identical ledgers", t, func() {
		players := testdays.Roster(30)
		today := start.AddDate(0, 0, 30)
		returning := players[29]

		seed := func(lastSeen time.Time) *rating.Ledger {
			l := rating.NewLedger()
			for _, p := range players {
				seen := today.AddDate(0, 0, -1)
				if p == returning {
					seen = lastSeen
				}
				l.Put(rating.PlayerState{Name: p, Rating: 1500, Games: 40, LastSeen: seen, Uncertainty: 1})
			}
			return l
		}
		snap := testdays.Day(today, players, 3000, 100)

		regular, err := rating.New().Step(seed(today.AddDate(0, 0, -1)), snap)
		So(err, ShouldBeNil)
		absent, err := rating.New().Step(seed(today.AddDate(0, 0, -21)), snap)
		So(err, ShouldBeNil)

		Convey("When the player returns after 20 missed days to a last-place finish", func() {
			r, a := changeOf(regular, returning), changeOf(absent, returning)

			Convey("Then the loss is amplified by the grown uncertainty", func() {
				So(r.PregameUncertainty, ShouldEqual, 1.0)
				So(a.PregameUncertainty, ShouldAlmostEqual, 1.4, 1e-12)
				So(a.RawDelta, ShouldEqual, r.RawDelta)
				So(a.Delta, ShouldBeLessThan, r.Delta)
				So(a.Delta, ShouldAlmostEqual, r.Delta*1.4, 1e-9)
			})

			Convey("Then the uncertainty starts decaying after the game", func() {
				So(a.Uncertainty, ShouldBeLessThan, a.PregameUncertainty)
				So(a.Uncertainty, ShouldBeGreaterThan, 1.0)
			})
		})

		Convey("When the absent player returns to win", func() {
			winners := append([]string{returning}, players[:29]...)
			win := testdays.Day(today, winners, 3000, 100)
			r, _ := rating.New().Step(seed(today.AddDate(0, 0, -1)), win)
			a, _ := rating.New().Step(seed(today.AddDate(0, 0, -21)), win)

			Convey("Then gains are not scaled up", func() {
				So(changeOf(a, returning).Delta, ShouldEqual, changeOf(r, returning).Delta)
			})
		})
	})
}

func TestStep_OutOfOrder(t *testing.T) {
	Convey("Given a ledger that already holds a day", t, func() {
		players := testdays.Roster(30)
		e := rating.New()
		ledger := rating.NewLedger()
		_, err := e.Step(ledger, testdays.Day(start.AddDate(0, 0, 5), players, 3000, 100))
		So(err, ShouldBeNil)

		Convey("Then the same or an earlier day is rejected without mutation", func() {
			before := ledger.States()
			_, err := e.Step(ledger, testdays.Day(start.AddDate(0, 0, 5), players, 3000, 100))
			So(errors.Is(err, rating.ErrOutOfOrder), ShouldBeTrue)
			_, err = e.Step(ledger, testdays.Day(start, players, 3000, 100))
			So(errors.Is(err, rating.ErrOutOfOrder), ShouldBeTrue)
			So(ledger.States(), ShouldResemble, before)
		})

		Convey("Then Replay reports unsorted input", func() {
			snaps := testdays.Repeat(start, 3, players, 3000, 100)
			snaps[0], snaps[2] = snaps[2], snaps[0]
			_, err := e.Replay(snaps)
			So(errors.Is(err, rating.ErrOutOfOrder), ShouldBeTrue)
		})
	})
}

func TestDailyResultModel(t *testing.T) {
	Convey("Given a day where everyone starts level", t, func() {
		players := testdays.Roster(30)
		snap := testdays.Day(start, players, 3000, 100)
		day := rating.Day{Snapshot: snap, Ratings: make([]float64, 30), Games: make([]int, 30)}
		for i := range day.Ratings {
			day.Ratings[i] = 1500
		}
		p := rating.DefaultParams()

		deltas := rating.DailyResult{}.Deltas(day, p)

		Convey("Then every expected rank is the tie average and deltas sum to zero", func() {
			So(deltas[0], ShouldAlmostEqual, p.DailyKFactor(0)*(15.5-1)/29, 1e-12)
			So(deltas[29], ShouldAlmostEqual, p.DailyKFactor(0)*(15.5-30)/29, 1e-12)
			sum := 0.0
			for _, d := range deltas {
				sum += d
			}
			So(sum, ShouldAlmostEqual, 0, 1e-9)
		})

		Convey("Then a player who finishes where predicted does not move", func() {
			for i := range day.Ratings {
				day.Ratings[i] = 2000 - float64(i)
			}
			deltas := rating.DailyResult{}.Deltas(day, p)
			for _, d := range deltas {
				So(d, ShouldEqual, 0)
			}
		})
	})

	Convey("Given an unknown model name", t, func() {
		_, err := rating.NewModel("glicko")
		So(errors.Is(err, rating.ErrUnknownModel), ShouldBeTrue)
	})
}
