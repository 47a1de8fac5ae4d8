package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/testdays"
	. "github.com/smartystreets/goconvey/convey"
)

var day0 = time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

func days(start time.Time, n int) []snapshot.Snapshot {
	return testdays.Repeat(start, n, testdays.Roster(30), 5000, 100)
}

type opener func(t *testing.T, dir string) Store

func backends() map[string]opener {
	return map[string]opener{
		DriverCSV: func(t *testing.T, dir string) Store {
			s, err := Open(context.Background(), DriverCSV, filepath.Join(dir, "snapshots.csv"))
			if err != nil {
				t.Fatalf("open csv: %v", err)
			}
			return s
		},
		DriverSQLite: func(t *testing.T, dir string) Store {
			s, err := Open(context.Background(), DriverSQLite, filepath.Join(dir, "ladder.db"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		},
	}
}

func TestStore(t *testing.T) {
	for name, open := range backends() {
		Convey("Given an empty "+name+" store", t, func() {
			ctx := context.Background()
			dir := t.TempDir()
			store := open(t, dir)
			defer store.Close()

			n, err := store.Count(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)

			Convey("When snapshots are appended out of order", func() {
				batch := days(day0, 3)
				So(store.Append(ctx, batch[2], batch[0]), ShouldBeNil)
				So(store.Append(ctx, batch[1]), ShouldBeNil)

				Convey("Then List returns them sorted and intact", func() {
					got, err := store.List(ctx)
					So(err, ShouldBeNil)
					So(got, ShouldHaveLength, 3)
					for i := range got {
						So(got[i].Date(), ShouldEqual, batch[i].Date())
						So(got[i].Entries(), ShouldResemble, batch[i].Entries())
					}
					dates, err := store.Dates(ctx)
					So(err, ShouldBeNil)
					So(dates, ShouldHaveLength, 3)
					So(dates[0], ShouldEqual, day0)
				})

				Convey("Then reopening the store loads the same days", func() {
					So(store.Close(), ShouldBeNil)
					again := open(t, dir)
					defer again.Close()
					n, err := again.Count(ctx)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 3)
				})
			})

			Convey("When a batch repeats a stored date", func() {
				So(store.Append(ctx, days(day0, 2)...), ShouldBeNil)
				err := store.Append(ctx, days(day0.AddDate(0, 0, 1), 3)...)

				Convey("Then the whole batch is rejected", func() {
					So(errors.Is(err, ErrDuplicateDate), ShouldBeTrue)
					n, _ := store.Count(ctx)
					So(n, ShouldEqual, 2)
				})
			})

			Convey("When a batch repeats a date internally", func() {
				d := days(day0, 1)[0]
				err := store.Append(ctx, d, d)
				So(errors.Is(err, ErrDuplicateDate), ShouldBeTrue)
				n, _ := store.Count(ctx)
				So(n, ShouldEqual, 0)
			})

			Convey("When the batch is empty", func() {
				So(store.Append(ctx), ShouldBeNil)
			})
		})
	}
}

func TestOpen(t *testing.T) {
	Convey("Given an unknown driver", t, func() {
		_, err := Open(context.Background(), "bolt", filepath.Join(t.TempDir(), "x"))
		So(errors.Is(err, ErrUnknownDriver), ShouldBeTrue)
	})

	Convey("Given a CSV file with a damaged day", t, func() {
		path := filepath.Join(t.TempDir(), "snapshots.csv")
		content := "date,rank,player,score\n2025-04-01,1,a,10\n2025-04-01,2,b,5\n"
		So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)

		_, err := NewCSVStore(path)
		So(errors.Is(err, ErrCorrupt), ShouldBeTrue)
	})

	Convey("Given a closed CSV store", t, func() {
		s, err := NewCSVStore(filepath.Join(t.TempDir(), "s.csv"))
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)
		So(errors.Is(s.Append(context.Background(), days(day0, 1)...), ErrClosed), ShouldBeTrue)
	})
}

func TestCSVStoreSharedFile(t *testing.T) {
	Convey("Given two CSV store handles on one file", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "snapshots.csv")
		cli, err := NewCSVStore(path)
		So(err, ShouldBeNil)
		serve, err := NewCSVStore(path)
		So(err, ShouldBeNil)
		batch := days(day0, 2)

		Convey("When both admit the same date", func() {
			So(cli.Append(ctx, batch[0]), ShouldBeNil)
			err := serve.Append(ctx, batch[0])

			Convey("Then the second handle rejects it", func() {
				So(errors.Is(err, ErrDuplicateDate), ShouldBeTrue)
				n, err := serve.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When each admits a different date", func() {
			So(cli.Append(ctx, batch[0]), ShouldBeNil)
			So(serve.Append(ctx, batch[1]), ShouldBeNil)

			Convey("Then both days survive on disk", func() {
				again, err := NewCSVStore(path)
				So(err, ShouldBeNil)
				dates, err := again.Dates(ctx)
				So(err, ShouldBeNil)
				So(dates, ShouldResemble, []time.Time{batch[0].Date(), batch[1].Date()})
			})

			Convey("Then the other handle reads the new day", func() {
				got, err := cli.List(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 2)
			})
		})
	})
}
