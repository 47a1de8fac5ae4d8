package testdays_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/okian/ladder/internal/adapters/ingest"
	"github.com/okian/ladder/internal/testdays"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSeason(t *testing.T) {
	Convey("Given a generated season", t, func() {
		cfg := testdays.Config{Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Days: 9, Seed: 3, SkipEvery: 4}
		a := testdays.Season(cfg)
		b := testdays.Season(cfg)

		Convey("Then it is deterministic and skips days", func() {
			So(len(a), ShouldEqual, len(b))
			So(len(a), ShouldBeLessThan, 9)
			for i := range a {
				So(a[i].Entries(), ShouldResemble, b[i].Entries())
			}
		})

		Convey("Then its export parses back to the same snapshots", func() {
			var buf bytes.Buffer
			So(testdays.WriteExport(&buf, "daily", a), ShouldBeNil)
			snaps, err := ingest.NewParser().ParseExport(&buf)
			So(err, ShouldBeNil)
			So(snaps, ShouldHaveLength, len(a))
			for i := range a {
				So(snaps[i].Date(), ShouldEqual, a[i].Date())
				So(snaps[i].Entries(), ShouldResemble, a[i].Entries())
			}
		})

		Convey("Then a single paste parses back", func() {
			snap, err := ingest.NewParser().ParsePaste(testdays.Paste(a[0]))
			So(err, ShouldBeNil)
			So(snap.Entries(), ShouldResemble, a[0].Entries())
		})
	})
}
