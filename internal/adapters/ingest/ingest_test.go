package ingest_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/okian/ladder/internal/adapters/ingest"
	"github.com/okian/ladder/internal/domain/snapshot"
	. "github.com/smartystreets/goconvey/convey"
)

// board renders a 30-row leaderboard with an optional header.
func board(header string, offset int) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header + "\n\n")
	}
	for i := 1; i <= snapshot.RanksPerDay; i++ {
		fmt.Fprintf(&b, "%d. player %02d - %s\n", i, i+offset, thousands(int64(50_000-i*1_000)))
	}
	return b.String()
}

func thousands(v int64) string {
	s := fmt.Sprint(v)
	if len(s) <= 3 {
		return s
	}
	return s[:len(s)-3] + "," + s[len(s)-3:]
}

func TestParsePaste(t *testing.T) {
	Convey("Given a pasted leaderboard with a date header", t, func() {
		p := ingest.NewParser()
		snap, err := p.ParsePaste(board("Daily ranking 2025-03-14", 0))

		Convey("Then it becomes a validated snapshot", func() {
			So(err, ShouldBeNil)
			So(snap.Date(), ShouldEqual, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC))
			So(snap.Len(), ShouldEqual, 30)
			So(snap.At(0).Player, ShouldEqual, "player 01")
			So(snap.At(0).Score, ShouldEqual, 49_000)
		})
	})

	Convey("Given a day-first header and mixed separators", t, func() {
		text := strings.Replace(board("Results 14/03/2025", 0), "2. player 02 -", "2) player 02 —", 1)
		snap, err := ingest.NewParser().ParsePaste(text)
		So(err, ShouldBeNil)
		So(snap.Date().Day(), ShouldEqual, 14)
		So(snap.At(1).Player, ShouldEqual, "player 02")
	})

	Convey("Given no header", t, func() {
		Convey("When no fallback date is configured", func() {
			_, err := ingest.NewParser().ParsePaste(board("", 0))
			So(errors.Is(err, ingest.ErrNoDate), ShouldBeTrue)
		})

		Convey("When a fallback date is configured", func() {
			day := time.Date(2025, 5, 2, 18, 30, 0, 0, time.UTC)
			snap, err := ingest.NewParser(ingest.WithFallbackDate(day)).ParsePaste(board("", 0))
			So(err, ShouldBeNil)
			So(snap.Date(), ShouldEqual, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC))
		})
	})

	Convey("Given a leaderboard missing a row", t, func() {
		text := strings.Replace(board("2025-03-14", 0), "17. player 17 - 33,000\n", "", 1)
		_, err := ingest.NewParser().ParsePaste(text)

		Convey("Then validation names the missing rank", func() {
			var verr *snapshot.ValidationError
			So(errors.As(err, &verr), ShouldBeTrue)
			So(verr.Missing, ShouldResemble, []int{17})
			So(errors.Is(err, snapshot.ErrMalformed), ShouldBeTrue)
		})
	})

	Convey("Given text without any ranked lines", t, func() {
		_, err := ingest.NewParser().ParsePaste("good morning everyone")
		So(errors.Is(err, ingest.ErrNoLeaderboard), ShouldBeTrue)
	})
}

func exportJSON(messages ...map[string]any) string {
	b, _ := json.Marshal(map[string]any{"name": "daily", "messages": messages})
	return string(b)
}

func TestParseExport(t *testing.T) {
	Convey("Given an export with chatter and two leaderboards", t, func() {
		doc := exportJSON(
			map[string]any{"id": 1, "type": "message", "date": "2025-03-02T09:00:00", "text": "morning"},
			map[string]any{"id": 2, "type": "message", "date": "2025-03-02T21:00:00", "text": board("", 0)},
			map[string]any{"id": 3, "type": "service", "date": "2025-03-02T21:05:00", "text": ""},
			map[string]any{"id": 4, "type": "message", "date": "2025-03-03T09:00:00", "text": []any{
				map[string]any{"type": "bold", "text": "Leaderboard 2025-03-01"},
				"\n" + board("", 5),
			}},
		)
		snaps, err := ingest.NewParser().ParseExport(strings.NewReader(doc))

		Convey("Then every leaderboard is returned in date order", func() {
			So(err, ShouldBeNil)
			So(snaps, ShouldHaveLength, 2)
			So(snaps[0].Date().Day(), ShouldEqual, 1)
			So(snaps[0].At(0).Player, ShouldEqual, "player 06")
			So(snaps[1].Date().Day(), ShouldEqual, 2)
		})
	})

	Convey("Given an export that posts the same day twice", t, func() {
		doc := exportJSON(
			map[string]any{"id": 1, "date": "2025-03-02T09:00:00", "text": board("", 0)},
			map[string]any{"id": 2, "date": "2025-03-02T10:00:00", "text": board("", 0)},
		)
		_, err := ingest.NewParser().ParseExport(strings.NewReader(doc))
		So(errors.Is(err, snapshot.ErrDuplicateDate), ShouldBeTrue)
	})

	Convey("Given an export where one leaderboard is malformed", t, func() {
		bad := strings.Replace(board("", 0), "30. player 30 - 20,000\n", "29. player 30 - 20,000\n", 1)
		doc := exportJSON(
			map[string]any{"id": 1, "date": "2025-03-02T09:00:00", "text": board("", 0)},
			map[string]any{"id": 7, "date": "2025-03-03T09:00:00", "text": bad},
		)
		_, err := ingest.NewParser().ParseExport(strings.NewReader(doc))

		Convey("Then the whole export is rejected", func() {
			So(errors.Is(err, snapshot.ErrMalformed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "message 7")
		})
	})

	Convey("Given input that is not JSON", t, func() {
		_, err := ingest.NewParser().ParseExport(strings.NewReader("not json"))
		So(errors.Is(err, ingest.ErrBadExport), ShouldBeTrue)
	})

	Convey("Given an export with no leaderboards", t, func() {
		_, err := ingest.NewParser().ParseExport(strings.NewReader(exportJSON()))
		So(errors.Is(err, ingest.ErrNoLeaderboard), ShouldBeTrue)
	})
}
