package testdays

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
)

// postedAt is the time of day a leaderboard message is posted.
const postedAt = "T21:00:00"

type exportMessage struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	Date string `json:"date"`
	Text any    `json:"text"`
}

// Paste renders a snapshot the way a leaderboard is posted to the chat.
func Paste(s snapshot.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily leaderboard %s\n\n", model.FormatDay(s.Date()))
	for _, e := range s.Entries() {
		fmt.Fprintf(&b, "%d. %s - %s pts\n", e.Rank, e.Player, thousands(e.Score))
	}
	return b.String()
}

// WriteExport writes snaps as a chat export with one message per day. Every
// other day the leaderboard is split into formatted entities, and a chatter
// message precedes each one.
func WriteExport(w io.Writer, name string, snaps []snapshot.Snapshot) error {
	msgs := make([]exportMessage, 0, 2*len(snaps))
	for i, s := range snaps {
		day := model.FormatDay(s.Date())
		msgs = append(msgs, exportMessage{ID: 2*i + 1, Type: "message", Date: day + "T09:00:00", Text: "gm"})
		var text any = Paste(s)
		if i%2 == 1 {
			head, rows, _ := strings.Cut(Paste(s), "\n")
			text = []any{map[string]string{"type": "bold", "text": head}, "\n" + rows}
		}
		msgs = append(msgs, exportMessage{ID: 2*i + 2, Type: "message", Date: day + postedAt, Text: text})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	return enc.Encode(map[string]any{"name": name, "type": "public_supergroup", "messages": msgs})
}

func thousands(v int64) string {
	s := strconv.FormatInt(v, 10)
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}
