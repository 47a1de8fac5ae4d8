package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
)

// export mirrors the subset of a chat export the parser reads.
type export struct {
	Messages []message `json:"messages"`
}

type message struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	Date string          `json:"date"`
	Text json.RawMessage `json:"text"`
}

// messageTimeLayouts are the timestamp forms seen in exports.
var messageTimeLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	model.DateLayout,
}

// ParseExport reads a chat export and returns one snapshot per leaderboard
// message, sorted by date. Messages without ranked rows are skipped. Any
// malformed leaderboard or repeated date fails the whole export.
func (p *Parser) ParseExport(r io.Reader) ([]snapshot.Snapshot, error) {
	var doc export
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadExport, err)
	}

	var out []snapshot.Snapshot
	for _, m := range doc.Messages {
		if m.Type != "" && m.Type != "message" {
			continue
		}
		text, err := flatten(m.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", ErrBadExport, m.ID, err)
		}
		date, rows, err := scan(text)
		if errors.Is(err, ErrNoLeaderboard) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", m.ID, err)
		}
		if date.IsZero() {
			if date, err = messageDate(m.Date); err != nil {
				return nil, fmt.Errorf("message %d: %w", m.ID, err)
			}
		}
		snap, err := snapshot.Validate(date, rows)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", m.ID, err)
		}
		out = append(out, snap)
	}
	if len(out) == 0 {
		return nil, ErrNoLeaderboard
	}
	snapshot.SortByDate(out)
	if err := snapshot.CheckUnique(out); err != nil {
		return nil, err
	}
	return out, nil
}

// flatten accepts either a plain string or an array of strings and
// formatted entities ({"type": "bold", "text": "..."}).
func flatten(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, part := range parts {
		var str string
		if err := json.Unmarshal(part, &str); err == nil {
			b.WriteString(str)
			continue
		}
		var entity struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &entity); err != nil {
			return "", err
		}
		b.WriteString(entity.Text)
	}
	return b.String(), nil
}

func messageDate(s string) (time.Time, error) {
	for _, layout := range messageTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: message date %q", ErrNoDate, s)
}
