package journal

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/kimai-report/pkg/timew"
)

// Tracker is the part of the Timewarrior client repair needs.
type Tracker interface {
	Export(ctx context.Context, filter ...string) ([]timew.Session, error)
	Tag(ctx context.Context, sessionID, tag string) error
}

// RepairResult describes what happened to one journal entry.
type RepairResult struct {
	Entry   Entry
	Tag     string
	Status  string // "tagged", "ok" or "missing"
	Session string
}

// Repair makes sure every journalled interval carries its record tag. The
// format func renders the tag for a record id.
func Repair(ctx context.Context, j *Journal, tracker Tracker, format func(id int) (string, error), logger zerolog.Logger) ([]RepairResult, error) {
	var results []RepairResult
	for _, e := range j.List() {
		tag, err := format(e.RecordID)
		if err != nil {
			return results, err
		}
		res := RepairResult{Entry: e, Tag: tag, Status: "missing"}

		sessions, err := tracker.Export(ctx, exportRange(e)...)
		if err != nil {
			return results, fmt.Errorf("exporting interval for record %d: %w", e.RecordID, err)
		}
		for _, s := range sessions {
			if !s.Start.Equal(e.Start) {
				continue
			}
			res.Session = s.ID
			if slices.Contains(s.Tags, tag) {
				res.Status = "ok"
				break
			}
			if err := tracker.Tag(ctx, s.ID, tag); err != nil {
				return results, fmt.Errorf("tagging @%s: %w", s.ID, err)
			}
			logger.Info().Str("session", s.ID).Str("tag", tag).Msg("repaired write-back")
			res.Status = "tagged"
			break
		}
		results = append(results, res)
	}
	return results, nil
}

func exportRange(e Entry) []string {
	end := e.End
	if end.IsZero() {
		end = e.Start.Add(time.Second)
	}
	return []string{timew.FormatTime(e.Start), "-", timew.FormatTime(end)}
}
