package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"career-chat/internal/storage"
)

// DailyStats summarizes the transcript log for one calendar day.
type DailyStats struct {
	Date           string         `json:"date"`
	TotalMessages  int            `json:"total_messages"`
	UniqueSessions int            `json:"unique_sessions"`
	BySession      map[string]int `json:"by_session"`
	// AvgReplyChars is the mean length of the model's replies.
	AvgReplyChars int `json:"avg_reply_chars"`
}

// AnalyzeDay counts the exchanges in events that fall on targetDate's day,
// in targetDate's location.
func AnalyzeDay(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:      startOfDay.Format("2006-01-02"),
		BySession: make(map[string]int),
	}

	replyChars := 0
	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.UserMessage == "" {
			continue
		}
		stats.TotalMessages++
		stats.BySession[event.SessionID]++
		replyChars += len([]rune(event.AssistantResponse))
	}

	stats.UniqueSessions = len(stats.BySession)
	if stats.TotalMessages > 0 {
		stats.AvgReplyChars = replyChars / stats.TotalMessages
	}
	return stats
}

// Summary renders a short human-readable report listing the busiest sessions first.
func (ds *DailyStats) Summary(top int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage for %s: %d messages in %d sessions, average reply %d chars",
		ds.Date, ds.TotalMessages, ds.UniqueSessions, ds.AvgReplyChars)

	ids := make([]string, 0, len(ds.BySession))
	for id := range ds.BySession {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ds.BySession[ids[i]] != ds.BySession[ids[j]] {
			return ds.BySession[ids[i]] > ds.BySession[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if top > 0 && len(ids) > top {
		ids = ids[:top]
	}
	for _, id := range ids {
		fmt.Fprintf(&b, "\n- %s: %d", id, ds.BySession[id])
	}
	return b.String()
}
