// Package types provides shared types for the boardcache module.
// This package breaks import cycles between pkg/boardcache and internal/cache.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Leaderboard is a private leaderboard snapshot as served by the upstream API.
// Fields the module does not model are kept in the raw payload and written
// back unchanged by MarshalJSON.
type Leaderboard struct {
	Members map[string]Member `json:"members"`
	Event   string            `json:"event,omitempty"`
	OwnerID int64             `json:"owner_id,omitempty"`

	raw json.RawMessage
}

// Member is a single participant record.
type Member struct {
	CompletionDayLevel map[string]map[string]StarCompletion `json:"completion_day_level,omitempty"`
	Name               string                               `json:"name"`
	ID                 int64                                `json:"id"`
	Stars              int                                  `json:"stars"`
	LocalScore         int                                  `json:"local_score"`
	GlobalScore        int                                  `json:"global_score"`
	LastStarTS         int64                                `json:"last_star_ts"`
}

// StarCompletion records when a star was earned.
type StarCompletion struct {
	GetStarTS int64 `json:"get_star_ts"`
	StarIndex int64 `json:"star_index"`
}

// ParseLeaderboard decodes an upstream payload. The payload must be a JSON
// object carrying a members mapping.
func ParseLeaderboard(data []byte) (*Leaderboard, error) {
	data = bytes.TrimSpace(data)

	var lb Leaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return nil, err
	}
	if lb.Members == nil {
		return nil, fmt.Errorf("payload has no members mapping")
	}

	lb.raw = append(json.RawMessage(nil), data...)
	return &lb, nil
}

// UnmarshalJSON decodes the modeled fields and keeps the original bytes.
func (l *Leaderboard) UnmarshalJSON(data []byte) error {
	type plain Leaderboard
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Leaderboard(p)
	l.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON returns the upstream payload verbatim when one is available.
func (l Leaderboard) MarshalJSON() ([]byte, error) {
	if len(l.raw) > 0 {
		return l.raw, nil
	}
	type plain Leaderboard
	return json.Marshal(plain(l))
}

// MemberCount returns the number of member entries.
func (l *Leaderboard) MemberCount() int {
	if l == nil {
		return 0
	}
	return len(l.Members)
}

// Standings returns members ordered by local score, then stars, then the
// earliest last star.
func (l *Leaderboard) Standings() []Member {
	if l == nil {
		return nil
	}

	out := make([]Member, 0, len(l.Members))
	for _, m := range l.Members {
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LocalScore != b.LocalScore {
			return a.LocalScore > b.LocalScore
		}
		if a.Stars != b.Stars {
			return a.Stars > b.Stars
		}
		if a.LastStarTS != b.LastStarTS {
			// Members that never earned a star sort last.
			if a.LastStarTS == 0 || b.LastStarTS == 0 {
				return b.LastStarTS == 0
			}
			return a.LastStarTS < b.LastStarTS
		}
		return a.ID < b.ID
	})

	return out
}

// DisplayName returns the member's name or the upstream's anonymous label.
func (m Member) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("(anonymous user #%d)", m.ID)
}

// Credentials identify the leaderboard and authenticate against the upstream.
type Credentials struct {
	LeaderboardCode string
	SessionCookie   SecretString
}

// IsComplete reports whether both the code and the session cookie are set.
func (c Credentials) IsComplete() bool {
	return c.LeaderboardCode != "" && !c.SessionCookie.IsEmpty()
}

// AgeUnknown is returned by age accessors when no successful fetch has happened.
const AgeUnknown time.Duration = -1

// Snapshot is the published cache state. The fields are always replaced
// together. Seq counts successful fetches and is zero until the first one.
type Snapshot struct {
	Data      *Leaderboard
	FetchedAt time.Time
	Err       string
	Seq       uint64
}

// HasData reports whether a successful fetch has been stored.
func (s *Snapshot) HasData() bool {
	return s != nil && s.Data != nil
}

// Age returns the time elapsed since FetchedAt, or AgeUnknown.
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s == nil || s.FetchedAt.IsZero() {
		return AgeUnknown
	}
	return now.Sub(s.FetchedAt)
}

// Version identifies the stored payload. It changes on every successful
// fetch, even when two fetches report the same time.
func (s *Snapshot) Version() string {
	if s == nil || (s.Seq == 0 && s.FetchedAt.IsZero()) {
		return ""
	}
	return fmt.Sprintf("%d-%d", s.Seq, s.FetchedAt.UnixNano())
}

// Outcome classifies a refresh attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeConfiguration
	OutcomeTransport
	OutcomePermission
	OutcomeParse
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeConfiguration:
		return "configuration"
	case OutcomeTransport:
		return "transport"
	case OutcomePermission:
		return "permission"
	case OutcomeParse:
		return "parse"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// RefreshResult describes one completed refresh attempt.
type RefreshResult struct {
	Snapshot Snapshot
	Outcome  Outcome
	Elapsed  time.Duration
	Code     string
}
