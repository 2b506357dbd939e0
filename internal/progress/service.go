package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/results"
)

// Supported board windows.
const (
	WindowWeekly  = "weekly"
	WindowAllTime = "all_time"
)

var defaultWindows = []string{WindowWeekly, WindowAllTime}

// Entry is one user's standing on a certification board.
type Entry struct {
	Rank           int       `json:"rank,omitempty"`
	UserID         uuid.UUID `json:"user_id"`
	BestPercentage int       `json:"best_percentage"`
	Attempts       int       `json:"attempts"`
	TimedOut       int       `json:"timed_out"`
	Accuracy       float64   `json:"accuracy"`
	CorrectTotal   int       `json:"-"`
	QuestionTotal  int       `json:"-"`
}

// ServiceOptions configures board behavior.
type ServiceOptions struct {
	TopN           int
	Windows        []string
	WindowTTL      time.Duration
	RedisKeyPrefix string
	Now            func() time.Time
}

// Service keeps per-certification progress boards in Redis. Each board is a
// sorted set of best percentages plus a hash of running totals per user.
type Service struct {
	redis   boardStore
	logger  zerolog.Logger
	topN    int
	windows []string
	ttl     time.Duration
	prefix  string
	now     func() time.Time
}

// NewService constructs a progress service instance.
func NewService(client *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	return newService(clientStore{client}, logger, opts)
}

func newService(store boardStore, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	windows := opts.Windows
	if len(windows) == 0 {
		windows = defaultWindows
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "progress"
	}
	ttl := opts.WindowTTL
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		redis:   store,
		logger:  logger.With().Str("component", "progress").Logger(),
		topN:    topN,
		windows: windows,
		ttl:     ttl,
		prefix:  prefix,
		now:     now,
	}
}

// RecordAttempt folds a completed attempt into every window. Anonymous
// attempts are not ranked.
func (s *Service) RecordAttempt(ctx context.Context, attempt results.Attempt) error {
	if attempt.UserID == uuid.Nil {
		return nil
	}

	at := attempt.CompletedAt
	if at.IsZero() {
		at = s.now()
	}

	for _, window := range s.windows {
		if err := s.updateWindow(ctx, attempt, window, s.boardKey(attempt.CertificationID, window, at)); err != nil {
			return fmt.Errorf("update %s board: %w", window, err)
		}
	}
	return nil
}

// Top returns the highest best percentages on a certification board.
func (s *Service) Top(ctx context.Context, certificationID, window string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	zKey := s.boardKey(certificationID, window, s.now())
	members, err := s.redis.ZRevRangeWithScores(ctx, zKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch board: %w", err)
	}

	entries := make([]Entry, 0, len(members))
	for i, z := range members {
		member, _ := z.Member.(string)
		userID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Warn().Str("member", member).Msg("skipping malformed board member")
			continue
		}
		meta, err := s.redis.HGetAll(ctx, metaKey(zKey, userID)).Result()
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to read board metadata")
			continue
		}
		entry := entryFromMeta(userID, meta)
		entry.Rank = i + 1
		entry.BestPercentage = int(z.Score)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Progress returns one user's all-time standing; ok is false when the user
// has no completed attempts for the certification.
func (s *Service) Progress(ctx context.Context, certificationID string, userID uuid.UUID) (Entry, bool, error) {
	zKey := s.boardKey(certificationID, WindowAllTime, s.now())

	best, err := s.redis.ZScore(ctx, zKey, userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("fetch best score: %w", err)
	}
	rank, err := s.redis.ZRevRank(ctx, zKey, userID.String()).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("fetch rank: %w", err)
	}
	meta, err := s.redis.HGetAll(ctx, metaKey(zKey, userID)).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("fetch totals: %w", err)
	}

	entry := entryFromMeta(userID, meta)
	entry.Rank = int(rank) + 1
	entry.BestPercentage = int(best)
	return entry, true, nil
}

func (s *Service) updateWindow(ctx context.Context, attempt results.Attempt, window, zKey string) error {
	mKey := metaKey(zKey, attempt.UserID)
	report := attempt.Report

	return s.redis.Atomic(ctx, func(pipe boardWrites) {
		pipe.ZAddGT(ctx, zKey, redis.Z{Score: float64(report.Percentage), Member: attempt.UserID.String()})
		pipe.HIncrBy(ctx, mKey, "attempts", 1)
		pipe.HIncrBy(ctx, mKey, "correct", int64(report.Correct))
		pipe.HIncrBy(ctx, mKey, "questions", int64(report.Total))
		if report.TimedOut {
			pipe.HIncrBy(ctx, mKey, "timed_out", 1)
		}
		if window != WindowAllTime {
			pipe.Expire(ctx, zKey, s.ttl)
			pipe.Expire(ctx, mKey, s.ttl)
		}
	})
}

// boardKey names the sorted set for a window. Weekly boards are bucketed by
// ISO week so they roll over on Monday.
func (s *Service) boardKey(certificationID, window string, at time.Time) string {
	if window == WindowWeekly {
		year, week := at.UTC().ISOWeek()
		return fmt.Sprintf("%s:%s:%s:%d-W%02d", s.prefix, certificationID, window, year, week)
	}
	return fmt.Sprintf("%s:%s:%s", s.prefix, certificationID, window)
}

func metaKey(boardKey string, userID uuid.UUID) string {
	return fmt.Sprintf("%s:meta:%s", boardKey, userID.String())
}

func entryFromMeta(userID uuid.UUID, data map[string]string) Entry {
	entry := Entry{UserID: userID}
	entry.Attempts = parseInt(data["attempts"])
	entry.TimedOut = parseInt(data["timed_out"])
	entry.CorrectTotal = parseInt(data["correct"])
	entry.QuestionTotal = parseInt(data["questions"])
	if entry.QuestionTotal > 0 {
		entry.Accuracy = float64(entry.CorrectTotal) / float64(entry.QuestionTotal)
	}
	return entry
}

// IsValidWindow reports whether window names a supported board.
func IsValidWindow(window string) bool {
	switch window {
	case WindowWeekly, WindowAllTime:
		return true
	default:
		return false
	}
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
