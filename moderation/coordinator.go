// Package moderation removes messages that carry encoded invite codes and
// keeps the violation ledger.
package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/detector"
	"github.com/linesmerrill/invite-bot/models"
)

// DefaultNoticeTTL is how long an educational notice stays in a channel
const DefaultNoticeTTL = 2 * time.Minute

// Messenger is the slice of the chat client the coordinator calls back into
type Messenger interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// SendNotice posts the educational notice and returns its message id
	SendNotice(ctx context.Context, channelID string) (string, error)
	RetractNotice(ctx context.Context, channelID, messageID string) error
}

// Reporter forwards a violation to the moderators' log channel
type Reporter interface {
	ReportViolation(ctx context.Context, r Report) error
}

// Report is what moderators see for every ledger entry
type Report struct {
	UserID     string
	Username   string
	ChannelID  string
	Violations int
	Deleted    bool
	Notified   bool
	Content    string
}

// Message is an inbound chat message
type Message struct {
	ID         string
	ChannelID  string
	AuthorID   string
	AuthorName string
	IsAdmin    bool
	IsBot      bool
	Content    string
}

// Verdict describes what was done with a message
type Verdict struct {
	Matches    []detector.Match
	Deleted    bool
	Notified   bool
	Violations int
}

// Flagged reports whether the message carried a suspicious token
func (v Verdict) Flagged() bool {
	return len(v.Matches) > 0
}

// Options toggles the side effects of a detection
type Options struct {
	DeleteMessages bool
	Notify         bool
	ExemptChannels []string
	NoticeTTL      time.Duration
}

// Coordinator applies the moderation policy to inbound messages
type Coordinator struct {
	scanner   *detector.Scanner
	ledger    databases.ViolationDatabase
	messenger Messenger
	reporter  Reporter
	opts      Options
	exempt    map[string]struct{}

	mu      sync.Mutex
	pending map[string]*pendingNotice
}

type pendingNotice struct {
	messageID string
	timer     *time.Timer
}

// NewCoordinator builds a coordinator. reporter may be nil.
func NewCoordinator(scanner *detector.Scanner, ledger databases.ViolationDatabase, messenger Messenger, reporter Reporter, opts Options) *Coordinator {
	if scanner == nil {
		scanner = detector.NewScanner(nil)
	}
	if opts.NoticeTTL <= 0 {
		opts.NoticeTTL = DefaultNoticeTTL
	}
	exempt := make(map[string]struct{}, len(opts.ExemptChannels))
	for _, id := range opts.ExemptChannels {
		exempt[id] = struct{}{}
	}
	return &Coordinator{
		scanner:   scanner,
		ledger:    ledger,
		messenger: messenger,
		reporter:  reporter,
		opts:      opts,
		exempt:    exempt,
		pending:   make(map[string]*pendingNotice),
	}
}

// HandleMessage scans msg and acts on a detection. The ledger entry is
// written even when deleting or notifying failed; only a ledger failure is
// returned as an error.
func (c *Coordinator) HandleMessage(ctx context.Context, msg Message) (Verdict, error) {
	if msg.IsBot || msg.IsAdmin {
		return Verdict{}, nil
	}
	if _, ok := c.exempt[msg.ChannelID]; ok {
		return Verdict{}, nil
	}

	verdict := Verdict{Matches: c.scanner.Scan(msg.Content)}
	if !verdict.Flagged() {
		return verdict, nil
	}

	log := zap.S().With("userId", msg.AuthorID, "channelId", msg.ChannelID, "messageId", msg.ID)
	log.Infow("encoded invite code detected", "matches", len(verdict.Matches))

	if c.opts.DeleteMessages {
		if err := c.messenger.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			log.Warnw("could not delete flagged message", "error", err)
		} else {
			verdict.Deleted = true
		}
	}

	if c.opts.Notify {
		verdict.Notified = c.notify(ctx, log, msg.ChannelID)
	}

	count, err := c.ledger.Append(ctx, models.Violation{
		UserID:           msg.AuthorID,
		Username:         msg.AuthorName,
		Timestamp:        time.Now().UTC(),
		MessageContent:   msg.Content,
		MessageDeleted:   verdict.Deleted,
		NotificationSent: verdict.Notified,
	})
	if err != nil {
		return verdict, fmt.Errorf("recording violation: %w", err)
	}
	verdict.Violations = count
	log.Infow("violation recorded", "violations", count, "deleted", verdict.Deleted, "notified", verdict.Notified)

	if c.reporter != nil {
		err := c.reporter.ReportViolation(ctx, Report{
			UserID:     msg.AuthorID,
			Username:   msg.AuthorName,
			ChannelID:  msg.ChannelID,
			Violations: count,
			Deleted:    verdict.Deleted,
			Notified:   verdict.Notified,
			Content:    msg.Content,
		})
		if err != nil {
			log.Warnw("could not send moderation report", "error", err)
		}
	}
	return verdict, nil
}

// notify posts one notice per channel at a time. The channel slot is taken
// before sending so concurrent detections cannot both post.
func (c *Coordinator) notify(ctx context.Context, log *zap.SugaredLogger, channelID string) bool {
	c.mu.Lock()
	if _, ok := c.pending[channelID]; ok {
		c.mu.Unlock()
		log.Debugw("notice already pending in channel")
		return false
	}
	slot := &pendingNotice{}
	c.pending[channelID] = slot
	c.mu.Unlock()

	messageID, err := c.messenger.SendNotice(ctx, channelID)
	if err != nil {
		log.Warnw("could not send moderation notice", "error", err)
		c.mu.Lock()
		delete(c.pending, channelID)
		c.mu.Unlock()
		return false
	}

	c.mu.Lock()
	if c.pending[channelID] != slot {
		// Close ran while the notice was being sent
		c.mu.Unlock()
		if err := c.messenger.RetractNotice(ctx, channelID, messageID); err != nil {
			log.Warnw("could not retract moderation notice", "error", err)
		}
		return true
	}
	slot.messageID = messageID
	slot.timer = time.AfterFunc(c.opts.NoticeTTL, func() { c.retract(channelID, slot) })
	c.mu.Unlock()
	return true
}

func (c *Coordinator) retract(channelID string, slot *pendingNotice) {
	c.mu.Lock()
	if c.pending[channelID] != slot {
		c.mu.Unlock()
		return
	}
	delete(c.pending, channelID)
	c.mu.Unlock()

	if err := c.messenger.RetractNotice(context.Background(), channelID, slot.messageID); err != nil {
		zap.S().Warnw("could not retract moderation notice", "channelId", channelID, "error", err)
	}
}

// NoticeDeleted frees the channel slot when a notice disappears before its
// timer fires, for example when a moderator removes it by hand.
func (c *Coordinator) NoticeDeleted(channelID, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slot, ok := c.pending[channelID]
	if !ok || slot.messageID != messageID {
		return
	}
	if slot.timer != nil {
		slot.timer.Stop()
	}
	delete(c.pending, channelID)
}

// PendingNotices returns how many channels currently show a notice
func (c *Coordinator) PendingNotices() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close retracts every notice still on screen. A notice still being sent is
// retracted by its sender once the send returns.
func (c *Coordinator) Close(ctx context.Context) {
	type shown struct{ channelID, messageID string }

	c.mu.Lock()
	var retract []shown
	for channelID, slot := range c.pending {
		if slot.timer == nil {
			continue
		}
		// a timer that already fired finds its slot gone and does nothing
		slot.timer.Stop()
		retract = append(retract, shown{channelID: channelID, messageID: slot.messageID})
	}
	c.pending = make(map[string]*pendingNotice)
	c.mu.Unlock()

	for _, n := range retract {
		if err := c.messenger.RetractNotice(ctx, n.channelID, n.messageID); err != nil {
			zap.S().Warnw("could not retract moderation notice", "channelId", n.channelID, "error", err)
		}
	}
}
