package bot

import (
	"context"
	"time"

	"github.com/linesmerrill/invite-bot/moderation"
)

// Notifier posts the moderation notice, the moderators' report and the
// scheduled announcement
type Notifier struct {
	Chat                Chat
	LogChannel          string
	AnnouncementChannel string
	RootCommand         string
	Now                 func() time.Time
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

func (n *Notifier) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return n.Chat.DeleteMessage(channelID, messageID)
}

func (n *Notifier) SendNotice(ctx context.Context, channelID string) (string, error) {
	return n.Chat.SendEmbed(channelID, noticeEmbed())
}

func (n *Notifier) RetractNotice(ctx context.Context, channelID, messageID string) error {
	return n.Chat.DeleteMessage(channelID, messageID)
}

func (n *Notifier) ReportViolation(ctx context.Context, r moderation.Report) error {
	_, err := n.Chat.SendEmbed(n.LogChannel, reportEmbed(r, n.now()))
	return err
}

func (n *Notifier) SendAnnouncement(ctx context.Context) error {
	_, err := n.Chat.SendEmbed(n.AnnouncementChannel, announcementEmbed(n.RootCommand))
	return err
}
