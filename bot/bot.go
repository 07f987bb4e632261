// Package bot connects the claim and moderation coordinators to the chat
// gateway.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/api/scheduler"
	"github.com/linesmerrill/invite-bot/claims"
	"github.com/linesmerrill/invite-bot/config"
	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/moderation"
)

const rootCommandDescription = "Start your Bitcoin City 2100 journey"

// eventTimeout bounds the work done for a single gateway event
const eventTimeout = time.Minute

// Stores groups the persistent state the bot works on
type Stores struct {
	Invites     databases.InviteCodeDatabase
	Quota       databases.QuotaDatabase
	Eligibility databases.EligibilityDatabase
	Violations  databases.ViolationDatabase
}

// Bot owns the gateway session and routes its events
type Bot struct {
	conf       *config.Config
	session    *discordgo.Session
	admin      *Admin
	journey    *Journey
	notifier   *Notifier
	moderation *moderation.Coordinator
	announcer  *scheduler.Scheduler
}

// New creates the session and wires every handler. The session is not opened.
func New(conf *config.Config, stores Stores) (*Bot, error) {
	session, err := discordgo.New("Bot " + conf.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers

	chat := sessionChat{s: session}
	b := &Bot{
		conf:    conf,
		session: session,
		admin: &Admin{
			Prefix:      conf.AdminPrefix,
			Chat:        chat,
			Invites:     stores.Invites,
			Quota:       stores.Quota,
			Eligibility: stores.Eligibility,
		},
		journey: &Journey{
			Responder: chat,
			Claims:    claims.NewCoordinator(stores.Invites, stores.Quota, stores.Eligibility, conf.IsInviteChannel),
		},
		notifier: &Notifier{
			Chat:                chat,
			LogChannel:          conf.LogChannel,
			AnnouncementChannel: conf.NotificationsChannel,
			RootCommand:         conf.RootCommand,
		},
	}

	var reporter moderation.Reporter
	if conf.LogChannel != "" {
		reporter = b.notifier
	}
	b.moderation = moderation.NewCoordinator(nil, stores.Violations, b.notifier, reporter, moderation.Options{
		DeleteMessages: conf.ModDeleteMessages,
		Notify:         conf.ModNotify,
		ExemptChannels: conf.ModExemptChannels,
		NoticeTTL:      time.Duration(conf.NoticeRetractAfter) * time.Second,
	})

	if conf.NotificationsChannel != "" && conf.NotificationsSchedule != "" {
		b.announcer, err = scheduler.NewScheduler(b.notifier, conf.NotificationsSchedule, conf.MinMessages,
			time.Duration(conf.CooldownMinutes)*time.Minute)
		if err != nil {
			return nil, fmt.Errorf("creating announcement scheduler: %w", err)
		}
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onMessageDelete)
	return b, nil
}

// Open connects to the gateway and starts the announcement schedule
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	if b.announcer != nil {
		if err := b.announcer.Start(); err != nil {
			b.session.Close()
			return fmt.Errorf("starting announcement scheduler: %w", err)
		}
	}
	return nil
}

// Close stops the schedule, retracts pending notices and disconnects
func (b *Bot) Close(ctx context.Context) error {
	if b.announcer != nil {
		b.announcer.Stop()
	}
	b.moderation.Close(ctx)
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	zap.S().Infow("bot started", "user", r.User.String(), "guilds", len(r.Guilds))
	if len(b.conf.InviteChannel) > 0 {
		zap.S().Infow("channel restriction active", "channels", b.conf.InviteChannel)
	} else {
		zap.S().Infow("no channel restriction, claims accepted in any channel")
	}

	_, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", []*discordgo.ApplicationCommand{
		{Name: b.conf.RootCommand, Description: rootCommandDescription},
	})
	if err != nil {
		zap.S().Errorw("failed to register slash commands", "error", err)
		return
	}
	zap.S().Infow("slash commands registered", "command", b.conf.RootCommand)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if i.ApplicationCommandData().Name == b.conf.RootCommand {
			b.journey.Prompt(i.Interaction)
		}
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == JourneyButtonID {
			b.journey.Accept(ctx, i.Interaction)
		}
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	if b.announcer != nil && m.ChannelID == b.conf.NotificationsChannel {
		b.announcer.MessageSeen()
	}

	isAdmin := b.isAdmin(s, m.Author.ID, m.ChannelID)
	handled := b.admin.Handle(ctx, AdminRequest{
		GuildID:      m.GuildID,
		ChannelID:    m.ChannelID,
		MessageID:    m.ID,
		AuthorID:     m.Author.ID,
		AuthorTag:    m.Author.String(),
		IsAdmin:      isAdmin,
		Content:      m.Content,
		MentionRoles: m.MentionRoles,
	})
	if handled {
		return
	}

	username := m.Author.Username
	if m.Member != nil {
		username = displayName(m.Member.Nick, m.Author)
	}
	_, err := b.moderation.HandleMessage(ctx, moderation.Message{
		ID:         m.ID,
		ChannelID:  m.ChannelID,
		AuthorID:   m.Author.ID,
		AuthorName: username,
		IsAdmin:    isAdmin,
		Content:    m.Content,
	})
	if err != nil {
		zap.S().Errorw("moderation failed", "messageId", m.ID, "channelId", m.ChannelID, "error", err)
	}
}

func (b *Bot) onMessageDelete(s *discordgo.Session, m *discordgo.MessageDelete) {
	b.moderation.NoticeDeleted(m.ChannelID, m.ID)
}

// isAdmin resolves administrator rights from the session state. Missing state
// counts as not an administrator.
func (b *Bot) isAdmin(s *discordgo.Session, userID, channelID string) bool {
	perms, err := s.UserChannelPermissions(userID, channelID)
	if err != nil {
		zap.S().Debugw("could not resolve permissions", "userId", userID, "channelId", channelID, "error", err)
		return false
	}
	return perms&discordgo.PermissionAdministrator != 0
}
