package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/claims"
	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/templates/messages"
)

// CommandKind names an administrator prefix command
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandListRoles
	CommandAddRole
	CommandRemoveRole
	CommandSetLimit
	CommandCheck
	CommandExport
)

// Command is a parsed prefix command
type Command struct {
	Kind CommandKind
	Args []string
}

// ParseCommand splits content into a command when it starts with prefix. ok
// is false for messages that are not prefix commands at all.
func ParseCommand(prefix, content string) (cmd Command, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return Command{}, false
	}

	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return Command{Kind: CommandUnknown}, true
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "export":
		return Command{Kind: CommandExport, Args: args}, true
	case "wl":
	default:
		return Command{Kind: CommandUnknown, Args: args}, true
	}

	if len(args) == 0 {
		return Command{Kind: CommandListRoles}, true
	}
	switch strings.ToLower(args[0]) {
	case "rm":
		return Command{Kind: CommandRemoveRole, Args: args[1:]}, true
	case "set":
		return Command{Kind: CommandSetLimit, Args: args[1:]}, true
	case "check":
		return Command{Kind: CommandCheck, Args: args[1:]}, true
	default:
		return Command{Kind: CommandAddRole, Args: args}, true
	}
}

// ParseLimitIncrease reads the "+N" argument of the set command
func ParseLimitIncrease(args []string) (int, error) {
	if len(args) == 0 || !strings.HasPrefix(args[0], "+") {
		return 0, databases.ErrInvalidAmount
	}
	amount, err := strconv.Atoi(args[0][1:])
	if err != nil || amount <= 0 {
		return 0, databases.ErrInvalidAmount
	}
	return amount, nil
}

// AdminRequest is an inbound prefix command message
type AdminRequest struct {
	GuildID      string
	ChannelID    string
	MessageID    string
	AuthorID     string
	AuthorTag    string
	IsAdmin      bool
	Content      string
	MentionRoles []string
}

// Admin runs the prefix commands that manage the whitelist, the quota and the
// invite table export
type Admin struct {
	Prefix      string
	Chat        Chat
	Invites     databases.InviteCodeDatabase
	Quota       databases.QuotaDatabase
	Eligibility databases.EligibilityDatabase
	Now         func() time.Time
}

func (a *Admin) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Handle runs req when it is a prefix command and reports whether it was one
func (a *Admin) Handle(ctx context.Context, req AdminRequest) bool {
	cmd, ok := ParseCommand(a.Prefix, req.Content)
	if !ok {
		return false
	}

	log := zap.S().With("userId", req.AuthorID, "user", req.AuthorTag, "channelId", req.ChannelID)
	if !req.IsAdmin {
		log.Warnw("prefix command refused, not an administrator")
		a.reply(log, req, messages.NotAuthorized())
		return true
	}

	log.Infow("prefix command received", "content", req.Content)
	switch cmd.Kind {
	case CommandListRoles:
		a.listRoles(log, req)
	case CommandAddRole, CommandRemoveRole:
		a.changeRole(ctx, log, req, cmd.Kind == CommandRemoveRole)
	case CommandSetLimit:
		a.setLimit(ctx, log, req, cmd.Args)
	case CommandCheck:
		a.check(ctx, log, req)
	case CommandExport:
		a.export(ctx, log, req)
	default:
		log.Debugw("unknown prefix command ignored")
	}
	return true
}

func (a *Admin) reply(log *zap.SugaredLogger, req AdminRequest, content string) {
	if err := a.Chat.Reply(req.ChannelID, req.MessageID, content); err != nil {
		log.Errorw("failed to reply to prefix command", "error", err)
	}
}

func (a *Admin) roleName(guildID, roleID string) string {
	if name, ok := a.Chat.RoleName(guildID, roleID); ok {
		return name
	}
	return messages.UnknownRole(roleID)
}

func (a *Admin) roleNames(guildID string) []string {
	roles := a.Eligibility.Roles()
	names := make([]string, len(roles))
	for i, id := range roles {
		names[i] = a.roleName(guildID, id)
	}
	return names
}

func (a *Admin) listRoles(log *zap.SugaredLogger, req AdminRequest) {
	names := a.roleNames(req.GuildID)
	if len(names) == 0 {
		a.reply(log, req, messages.WhitelistEmpty())
		return
	}
	a.reply(log, req, messages.WhitelistRoles(names))
}

func (a *Admin) changeRole(ctx context.Context, log *zap.SugaredLogger, req AdminRequest, remove bool) {
	if len(req.MentionRoles) == 0 {
		a.reply(log, req, messages.RoleNotFound())
		return
	}
	roleID := req.MentionRoles[0]
	name := a.roleName(req.GuildID, roleID)

	if remove {
		removed, err := a.Eligibility.RemoveRole(ctx, roleID)
		switch {
		case err != nil:
			log.Errorw("failed to remove whitelisted role", "roleId", roleID, "error", err)
			a.reply(log, req, messages.WhitelistError())
		case removed:
			log.Infow("role removed from whitelist", "roleId", roleID, "role", name)
			a.reply(log, req, messages.RoleRemoved(name))
		default:
			a.reply(log, req, messages.RoleNotWhitelisted(name))
		}
		return
	}

	added, err := a.Eligibility.AddRole(ctx, roleID)
	switch {
	case err != nil:
		log.Errorw("failed to add whitelisted role", "roleId", roleID, "error", err)
		a.reply(log, req, messages.WhitelistError())
	case added:
		log.Infow("role added to whitelist", "roleId", roleID, "role", name)
		a.reply(log, req, messages.RoleAdded(name))
	default:
		a.reply(log, req, messages.RoleAlreadyWhitelisted(name))
	}
}

func (a *Admin) setLimit(ctx context.Context, log *zap.SugaredLogger, req AdminRequest, args []string) {
	amount, err := ParseLimitIncrease(args)
	if err != nil {
		a.reply(log, req, messages.LimitUsage(a.Prefix))
		return
	}

	err = a.Quota.IncreaseBy(ctx, amount, req.AuthorTag)
	if errors.Is(err, databases.ErrLimitTooLarge) {
		log.Warnw("claim limit increase refused", "amount", amount, "claimLimit", a.Quota.State().Limit)
		a.reply(log, req, messages.LimitTooLarge(databases.MaxClaimLimit))
		return
	}
	if err != nil {
		log.Errorw("failed to increase claim limit", "amount", amount, "error", err)
		a.reply(log, req, messages.WhitelistError())
		return
	}
	log.Infow("claim limit increased", "amount", amount, "claimLimit", a.Quota.State().Limit)
	a.reply(log, req, messages.LimitIncreased(amount))
}

func (a *Admin) check(ctx context.Context, log *zap.SugaredLogger, req AdminRequest) {
	stats, err := claims.Stats(ctx, a.Invites, a.Quota, a.Eligibility)
	if err != nil {
		log.Errorw("status check failed", "error", err)
		a.reply(log, req, messages.WhitelistError())
		return
	}

	embed := statsEmbed(stats, a.roleNames(req.GuildID), a.now())
	if err := a.Chat.ReplyEmbed(req.ChannelID, req.MessageID, embed); err != nil {
		log.Errorw("failed to send status embed", "error", err)
		return
	}
	log.Infow("status check completed", "total", stats.Total, "claimed", stats.Claimed)
}

// ExportFilename names an export taken at t
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("invites_export_%s.csv", t.UTC().Format("2006-01-02-15-04-05"))
}

func (a *Admin) export(ctx context.Context, log *zap.SugaredLogger, req AdminRequest) {
	a.reply(log, req, messages.ExportProcessing())

	data, rows, err := a.Invites.Export(ctx)
	if errors.Is(err, databases.ErrEmptyTable) {
		log.Warnw("export requested but the invite table is empty")
		a.reply(log, req, messages.ExportFileNotFound())
		return
	}
	if err != nil {
		log.Errorw("export failed", "error", err)
		a.reply(log, req, messages.ExportError())
		return
	}

	now := a.now()
	filename := ExportFilename(now)
	content := messages.ExportSuccess(now.UTC().Format("2006-01-02 15:04:05"), req.AuthorTag, filename, rows)
	if err := a.Chat.ReplyFile(req.ChannelID, req.MessageID, content, filename, data); err != nil {
		log.Errorw("failed to upload export", "error", err)
		a.reply(log, req, messages.ExportError())
		return
	}
	log.Infow("invite table exported", "filename", filename, "rows", rows)
}
