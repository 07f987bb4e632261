package bot

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/linesmerrill/invite-bot/models"
	"github.com/linesmerrill/invite-bot/moderation"
	"github.com/linesmerrill/invite-bot/templates/messages"
)

const (
	colorRed    = 0xFF0000
	colorOrange = 0xFF9900
	colorBlue   = 0x0099FF
	colorGold   = 0xF1C40F
)

// lastUpdateLayout renders quota timestamps in the status embed
const lastUpdateLayout = "2006-01-02 15:04:05 UTC"

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func unavailableEmbed(description string, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorOrange,
		Title:       messages.UnavailableTitle,
		Description: description,
		Timestamp:   timestamp(now),
	}
}

func noticeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorRed,
		Title:       messages.ModNoticeTitle,
		Description: messages.ModNoticeBody(),
		Image:       &discordgo.MessageEmbedImage{URL: messages.ModNoticeImage},
	}
}

func reportEmbed(r moderation.Report, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorOrange,
		Title:       messages.ModReportTitle,
		Description: messages.ModReportDescription(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: r.Username + " (" + r.UserID + ")", Inline: true},
			{Name: "Violations", Value: strconv.Itoa(r.Violations), Inline: true},
			{Name: "Channel", Value: "<#" + r.ChannelID + ">", Inline: true},
			{Name: "Message Deleted", Value: messages.YesNo(r.Deleted), Inline: true},
			{Name: "Notification Sent", Value: messages.YesNo(r.Notified), Inline: true},
			{Name: "Content", Value: messages.ModReportContent(r.Content)},
		},
		Timestamp: timestamp(now),
	}
}

func statsEmbed(stats models.ClaimStats, roleNames []string, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorBlue,
		Title:       messages.StatsTitle(),
		Description: messages.StatsDescription(stats.Total, stats.Claimed, stats.Limit, stats.Available),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Last Updated", Value: messages.StatsLastUpdated(stats.LastUpdatedAt.UTC().Format(lastUpdateLayout), stats.LastUpdatedBy)},
			{Name: "Whitelisted Roles", Value: messages.StatsRoles(roleNames)},
		},
		Timestamp: timestamp(now),
		Footer:    &discordgo.MessageEmbedFooter{Text: messages.StatsFooter()},
	}
}

func announcementEmbed(rootCommand string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorGold,
		Title:       messages.AnnouncementTitle,
		Description: messages.AnnouncementBody(rootCommand),
		Image:       &discordgo.MessageEmbedImage{URL: messages.AnnouncementImage},
	}
}
