package bot

import (
	"bytes"
	"errors"

	"github.com/bwmarrin/discordgo"
)

// Chat is the part of the gateway session the command handlers reply through
type Chat interface {
	Reply(channelID, messageID, content string) error
	ReplyEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error
	ReplyFile(channelID, messageID, content, filename string, data []byte) error
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error)
	DeleteMessage(channelID, messageID string) error
	RoleName(guildID, roleID string) (string, bool)
}

// Responder is the part of the gateway session interactions answer through
type Responder interface {
	Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	Followup(i *discordgo.Interaction, params *discordgo.WebhookParams) error
}

// sessionChat adapts a live session to Chat and Responder
type sessionChat struct {
	s *discordgo.Session
}

func reference(channelID, messageID string) *discordgo.MessageReference {
	return &discordgo.MessageReference{ChannelID: channelID, MessageID: messageID}
}

func (c sessionChat) Reply(channelID, messageID, content string) error {
	_, err := c.s.ChannelMessageSendReply(channelID, content, reference(channelID, messageID))
	return err
}

func (c sessionChat) ReplyEmbed(channelID, messageID string, embed *discordgo.MessageEmbed) error {
	_, err := c.s.ChannelMessageSendEmbedReply(channelID, embed, reference(channelID, messageID))
	return err
}

func (c sessionChat) ReplyFile(channelID, messageID, content, filename string, data []byte) error {
	_, err := c.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:   content,
		Reference: reference(channelID, messageID),
		Files: []*discordgo.File{{
			Name:        filename,
			ContentType: "text/csv",
			Reader:      bytes.NewReader(data),
		}},
	})
	return err
}

func (c sessionChat) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	if channelID == "" {
		return "", errors.New("no channel configured")
	}
	m, err := c.s.ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (c sessionChat) DeleteMessage(channelID, messageID string) error {
	return c.s.ChannelMessageDelete(channelID, messageID)
}

func (c sessionChat) RoleName(guildID, roleID string) (string, bool) {
	if c.s.State == nil {
		return "", false
	}
	role, err := c.s.State.Role(guildID, roleID)
	if err != nil || role == nil {
		return "", false
	}
	return role.Name, true
}

func (c sessionChat) Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	return c.s.InteractionRespond(i, resp)
}

func (c sessionChat) Followup(i *discordgo.Interaction, params *discordgo.WebhookParams) error {
	_, err := c.s.FollowupMessageCreate(i, true, params)
	return err
}
