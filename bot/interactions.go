package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/linesmerrill/invite-bot/claims"
	"github.com/linesmerrill/invite-bot/templates/messages"
)

// JourneyButtonID is the custom id of the button under the journey prompt
const JourneyButtonID = "bitcoin_city_journey"

// Claimer runs one claim request
type Claimer interface {
	Claim(ctx context.Context, req claims.Request) claims.Result
}

// Journey answers the root slash command and its button
type Journey struct {
	Responder Responder
	Claims    Claimer
	Now       func() time.Time
}

// Member is who pressed a button or ran a command
type Member struct {
	UserID      string
	DisplayName string
	IsAdmin     bool
	RoleIDs     []string
}

func interactionMember(i *discordgo.Interaction) Member {
	if i.Member != nil && i.Member.User != nil {
		return Member{
			UserID:      i.Member.User.ID,
			DisplayName: displayName(i.Member.Nick, i.Member.User),
			IsAdmin:     i.Member.Permissions&discordgo.PermissionAdministrator != 0,
			RoleIDs:     i.Member.Roles,
		}
	}
	if i.User != nil {
		return Member{UserID: i.User.ID, DisplayName: displayName("", i.User)}
	}
	return Member{}
}

func displayName(nick string, u *discordgo.User) string {
	switch {
	case nick != "":
		return nick
	case u.GlobalName != "":
		return u.GlobalName
	default:
		return u.Username
	}
}

func ephemeral(content string) *discordgo.WebhookParams {
	return &discordgo.WebhookParams{Content: content, Flags: discordgo.MessageFlagsEphemeral}
}

// Prompt replies privately with the journey text and its button
func (j *Journey) Prompt(i *discordgo.Interaction) {
	m := interactionMember(i)
	log := zap.S().With("userId", m.UserID, "user", m.DisplayName, "channelId", i.ChannelID)
	log.Infow("root command initiated")

	err := j.Responder.Respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: messages.Journey(),
			Flags:   discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Take me there!",
						Style:    discordgo.SecondaryButton,
						CustomID: JourneyButtonID,
						Emoji:    &discordgo.ComponentEmoji{Name: "🚀"},
					},
				}},
			},
		},
	})
	if err != nil {
		log.Errorw("failed to send journey prompt", "error", err)
		if err := j.Responder.Respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: messages.JourneyError(), Flags: discordgo.MessageFlagsEphemeral},
		}); err != nil {
			log.Errorw("failed to send journey error", "error", err)
		}
		return
	}
	log.Infow("journey prompt sent")
}

// Accept removes the button, runs the claim and follows up with its outcome
func (j *Journey) Accept(ctx context.Context, i *discordgo.Interaction) {
	m := interactionMember(i)
	log := zap.S().With("userId", m.UserID, "user", m.DisplayName, "channelId", i.ChannelID)
	log.Infow("journey button pressed")

	components := []discordgo.MessageComponent{}
	err := j.Responder.Respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    messages.JourneyAccepted(m.DisplayName),
			Components: components,
		},
	})
	if err != nil {
		log.Errorw("failed to update journey prompt", "error", err)
		if err := j.Responder.Followup(i, ephemeral(messages.JourneyError())); err != nil {
			log.Errorw("failed to send journey error", "error", err)
		}
		return
	}

	res := j.Claims.Claim(ctx, claims.Request{
		UserID:    m.UserID,
		ChannelID: i.ChannelID,
		IsAdmin:   m.IsAdmin,
		RoleIDs:   m.RoleIDs,
	})
	if err := j.Responder.Followup(i, j.claimReply(res, m.DisplayName)); err != nil {
		log.Errorw("failed to send claim follow up", "claimId", res.ClaimID, "outcome", res.Outcome.String(), "error", err)
	}
}

func (j *Journey) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// claimReply maps every outcome to its private follow up
func (j *Journey) claimReply(res claims.Result, username string) *discordgo.WebhookParams {
	switch res.Outcome {
	case claims.OutcomeExistingCode:
		return ephemeral(messages.ClaimReturningUser(username, res.Code))
	case claims.OutcomeNewCode:
		return ephemeral(messages.ClaimNewUser(username, res.Code))
	case claims.OutcomeDeniedChannel:
		return ephemeral(messages.ClaimChannelRestricted())
	case claims.OutcomeDeniedIneligible:
		return ephemeral(messages.ClaimNotEligible())
	case claims.OutcomeDeniedBusy:
		return ephemeral(messages.ClaimBusy())
	case claims.OutcomeDeniedQuota:
		return &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{unavailableEmbed(messages.ClaimLimitReached(), j.now())},
			Flags:  discordgo.MessageFlagsEphemeral,
		}
	case claims.OutcomeDeniedNoRows:
		return &discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{unavailableEmbed(messages.ClaimNoInvitesAvailable(), j.now())},
			Flags:  discordgo.MessageFlagsEphemeral,
		}
	default:
		return ephemeral(messages.ClaimError())
	}
}
