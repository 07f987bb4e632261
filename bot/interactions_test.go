package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/invite-bot/claims"
	"github.com/linesmerrill/invite-bot/templates/messages"
)

type fakeResponder struct {
	responses  []*discordgo.InteractionResponse
	followups  []*discordgo.WebhookParams
	respondErr error
}

func (f *fakeResponder) Respond(i *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	f.responses = append(f.responses, resp)
	return f.respondErr
}

func (f *fakeResponder) Followup(i *discordgo.Interaction, params *discordgo.WebhookParams) error {
	f.followups = append(f.followups, params)
	return nil
}

type fakeClaimer struct {
	requests []claims.Request
	result   claims.Result
}

func (f *fakeClaimer) Claim(ctx context.Context, req claims.Request) claims.Result {
	f.requests = append(f.requests, req)
	return f.result
}

func buttonInteraction() *discordgo.Interaction {
	return &discordgo.Interaction{
		ChannelID: "c1",
		Member: &discordgo.Member{
			Nick:        "Satoshi",
			Roles:       []string{"r1"},
			Permissions: discordgo.PermissionAdministrator,
			User:        &discordgo.User{ID: "u1", Username: "sn"},
		},
	}
}

func TestInteractionMember(t *testing.T) {
	m := interactionMember(buttonInteraction())
	assert.Equal(t, Member{UserID: "u1", DisplayName: "Satoshi", IsAdmin: true, RoleIDs: []string{"r1"}}, m)

	dm := interactionMember(&discordgo.Interaction{User: &discordgo.User{ID: "u2", Username: "hal", GlobalName: "Hal"}})
	assert.Equal(t, "Hal", dm.DisplayName)
	assert.False(t, dm.IsAdmin)
}

func TestJourney_Prompt(t *testing.T) {
	responder := &fakeResponder{}
	j := &Journey{Responder: responder}

	j.Prompt(buttonInteraction())
	require.Len(t, responder.responses, 1)
	resp := responder.responses[0]
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, messages.Journey(), resp.Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)

	require.Len(t, resp.Data.Components, 1)
	row := resp.Data.Components[0].(discordgo.ActionsRow)
	button := row.Components[0].(discordgo.Button)
	assert.Equal(t, JourneyButtonID, button.CustomID)
	assert.Equal(t, "Take me there!", button.Label)
}

func TestJourney_AcceptRunsClaim(t *testing.T) {
	responder := &fakeResponder{}
	claimer := &fakeClaimer{result: claims.Result{Outcome: claims.OutcomeNewCode, Code: "XYZ"}}
	j := &Journey{Responder: responder, Claims: claimer, Now: func() time.Time { return fixedNow }}

	j.Accept(context.Background(), buttonInteraction())

	require.Len(t, responder.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseUpdateMessage, responder.responses[0].Type)
	assert.Equal(t, messages.JourneyAccepted("Satoshi"), responder.responses[0].Data.Content)
	assert.Empty(t, responder.responses[0].Data.Components)

	require.Len(t, claimer.requests, 1)
	assert.Equal(t, claims.Request{UserID: "u1", ChannelID: "c1", IsAdmin: true, RoleIDs: []string{"r1"}}, claimer.requests[0])

	require.Len(t, responder.followups, 1)
	assert.Equal(t, messages.ClaimNewUser("Satoshi", "XYZ"), responder.followups[0].Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, responder.followups[0].Flags)
}

func TestJourney_AcceptUpdateFails(t *testing.T) {
	responder := &fakeResponder{respondErr: errors.New("unknown interaction")}
	claimer := &fakeClaimer{}
	j := &Journey{Responder: responder, Claims: claimer}

	j.Accept(context.Background(), buttonInteraction())
	assert.Empty(t, claimer.requests)
	require.Len(t, responder.followups, 1)
	assert.Equal(t, messages.JourneyError(), responder.followups[0].Content)
}

func TestJourney_ClaimReply(t *testing.T) {
	j := &Journey{Now: func() time.Time { return fixedNow }}

	tests := []struct {
		outcome claims.Outcome
		content string
		embed   string
	}{
		{claims.OutcomeExistingCode, messages.ClaimReturningUser("sat", "C1"), ""},
		{claims.OutcomeNewCode, messages.ClaimNewUser("sat", "C1"), ""},
		{claims.OutcomeDeniedChannel, messages.ClaimChannelRestricted(), ""},
		{claims.OutcomeDeniedIneligible, messages.ClaimNotEligible(), ""},
		{claims.OutcomeDeniedBusy, messages.ClaimBusy(), ""},
		{claims.OutcomeDeniedQuota, "", messages.ClaimLimitReached()},
		{claims.OutcomeDeniedNoRows, "", messages.ClaimNoInvitesAvailable()},
		{claims.OutcomeError, messages.ClaimError(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			params := j.claimReply(claims.Result{Outcome: tt.outcome, Code: "C1"}, "sat")
			assert.Equal(t, discordgo.MessageFlagsEphemeral, params.Flags)
			assert.Equal(t, tt.content, params.Content)
			if tt.embed != "" {
				require.Len(t, params.Embeds, 1)
				assert.Equal(t, messages.UnavailableTitle, params.Embeds[0].Title)
				assert.Equal(t, tt.embed, params.Embeds[0].Description)
				assert.Equal(t, "2025-06-01T12:30:45Z", params.Embeds[0].Timestamp)
			} else {
				assert.Empty(t, params.Embeds)
			}
		})
	}
}
