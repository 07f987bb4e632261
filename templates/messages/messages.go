// Package messages holds every user facing text the bot sends.
package messages

import (
	"fmt"
	"strings"
)

// Journey prompt sent by the root slash command
func Journey() string {
	return "They say you're looking for the road to Bitcoin City 2100…\nAre you ready for the next step?"
}

// JourneyAccepted replaces the prompt once the button is pressed
func JourneyAccepted(username string) string {
	return fmt.Sprintf("Welcome to the journey, %s! \nYour adventure begins now...", username)
}

// JourneyError is shown when the prompt or button could not be handled
func JourneyError() string {
	return "An error occurred while processing your journey request. Please try again later."
}

// ClaimChannelRestricted is the reply for denied-channel
func ClaimChannelRestricted() string {
	return "This command is not available in this channel."
}

// ClaimNotEligible is the reply for denied-ineligible
func ClaimNotEligible() string {
	return "You are not eligible to claim an invite code yet. Codes are reserved for members with a whitelisted role."
}

// ClaimBusy is the reply for denied-busy
func ClaimBusy() string {
	return "⏳ Another request is being processed right now. Please try again in a few seconds."
}

// ClaimReturningUser is the reply for existing-code-returned
func ClaimReturningUser(username, code string) string {
	return fmt.Sprintf("Welcome back, %s! You already have an invite code:\n```%s```\nKeep it safe, it is yours alone.", username, code)
}

// ClaimNewUser is the reply for new-code-assigned
func ClaimNewUser(username, code string) string {
	return fmt.Sprintf("🎉 Congratulations %s! Here is your invite code:\n```%s```\nThis code has been reserved for you.", username, code)
}

// UnavailableTitle is the embed title shared by both shortage replies
const UnavailableTitle = "Invite Codes Unavailable"

// ClaimLimitReached is the embed body for denied-quota-exhausted
func ClaimLimitReached() string {
	return "All invite codes released so far have been claimed. More codes are released regularly, so please check back later!"
}

// ClaimNoInvitesAvailable is the embed body for denied-no-rows-available
func ClaimNoInvitesAvailable() string {
	return "There are no invite codes left to hand out at the moment. The team has been notified, please check back later!"
}

// ClaimError is the reply for error
func ClaimError() string {
	return "An error occurred while processing your claim. Please try again later."
}

// NotAuthorized is the reply to prefix commands from non administrators
func NotAuthorized() string {
	return "You do not have permission to use this command. Only guild administrators can use it."
}

// ExportProcessing acknowledges an export request
func ExportProcessing() string {
	return "Processing export request..."
}

// ExportFileNotFound is sent when there is nothing to export
func ExportFileNotFound() string {
	return "CSV file not found. No data to export."
}

// ExportSuccess describes the attached export
func ExportSuccess(timestamp, username, filename string, rows int) string {
	return fmt.Sprintf("📊 **CSV Export Generated**\n```Exported on: %s UTC\nRequested by: %s\nFilename: %s\nData rows: %d```",
		timestamp, username, filename, rows)
}

// ExportError is sent when the export fails
func ExportError() string {
	return "An error occurred while exporting the CSV file. Please try again later."
}

func RoleAdded(name string) string {
	return fmt.Sprintf("✅ Role **%s** has been added to the whitelist.", name)
}

func RoleRemoved(name string) string {
	return fmt.Sprintf("❌ Role **%s** has been removed from the whitelist.", name)
}

func RoleNotFound() string {
	return "❓ Role not found. Please mention a valid role."
}

func RoleAlreadyWhitelisted(name string) string {
	return fmt.Sprintf("ℹ️ Role **%s** is already whitelisted.", name)
}

func RoleNotWhitelisted(name string) string {
	return fmt.Sprintf("ℹ️ Role **%s** is not on the whitelist.", name)
}

const adminNote = "Note: Server administrators always have access regardless of whitelist."

func WhitelistEmpty() string {
	return "ℹ️ The whitelist is currently empty. " + adminNote
}

func WhitelistRoles(names []string) string {
	lines := make([]string, len(names))
	for i, n := range names {
		lines[i] = "- " + n
	}
	return fmt.Sprintf("📋 **Whitelisted Roles**:\n%s\n\n%s", strings.Join(lines, "\n"), adminNote)
}

// UnknownRole renders a whitelisted id the guild no longer knows
func UnknownRole(id string) string {
	return fmt.Sprintf("Unknown Role (ID: %s)", id)
}

func WhitelistError() string {
	return "❌ An error occurred while processing the whitelist command. Please try again later."
}

func LimitUsage(prefix string) string {
	return fmt.Sprintf("❓ Invalid limit format. Use `%[1]swl set +<number>` to increase the claim limit (e.g., `%[1]swl set +100`).", prefix)
}

func LimitTooLarge(limit int) string {
	return fmt.Sprintf("❌ The claim limit cannot go above **%d**.", limit)
}

func LimitIncreased(amount int) string {
	return fmt.Sprintf("✅ Claim limit increased by **%d** codes.", amount)
}

func StatsTitle() string {
	return "📊 Bot Status & Statistics"
}

func StatsDescription(total, claimed, limit, available int) string {
	return fmt.Sprintf("**Total Codes:** %d\n**Claimed Codes:** %d\n**Claim Limit:** %d\n**Available for Claiming:** %d",
		total, claimed, limit, available)
}

func StatsLastUpdated(date, by string) string {
	return fmt.Sprintf("%s by %s", date, by)
}

func StatsRoles(names []string) string {
	text := "No roles are currently whitelisted"
	if len(names) > 0 {
		lines := make([]string, len(names))
		for i, n := range names {
			lines[i] = "• " + n
		}
		text = strings.Join(lines, "\n")
	}
	return text + "\n\n*" + adminNote + "*"
}

func StatsFooter() string {
	return "WL-bot Statistics"
}

// ModNoticeTitle and ModNoticeBody form the educational notice posted after a
// detected code is removed
const ModNoticeTitle = "To keep it organized, please post invites on Twitter\n"

func ModNoticeBody() string {
	return "To make your codes visible to everyone, add this to your post:\n" +
		"**`#Botanix2100 @BotanixLabs`**\n\n" +
		"*Why?*\n" +
		"✓ Prevents spam in Discord\n" +
		"✓ Helps others find codes faster\n" +
		"✓ Ensures fair access for all\n\n" +
		"[Looking for invite codes? Check here!](https://x.com/search?q=%23Botanix2100%20%40BotanixLabs)"
}

const ModNoticeImage = "https://media.discordapp.net/attachments/1317881540176248904/1386310355067732029/2100logo_copy_3.png"

const ModReportTitle = "Moderation Action"

func ModReportDescription() string {
	return "Base64 invite code detected and action taken"
}

// ModReportContent quotes at most 1000 characters of the removed message
func ModReportContent(content string) string {
	if content == "" {
		return "*No content*"
	}
	if r := []rune(content); len(r) > 1000 {
		content = string(r[:1000])
	}
	return "```\n" + content + "\n```"
}

func YesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

const AnnouncementTitle = "Bitcoin 2100 is live on Botanix Mainnet!"

func AnnouncementBody(rootCommand string) string {
	return "⚡ Step into **Bitcoin City**, a gamified world where every quest earns you real sats (not points), and every mission teaches you how to use the Bitcoin Economy.\n\n" +
		"⛏️📚💰 **Explore. Learn. Earn Bitcoin.** \n\n" +
		"🌐    __**https://2100abitcoinworld.com/**__\n\n" +
		"Invite only,\n use this Discord slash command to get access: **/" + rootCommand + "**\n\n\n" +
		"_More info: https://botanixlabs.com/blog/bitcoin-2100-an-adventure-in-bitcoin-city_"
}

const AnnouncementImage = "https://media.discordapp.net/attachments/1317881540176248904/1394363618455195689/3aFOuS3R.png"
