package notifier

import (
	"fmt"
	"log"

	"github.com/badgehub/badgehub-api/internal/models"
	"github.com/bwmarrin/discordgo"
)

type Notifier interface {
	// NotifyAward announces a badge award to a recipient.
	NotifyAward(email string, badge *models.Badge) error
	// NotifyClaimCode delivers a reserved claim code to its recipient.
	NotifyClaimCode(email string, badge *models.Badge, code string) error
}

type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	return &DiscordNotifier{
		session:   session,
		channelID: channelID,
	}
}

func (n *DiscordNotifier) send(message string) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, message)
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}
	return nil
}

func (n *DiscordNotifier) NotifyAward(email string, badge *models.Badge) error {
	message := fmt.Sprintf("🏅 **Badge Awarded**\n**Recipient:** %s\n**Badge:** %s (%s)",
		email,
		badge.Name,
		badge.Shortname,
	)
	return n.send(message)
}

func (n *DiscordNotifier) NotifyClaimCode(email string, badge *models.Badge, code string) error {
	message := fmt.Sprintf("🎟️ **Claim Code Reserved**\n**Recipient:** %s\n**Badge:** %s (%s)\n**Code:** `%s`",
		email,
		badge.Name,
		badge.Shortname,
		code,
	)
	return n.send(message)
}
