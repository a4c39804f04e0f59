package infrastructure

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"predictions/domain/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	colorWarning = 0xFEE75C
	colorSuccess = 0x57F287
)

// webhookExecutor is the subset of *discordgo.Session the notifier needs
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordNotifier posts admin notifications to a Discord webhook
type DiscordNotifier struct {
	session   webhookExecutor
	webhookID string
	token     string
}

// NewDiscordNotifier creates a notifier from a webhook URL of the form
// https://discord.com/api/webhooks/{id}/{token}
func NewDiscordNotifier(webhookURL string) (*DiscordNotifier, error) {
	id, token, err := parseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// Webhook execution needs no bot token
	session, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &DiscordNotifier{session: session, webhookID: id, token: token}, nil
}

func parseWebhookURL(webhookURL string) (string, string, error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid webhook URL: %w", err)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook URL %q has no webhooks/{id}/{token} path", webhookURL)
}

// HandleEventFlagged alerts admins that a locked event needs resolution
func (n *DiscordNotifier) HandleEventFlagged(ctx context.Context, event events.Event) error {
	flagged, ok := event.(events.EventFlaggedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Event awaiting resolution",
		Description: flagged.Title,
		Color:       colorWarning,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ended", Value: fmt.Sprintf("<t:%d:R>", flagged.EndTime), Inline: true},
			{Name: "Participants", Value: fmt.Sprintf("%d", flagged.Participants), Inline: true},
			{Name: "Prize Pool", Value: fmt.Sprintf("%d points", flagged.PrizePool), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Event ID: %d", flagged.EventID)},
	}

	return n.send(embed, flagged.EventID)
}

// HandleEventResolved posts the settlement summary
func (n *DiscordNotifier) HandleEventResolved(ctx context.Context, event events.Event) error {
	resolved, ok := event.(events.EventResolvedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	summary := fmt.Sprintf("Answer: **%s**", resolved.CorrectAnswer)
	if resolved.Refunded {
		summary += "\nNo winning stakes, every participant was refunded."
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Event resolved",
		Description: fmt.Sprintf("%s\n%s", resolved.Title, summary),
		Color:       colorSuccess,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Winners", Value: fmt.Sprintf("%d", resolved.Winners), Inline: true},
			{Name: "Paid Out", Value: fmt.Sprintf("%d points", resolved.TotalPaid), Inline: true},
			{Name: "Fees", Value: fmt.Sprintf("%d points", resolved.FeeCollected), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Event ID: %d", resolved.EventID)},
	}

	return n.send(embed, resolved.EventID)
}

func (n *DiscordNotifier) send(embed *discordgo.MessageEmbed, eventID int64) error {
	_, err := n.session.WebhookExecute(n.webhookID, n.token, false, &discordgo.WebhookParams{
		Username: "Predictions",
		Embeds:   []*discordgo.MessageEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("failed to post discord notification for event %d: %w", eventID, err)
	}

	log.WithFields(log.Fields{
		"eventID": eventID,
		"title":   embed.Title,
	}).Info("Posted admin notification")
	return nil
}
