package core

import (
	"context"

	"github.com/muratoffalex/discordctl/internal/discord"
	"github.com/muratoffalex/discordctl/internal/dispatch"
)

func (b *Bot) SendMessage(ctx context.Context, guildID, channelID, content, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdSendMessage, tag, cooldown,
		[]param{id("guild_id", guildID), id("channel_id", channelID), id("content", content)},
		b.request(guildID, discord.SendMessage(channelID, content), nil))
}

func (b *Bot) EditMessage(ctx context.Context, guildID, channelID, messageID, content, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdEditMessage, tag, cooldown,
		[]param{id("guild_id", guildID), id("channel_id", channelID), id("message_id", messageID), id("content", content)},
		b.request(guildID, discord.EditMessage(channelID, messageID, content), nil))
}

func (b *Bot) DeleteMessage(ctx context.Context, guildID, channelID, messageID, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdDeleteMessage, tag, cooldown,
		[]param{id("guild_id", guildID), id("channel_id", channelID), id("message_id", messageID)},
		b.request(guildID, discord.DeleteMessage(channelID, messageID), nil))
}

func (b *Bot) PinMessage(ctx context.Context, guildID, channelID, messageID, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdPinMessage, tag, cooldown,
		[]param{id("guild_id", guildID), id("channel_id", channelID), id("message_id", messageID)},
		b.request(guildID, discord.PinMessage(channelID, messageID), nil))
}

func (b *Bot) UnpinMessage(ctx context.Context, guildID, channelID, messageID, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdUnpinMessage, tag, cooldown,
		[]param{id("guild_id", guildID), id("channel_id", channelID), id("message_id", messageID)},
		b.request(guildID, discord.UnpinMessage(channelID, messageID), nil))
}

// GetMessages delivers the raw JSON array returned by the API as the success
// message. The limit is clamped to 1..100.
func (b *Bot) GetMessages(ctx context.Context, guildID, channelID string, limit int, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdGetMessages, tag, cooldown,
		[]param{id("guild_id", guildID), id("channel_id", channelID)},
		b.request(guildID, discord.GetMessages(channelID, limit), rawBody))
}
