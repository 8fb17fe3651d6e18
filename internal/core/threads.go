package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/muratoffalex/discordctl/internal/discord"
	"github.com/muratoffalex/discordctl/internal/dispatch"
)

func (b *Bot) CreateThread(ctx context.Context, guildID, channelID, messageID, name string, autoArchiveMinutes int, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdCreateThread, tag, cooldown,
		[]param{id("guild_id", guildID), id("channel_id", channelID), id("message_id", messageID), id("name", name)},
		b.request(guildID, discord.CreateThread(channelID, messageID, name, autoArchiveMinutes), nil))
}

// UpdateThread sends only the fields that are set: an empty name or a zero
// archive duration leaves that attribute unchanged.
func (b *Bot) UpdateThread(ctx context.Context, guildID, threadID, name string, autoArchiveMinutes int, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdUpdateThread, tag, cooldown,
		[]param{id("guild_id", guildID), id("thread_id", threadID)},
		b.request(guildID, discord.UpdateThread(threadID, name, autoArchiveMinutes), nil))
}

func (b *Bot) DeleteThread(ctx context.Context, guildID, threadID, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdDeleteThread, tag, cooldown,
		[]param{id("guild_id", guildID), id("thread_id", threadID)},
		b.request(guildID, discord.DeleteThread(threadID), nil))
}

func (b *Bot) AddUserToThread(ctx context.Context, guildID, threadID, userID, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdAddUserToThread, tag, cooldown,
		[]param{id("guild_id", guildID), id("thread_id", threadID), id("user_id", userID)},
		b.request(guildID, discord.AddThreadMember(threadID, userID), nil))
}

func (b *Bot) RemoveUserFromThread(ctx context.Context, guildID, threadID, userID, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdRemoveUserFromThread, tag, cooldown,
		[]param{id("guild_id", guildID), id("thread_id", threadID), id("user_id", userID)},
		b.request(guildID, discord.RemoveThreadMember(threadID, userID), nil))
}

type activeThreads struct {
	Threads []json.RawMessage `json:"threads"`
}

type threadParent struct {
	ParentID string `json:"parent_id"`
}

// ListActiveThreads reads the guild's active threads and delivers, as a JSON
// array, the ones whose parent is channelID.
func (b *Bot) ListActiveThreads(ctx context.Context, guildID, channelID, tag string, cooldown int64) *dispatch.Pending {
	return b.throttled(ctx, CmdListActiveThreads, tag, cooldown,
		[]param{id("guild_id", guildID), id("channel_id", channelID)},
		b.request(guildID, discord.ListActiveGuildThreads(guildID), func(resp discord.Response) (string, error) {
			return filterThreads(resp, channelID)
		}))
}

func filterThreads(resp discord.Response, channelID string) (string, error) {
	var list activeThreads
	if err := resp.Decode(&list); err != nil {
		return "", err
	}
	if list.Threads == nil {
		return "", &discord.PayloadError{Field: "threads"}
	}

	matched := make([]json.RawMessage, 0, len(list.Threads))
	for i, raw := range list.Threads {
		var parent threadParent
		if err := json.Unmarshal(raw, &parent); err != nil {
			return "", &discord.PayloadError{Field: fmt.Sprintf("threads[%d]", i), Err: err}
		}
		if parent.ParentID == channelID {
			matched = append(matched, raw)
		}
	}

	out, err := json.Marshal(matched)
	if err != nil {
		return "", fmt.Errorf("encode threads: %w", err)
	}
	return string(out), nil
}
