package core

import (
	"context"

	"github.com/muratoffalex/discordctl/internal/discord"
	"github.com/muratoffalex/discordctl/internal/dispatch"
	"github.com/muratoffalex/discordctl/internal/locale"
)

// Moderation calls bypass the cooldown gate.

func (b *Bot) KickUser(ctx context.Context, guildID, userID, reason, tag string) *dispatch.Pending {
	return b.unthrottled(ctx, CmdKickUser, tag,
		[]param{id("guild_id", guildID), id("user_id", userID)},
		b.request(guildID, discord.KickMember(guildID, userID, reason), b.fixedMessage(locale.MsgUserKicked)))
}

// BanUser bans userID and deletes up to deleteMessageDays (0..7) of their
// recent messages.
func (b *Bot) BanUser(ctx context.Context, guildID, userID, reason string, deleteMessageDays int, tag string) *dispatch.Pending {
	return b.unthrottled(ctx, CmdBanUser, tag,
		[]param{id("guild_id", guildID), id("user_id", userID)},
		b.request(guildID, discord.BanMember(guildID, userID, reason, deleteMessageDays), b.fixedMessage(locale.MsgUserBanned)))
}

func (b *Bot) UnbanUser(ctx context.Context, guildID, userID, tag string) *dispatch.Pending {
	return b.unthrottled(ctx, CmdUnbanUser, tag,
		[]param{id("guild_id", guildID), id("user_id", userID)},
		b.request(guildID, discord.UnbanMember(guildID, userID), b.fixedMessage(locale.MsgUserUnbanned)))
}

// CheckUserPermission resolves the member's guild-level permissions and
// reports whether the named flag is granted.
func (b *Bot) CheckUserPermission(ctx context.Context, guildID, userID, permission, tag string) *dispatch.Pending {
	call := dispatch.Call{Command: CmdCheckUserPermission, Tag: tag}
	flag, err := discord.ParsePermission(permission)
	if err != nil {
		return b.dispatcher.Fail(call, err, b.localizer.Text(locale.MsgUnknownPermission, map[string]any{
			"Permission": permission,
		}))
	}

	call.Job = func(ctx context.Context) dispatch.Result {
		st, err := b.memberState(ctx, guildID, userID)
		if err != nil {
			return b.failure(guildID, err)
		}
		return dispatch.Result{
			Message: b.localizer.Text(locale.MsgPermissionResult, map[string]any{
				"Permission": permission,
				"Has":        st.perms.Has(flag),
			}),
			StatusCode: st.status,
		}
	}
	return b.submit(ctx, call, []param{id("guild_id", guildID), id("user_id", userID)})
}

func (b *Bot) CheckAdminOrOwner(ctx context.Context, guildID, userID, tag string) *dispatch.Pending {
	return b.unthrottled(ctx, CmdCheckAdminOrOwner, tag,
		[]param{id("guild_id", guildID), id("user_id", userID)},
		func(ctx context.Context) dispatch.Result {
			st, err := b.memberState(ctx, guildID, userID)
			if err != nil {
				return b.failure(guildID, err)
			}
			return dispatch.Result{
				Message: b.localizer.Text(locale.MsgAdminOwnerResult, map[string]any{
					"Admin": st.perms.Has(discord.PermissionAdministrator),
					"Owner": st.owner,
				}),
				StatusCode: st.status,
			}
		})
}

type memberState struct {
	perms  discord.Permission
	owner  bool
	status int
}

// memberState fetches the guild and the member, one request each, and
// resolves the member's permission bitfield.
func (b *Bot) memberState(ctx context.Context, guildID, userID string) (memberState, error) {
	resp, err := b.executor.Execute(ctx, discord.GetGuild(guildID))
	if err != nil {
		return memberState{}, err
	}
	var guild discord.Guild
	if err := resp.Decode(&guild); err != nil {
		return memberState{}, err
	}

	resp, err = b.executor.Execute(ctx, discord.GetMember(guildID, userID))
	if err != nil {
		return memberState{}, err
	}
	var member discord.Member
	if err := resp.Decode(&member); err != nil {
		return memberState{}, err
	}

	perms, err := discord.MemberPermissions(guild, member, userID)
	if err != nil {
		return memberState{}, err
	}
	return memberState{
		perms:  perms,
		owner:  guild.OwnerID == userID,
		status: resp.StatusCode,
	}, nil
}
