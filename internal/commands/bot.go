package commands

import (
	"context"

	"github.com/muratoffalex/discordctl/internal/core"
	"github.com/muratoffalex/discordctl/internal/dispatch"
)

const (
	defaultMessagesLimit = 50
	defaultAutoArchive   = 1440
)

type funcCommand struct {
	name    string
	aliases []string
	run     func(ctx context.Context, req Request) (*dispatch.Pending, error)
}

func (c funcCommand) Name() string      { return c.name }
func (c funcCommand) Aliases() []string { return c.aliases }

func (c funcCommand) Execute(ctx context.Context, req Request) (*dispatch.Pending, error) {
	return c.run(ctx, req)
}

// BotCommands exposes every core.Bot operation under its command name, with
// the snake_case name as an alias.
func BotCommands(b *core.Bot) []Command {
	return []Command{
		funcCommand{name: core.CmdSendMessage, aliases: []string{"send_message"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "channel_id", "content")
			if err != nil {
				return nil, err
			}
			return b.SendMessage(ctx, v[0], v[1], v[2], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdEditMessage, aliases: []string{"edit_message"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "channel_id", "message_id", "content")
			if err != nil {
				return nil, err
			}
			return b.EditMessage(ctx, v[0], v[1], v[2], v[3], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdDeleteMessage, aliases: []string{"delete_message"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "channel_id", "message_id")
			if err != nil {
				return nil, err
			}
			return b.DeleteMessage(ctx, v[0], v[1], v[2], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdPinMessage, aliases: []string{"pin_message"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "channel_id", "message_id")
			if err != nil {
				return nil, err
			}
			return b.PinMessage(ctx, v[0], v[1], v[2], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdUnpinMessage, aliases: []string{"unpin_message"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "channel_id", "message_id")
			if err != nil {
				return nil, err
			}
			return b.UnpinMessage(ctx, v[0], v[1], v[2], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdGetMessages, aliases: []string{"get_messages"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "channel_id")
			if err != nil {
				return nil, err
			}
			limit, err := req.Params.Int("limit", defaultMessagesLimit)
			if err != nil {
				return nil, err
			}
			return b.GetMessages(ctx, v[0], v[1], limit, req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdCreateThread, aliases: []string{"create_thread"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "channel_id", "message_id", "name")
			if err != nil {
				return nil, err
			}
			archive, err := req.Params.Int("auto_archive_duration", defaultAutoArchive)
			if err != nil {
				return nil, err
			}
			return b.CreateThread(ctx, v[0], v[1], v[2], v[3], archive, req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdUpdateThread, aliases: []string{"update_thread"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "thread_id", "name")
			if err != nil {
				return nil, err
			}
			archive, err := req.Params.Int("auto_archive_duration", 0)
			if err != nil {
				return nil, err
			}
			return b.UpdateThread(ctx, v[0], v[1], v[2], archive, req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdDeleteThread, aliases: []string{"delete_thread"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "thread_id")
			if err != nil {
				return nil, err
			}
			return b.DeleteThread(ctx, v[0], v[1], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdAddUserToThread, aliases: []string{"add_user_to_thread"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "thread_id", "user_id")
			if err != nil {
				return nil, err
			}
			return b.AddUserToThread(ctx, v[0], v[1], v[2], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdRemoveUserFromThread, aliases: []string{"remove_user_from_thread"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "thread_id", "user_id")
			if err != nil {
				return nil, err
			}
			return b.RemoveUserFromThread(ctx, v[0], v[1], v[2], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdListActiveThreads, aliases: []string{"list_active_threads"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "channel_id")
			if err != nil {
				return nil, err
			}
			return b.ListActiveThreads(ctx, v[0], v[1], req.Tag, req.cooldown), nil
		}},
		funcCommand{name: core.CmdKickUser, aliases: []string{"kick_user"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "user_id", "reason")
			if err != nil {
				return nil, err
			}
			return b.KickUser(ctx, v[0], v[1], v[2], req.Tag), nil
		}},
		funcCommand{name: core.CmdBanUser, aliases: []string{"ban_user"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "user_id", "reason")
			if err != nil {
				return nil, err
			}
			days, err := req.Params.Int("delete_message_days", 0)
			if err != nil {
				return nil, err
			}
			return b.BanUser(ctx, v[0], v[1], v[2], days, req.Tag), nil
		}},
		funcCommand{name: core.CmdUnbanUser, aliases: []string{"unban_user"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "user_id")
			if err != nil {
				return nil, err
			}
			return b.UnbanUser(ctx, v[0], v[1], req.Tag), nil
		}},
		funcCommand{name: core.CmdCheckUserPermission, aliases: []string{"check_user_permission"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "user_id", "permission")
			if err != nil {
				return nil, err
			}
			return b.CheckUserPermission(ctx, v[0], v[1], v[2], req.Tag), nil
		}},
		funcCommand{name: core.CmdCheckAdminOrOwner, aliases: []string{"check_admin_or_owner"}, run: func(ctx context.Context, req Request) (*dispatch.Pending, error) {
			v, err := req.Params.all("guild_id", "user_id")
			if err != nil {
				return nil, err
			}
			return b.CheckAdminOrOwner(ctx, v[0], v[1], req.Tag), nil
		}},
	}
}
