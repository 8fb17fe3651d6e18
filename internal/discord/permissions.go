package discord

import (
	"fmt"
	"strconv"
	"strings"
)

type Permission uint64

const (
	PermissionCreateInstantInvite Permission = 1 << iota
	PermissionKickMembers
	PermissionBanMembers
	PermissionAdministrator
	PermissionManageChannels
	PermissionManageGuild
	PermissionAddReactions
	PermissionViewAuditLog
	PermissionPrioritySpeaker
	PermissionStream
	PermissionViewChannel
	PermissionSendMessages
	PermissionSendTTSMessages
	PermissionManageMessages
	PermissionEmbedLinks
	PermissionAttachFiles
	PermissionReadMessageHistory
	PermissionMentionEveryone
	PermissionUseExternalEmojis
	PermissionViewGuildInsights
	PermissionConnect
	PermissionSpeak
	PermissionMuteMembers
	PermissionDeafenMembers
	PermissionMoveMembers
	PermissionUseVAD
	PermissionChangeNickname
	PermissionManageNicknames
	PermissionManageRoles
	PermissionManageWebhooks
	PermissionManageGuildExpressions
	PermissionUseApplicationCommands
	PermissionRequestToSpeak
	PermissionManageEvents
	PermissionManageThreads
	PermissionCreatePublicThreads
	PermissionCreatePrivateThreads
	PermissionUseExternalStickers
	PermissionSendMessagesInThreads
	PermissionUseEmbeddedActivities
	PermissionModerateMembers
)

const allPermissions = PermissionModerateMembers<<1 - 1

var permissionNames = map[string]Permission{
	"CREATE_INSTANT_INVITE":    PermissionCreateInstantInvite,
	"KICK_MEMBERS":             PermissionKickMembers,
	"BAN_MEMBERS":              PermissionBanMembers,
	"ADMINISTRATOR":            PermissionAdministrator,
	"MANAGE_CHANNELS":          PermissionManageChannels,
	"MANAGE_GUILD":             PermissionManageGuild,
	"ADD_REACTIONS":            PermissionAddReactions,
	"VIEW_AUDIT_LOG":           PermissionViewAuditLog,
	"PRIORITY_SPEAKER":         PermissionPrioritySpeaker,
	"STREAM":                   PermissionStream,
	"VIEW_CHANNEL":             PermissionViewChannel,
	"SEND_MESSAGES":            PermissionSendMessages,
	"SEND_TTS_MESSAGES":        PermissionSendTTSMessages,
	"MANAGE_MESSAGES":          PermissionManageMessages,
	"EMBED_LINKS":              PermissionEmbedLinks,
	"ATTACH_FILES":             PermissionAttachFiles,
	"READ_MESSAGE_HISTORY":     PermissionReadMessageHistory,
	"MENTION_EVERYONE":         PermissionMentionEveryone,
	"USE_EXTERNAL_EMOJIS":      PermissionUseExternalEmojis,
	"VIEW_GUILD_INSIGHTS":      PermissionViewGuildInsights,
	"CONNECT":                  PermissionConnect,
	"SPEAK":                    PermissionSpeak,
	"MUTE_MEMBERS":             PermissionMuteMembers,
	"DEAFEN_MEMBERS":           PermissionDeafenMembers,
	"MOVE_MEMBERS":             PermissionMoveMembers,
	"USE_VAD":                  PermissionUseVAD,
	"CHANGE_NICKNAME":          PermissionChangeNickname,
	"MANAGE_NICKNAMES":         PermissionManageNicknames,
	"MANAGE_ROLES":             PermissionManageRoles,
	"MANAGE_WEBHOOKS":          PermissionManageWebhooks,
	"MANAGE_GUILD_EXPRESSIONS": PermissionManageGuildExpressions,
	"USE_APPLICATION_COMMANDS": PermissionUseApplicationCommands,
	"REQUEST_TO_SPEAK":         PermissionRequestToSpeak,
	"MANAGE_EVENTS":            PermissionManageEvents,
	"MANAGE_THREADS":           PermissionManageThreads,
	"CREATE_PUBLIC_THREADS":    PermissionCreatePublicThreads,
	"CREATE_PRIVATE_THREADS":   PermissionCreatePrivateThreads,
	"USE_EXTERNAL_STICKERS":    PermissionUseExternalStickers,
	"SEND_MESSAGES_IN_THREADS": PermissionSendMessagesInThreads,
	"USE_EMBEDDED_ACTIVITIES":  PermissionUseEmbeddedActivities,
	"MODERATE_MEMBERS":         PermissionModerateMembers,
}

// ParsePermission accepts flag names in any case, with spaces or dashes in
// place of underscores ("kick members", "Ban-Members").
func ParsePermission(name string) (Permission, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	if p, ok := permissionNames[normalized]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPermission, name)
}

func (p Permission) Has(flag Permission) bool {
	return p&flag == flag
}

type Role struct {
	ID          string `json:"id"`
	Permissions string `json:"permissions"`
}

type Guild struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Roles   []Role `json:"roles"`
}

type Member struct {
	Roles []string `json:"roles"`
}

// Validate reports the first field the permission resolution needs but the
// payload lacks.
func (g Guild) Validate() error {
	if g.OwnerID == "" {
		return &PayloadError{Field: "owner_id"}
	}
	if g.Roles == nil {
		return &PayloadError{Field: "roles"}
	}
	return nil
}

func (m Member) Validate() error {
	if m.Roles == nil {
		return &PayloadError{Field: "roles"}
	}
	return nil
}

// MemberPermissions computes the guild-level permission bitfield of a member:
// the @everyone role (whose id equals the guild id) OR-ed with each of the
// member's roles. Owners and administrators get every flag.
func MemberPermissions(guild Guild, member Member, userID string) (Permission, error) {
	if err := guild.Validate(); err != nil {
		return 0, err
	}
	if err := member.Validate(); err != nil {
		return 0, err
	}
	if guild.OwnerID == userID {
		return allPermissions, nil
	}

	byID := make(map[string]Permission, len(guild.Roles))
	for _, role := range guild.Roles {
		bits, err := strconv.ParseUint(role.Permissions, 10, 64)
		if err != nil {
			return 0, &PayloadError{Field: "roles.permissions", Err: err}
		}
		byID[role.ID] = Permission(bits)
	}

	perms := byID[guild.ID]
	for _, roleID := range member.Roles {
		perms |= byID[roleID]
	}

	if perms.Has(PermissionAdministrator) {
		return allPermissions, nil
	}
	return perms, nil
}
