package discord

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const BaseURL = "https://discord.com/api/v10"

const (
	maxMessagesLimit = 100
	maxBanDeleteDays = 7
)

// RequestSpec describes one REST call. The Authorization header is added by
// the Executor; Reason ends up in X-Audit-Log-Reason.
type RequestSpec struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Reason string
}

func path(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

type messageBody struct {
	Content string `json:"content"`
}

func SendMessage(channelID, content string) RequestSpec {
	return RequestSpec{
		Method: http.MethodPost,
		Path:   path("channels", channelID, "messages"),
		Body:   messageBody{Content: content},
	}
}

func EditMessage(channelID, messageID, content string) RequestSpec {
	return RequestSpec{
		Method: http.MethodPatch,
		Path:   path("channels", channelID, "messages", messageID),
		Body:   messageBody{Content: content},
	}
}

func DeleteMessage(channelID, messageID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodDelete,
		Path:   path("channels", channelID, "messages", messageID),
	}
}

func PinMessage(channelID, messageID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodPut,
		Path:   path("channels", channelID, "pins", messageID),
	}
}

func UnpinMessage(channelID, messageID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodDelete,
		Path:   path("channels", channelID, "pins", messageID),
	}
}

// GetMessages clamps limit to the 1..100 range the API accepts.
func GetMessages(channelID string, limit int) RequestSpec {
	limit = min(max(limit, 1), maxMessagesLimit)
	return RequestSpec{
		Method: http.MethodGet,
		Path:   path("channels", channelID, "messages"),
		Query:  url.Values{"limit": {strconv.Itoa(limit)}},
	}
}

type threadBody struct {
	Name                string `json:"name,omitempty"`
	AutoArchiveDuration int    `json:"auto_archive_duration,omitempty"`
}

func CreateThread(channelID, messageID, name string, autoArchiveMinutes int) RequestSpec {
	return RequestSpec{
		Method: http.MethodPost,
		Path:   path("channels", channelID, "messages", messageID, "threads"),
		Body:   threadBody{Name: name, AutoArchiveDuration: autoArchiveMinutes},
	}
}

// UpdateThread only sends the fields that are set.
func UpdateThread(threadID, name string, autoArchiveMinutes int) RequestSpec {
	return RequestSpec{
		Method: http.MethodPatch,
		Path:   path("channels", threadID),
		Body:   threadBody{Name: name, AutoArchiveDuration: max(autoArchiveMinutes, 0)},
	}
}

func DeleteThread(threadID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodDelete,
		Path:   path("channels", threadID),
	}
}

func AddThreadMember(threadID, userID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodPut,
		Path:   path("channels", threadID, "thread-members", userID),
	}
}

func RemoveThreadMember(threadID, userID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodDelete,
		Path:   path("channels", threadID, "thread-members", userID),
	}
}

func ListActiveGuildThreads(guildID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodGet,
		Path:   path("guilds", guildID, "threads", "active"),
	}
}

func GetGuild(guildID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodGet,
		Path:   path("guilds", guildID),
	}
}

func GetMember(guildID, userID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodGet,
		Path:   path("guilds", guildID, "members", userID),
	}
}

func KickMember(guildID, userID, reason string) RequestSpec {
	return RequestSpec{
		Method: http.MethodDelete,
		Path:   path("guilds", guildID, "members", userID),
		Reason: reason,
	}
}

type banBody struct {
	DeleteMessageSeconds int `json:"delete_message_seconds"`
}

// BanMember converts days of history to purge into the seconds field the
// API expects, capped at seven days.
func BanMember(guildID, userID, reason string, deleteMessageDays int) RequestSpec {
	days := min(max(deleteMessageDays, 0), maxBanDeleteDays)
	seconds := days * 24 * 60 * 60
	return RequestSpec{
		Method: http.MethodPut,
		Path:   path("guilds", guildID, "bans", userID),
		Body:   banBody{DeleteMessageSeconds: seconds},
		Reason: reason,
	}
}

func UnbanMember(guildID, userID string) RequestSpec {
	return RequestSpec{
		Method: http.MethodDelete,
		Path:   path("guilds", guildID, "bans", userID),
	}
}
