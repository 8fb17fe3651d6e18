// Package locale renders the human readable outcome messages delivered to
// callers, in the configured interface language.
package locale

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

const localesDir = "locales"

const (
	MsgSuccess           = "success"
	MsgSuccessNoContent  = "success_no_content"
	MsgErrorStatus       = "error_status"
	MsgErrorTransport    = "error_transport"
	MsgErrorPayload      = "error_payload"
	MsgErrorRejected     = "error_rejected"
	MsgUserKicked        = "user_kicked"
	MsgUserBanned        = "user_banned"
	MsgUserUnbanned      = "user_unbanned"
	MsgPermissionResult  = "permission_result"
	MsgAdminOwnerResult  = "admin_owner_result"
	MsgUnknownPermission = "unknown_permission"
	MsgInvalidParameter  = "invalid_parameter"
	MsgCooldownActive    = "cooldown_active"
	MsgUnknownCommand    = "unknown_command"
	MsgMalformedRequest  = "malformed_request"
)

type Localizer struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	lang      language.Tag
}

func New(lang string) (*Localizer, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse interface language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := localeFS.ReadDir(localesDir)
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".toml") {
			continue
		}
		data, err := localeFS.ReadFile(path.Join(localesDir, file.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(data, file.Name()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file.Name(), err)
		}
	}

	return &Localizer{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, tag.String(), language.English.String()),
		lang:      tag,
	}, nil
}

// Language reports the configured language tag.
func (l *Localizer) Language() string {
	return l.lang.String()
}

// Text renders messageID with data. Unknown IDs render as the ID itself so
// a missing translation never hides an outcome.
func (l *Localizer) Text(messageID string, data map[string]any) string {
	msg, err := l.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID
	}
	return msg
}
