package commands

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/muratoffalex/discordctl/internal/locale"
	"github.com/muratoffalex/discordctl/internal/logger"
)

type event struct {
	Event            string `json:"event"`
	Tag              string `json:"tag"`
	Message          string `json:"message,omitempty"`
	Command          string `json:"command,omitempty"`
	SecondsRemaining *int64 `json:"seconds_remaining,omitempty"`
}

// LineWriter is a dispatch.Handler that prints each outcome as one JSON line.
type LineWriter struct {
	mu        sync.Mutex
	enc       *json.Encoder
	localizer *locale.Localizer
	logger    logger.Logger
}

func NewLineWriter(w io.Writer, localizer *locale.Localizer, l logger.Logger) *LineWriter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &LineWriter{enc: enc, localizer: localizer, logger: l}
}

func (w *LineWriter) OnSuccess(tag, message string) {
	w.write(event{Event: "success", Tag: tag, Message: message})
}

func (w *LineWriter) OnError(tag, message string) {
	w.write(event{Event: "error", Tag: tag, Message: message})
}

func (w *LineWriter) OnCooldown(tag, command string, secondsRemaining int64) {
	w.write(event{
		Event:   "cooldown",
		Tag:     tag,
		Command: command,
		Message: w.localizer.Text(locale.MsgCooldownActive, map[string]any{
			"Command": command,
			"Seconds": secondsRemaining,
		}),
		SecondsRemaining: &secondsRemaining,
	})
}

func (w *LineWriter) write(e event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(e); err != nil {
		w.logger.WithError(err).WithField("tag", e.Tag).Error("Failed to write outcome")
	}
}
