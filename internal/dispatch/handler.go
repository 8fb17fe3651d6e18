package dispatch

// Handler receives terminal outcomes. The dispatcher calls it from a single
// goroutine, so implementations never see two callbacks at once.
type Handler interface {
	OnSuccess(tag, message string)
	OnError(tag, message string)
	OnCooldown(tag, command string, secondsRemaining int64)
}

// Observer sees every outcome before it is handed to the Handler. Observe
// runs on the goroutine that produced the outcome and must not block.
type Observer interface {
	Observe(o Outcome)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	Success  func(tag, message string)
	Error    func(tag, message string)
	Cooldown func(tag, command string, secondsRemaining int64)
}

func (h HandlerFuncs) OnSuccess(tag, message string) {
	if h.Success != nil {
		h.Success(tag, message)
	}
}

func (h HandlerFuncs) OnError(tag, message string) {
	if h.Error != nil {
		h.Error(tag, message)
	}
}

func (h HandlerFuncs) OnCooldown(tag, command string, secondsRemaining int64) {
	if h.Cooldown != nil {
		h.Cooldown(tag, command, secondsRemaining)
	}
}
