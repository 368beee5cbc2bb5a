package monitor

import (
	"context"
	"log"
	"time"

	"trading-core/internal/domain"
	"trading-core/internal/eventbus"
)

// Monitor watches the lifecycle topic and forwards domain.LifecycleEvent
// payloads of warning-or-worse severity to AlertFn (e.g. a webhook, Slack
// post, or stdout in a dev deployment). Other payload types on that topic,
// such as CloseRequest and EngineStateEvent, are skipped without an alert.
type Monitor struct {
	Bus     *eventbus.Bus
	AlertFn func(string)
}

func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.AlertFn == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}
	stream, unsub := m.Bus.Subscribe(eventbus.TopicLifecycle, 50)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				ev, ok := msg.(domain.LifecycleEvent)
				if !ok || ev.Severity == domain.SeverityInfo {
					continue
				}
				m.AlertFn(formatAlert(ev))
			}
		}
	}()
}

func formatAlert(ev domain.LifecycleEvent) string {
	return "[" + time.Now().Format(time.RFC3339) + "] " + string(ev.Severity) + " " + string(ev.Type) + ": " + ev.Component
}
