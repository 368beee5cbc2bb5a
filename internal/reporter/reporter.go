// Package reporter subscribes to the event bus and fans lifecycle events out
// to the Hub's events:log and to local logging, implementing the Event
// Reporter component from spec.md §2 item 9.
package reporter

import (
	"context"
	"log"

	"github.com/google/uuid"

	"trading-core/internal/domain"
	"trading-core/internal/eventbus"
	"trading-core/internal/position"
)

// EventSink persists a lifecycle event, satisfied by *hub.Hub.
type EventSink interface {
	PushEvent(ctx context.Context, ev domain.LifecycleEvent) error
}

// Reporter drains lifecycle-relevant topics and writes them to sink.
type Reporter struct {
	bus  *eventbus.Bus
	sink EventSink
}

func New(bus *eventbus.Bus, sink EventSink) *Reporter {
	return &Reporter{bus: bus, sink: sink}
}

// Run subscribes to every topic that carries a reportable lifecycle fact and
// blocks until ctx is cancelled. Intended to run in its own goroutine,
// panic-contained by the caller per spec.md §7's ComponentCrashed policy.
func (r *Reporter) Run(ctx context.Context) {
	topics := []eventbus.Topic{
		eventbus.TopicSignal,
		eventbus.TopicDecision,
		eventbus.TopicOrderUpdate,
		eventbus.TopicFill,
		eventbus.TopicPositionChange,
		eventbus.TopicLifecycle,
	}

	type sub struct {
		topic eventbus.Topic
		ch    <-chan any
		unsub func()
	}
	subs := make([]sub, 0, len(topics))
	for _, t := range topics {
		ch, unsub := r.bus.Subscribe(t, 256)
		subs = append(subs, sub{topic: t, ch: ch, unsub: unsub})
	}
	defer func() {
		for _, s := range subs {
			s.unsub()
		}
	}()

	cases := make(chan reportedEvent, 256)
	for _, s := range subs {
		go r.forward(ctx, s.topic, s.ch, cases)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case item := <-cases:
			ev := r.toLifecycleEvent(item.topic, item.v)
			if err := r.sink.PushEvent(ctx, ev); err != nil {
				log.Printf("[REPORT] push event failed: %v", err)
			}
		}
	}
}

type reportedEvent struct {
	topic eventbus.Topic
	v     any
}

func (r *Reporter) forward(ctx context.Context, topic eventbus.Topic, ch <-chan any, out chan<- reportedEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			select {
			case out <- reportedEvent{topic, v}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Reporter) toLifecycleEvent(topic eventbus.Topic, payload any) domain.LifecycleEvent {
	evType, severity := classify(topic, payload)
	return domain.LifecycleEvent{
		ID:        uuid.NewString(),
		Type:      evType,
		Component: string(topic),
		Severity:  severity,
		Payload:   payload,
	}
}

func classify(topic eventbus.Topic, payload any) (domain.EventType, domain.Severity) {
	switch topic {
	case eventbus.TopicSignal:
		return domain.EventSignalGenerated, domain.SeverityInfo
	case eventbus.TopicDecision:
		if d, ok := payload.(domain.Decision); ok && d.Verdict == domain.VerdictReject {
			return domain.EventDecisionMade, domain.SeverityWarning
		}
		return domain.EventDecisionMade, domain.SeverityInfo
	case eventbus.TopicOrderUpdate:
		return domain.EventOrderSubmitted, domain.SeverityWarning
	case eventbus.TopicFill:
		return domain.EventFill, domain.SeverityInfo
	case eventbus.TopicPositionChange:
		if p, ok := payload.(domain.Position); ok {
			switch p.Status {
			case domain.PositionClosed:
				return domain.EventPositionClosed, domain.SeverityInfo
			case domain.PositionOpen:
				return domain.EventPositionOpened, domain.SeverityInfo
			}
		}
		return domain.EventPositionUpdated, domain.SeverityInfo
	case eventbus.TopicLifecycle:
		switch v := payload.(type) {
		case domain.EngineStateEvent:
			sev := domain.SeverityWarning
			if v.Type == domain.EventEngineResumed {
				sev = domain.SeverityInfo
			}
			return v.Type, sev
		case position.CloseRequest:
			return domain.EventPositionUpdated, domain.SeverityInfo
		default:
			return domain.EventEngineHalted, domain.SeverityWarning
		}
	default:
		return domain.EventEngineHalted, domain.SeverityWarning
	}
}
