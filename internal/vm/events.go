package vm

import (
	"sync"

	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

type eventKey struct {
	source values.Value
	event  string
}

type eventHandler struct {
	target values.Context
	method string
}

// EventProcessor keeps the subscriptions made by ДобавитьОбработчик.
type EventProcessor struct {
	mu       sync.RWMutex
	handlers map[eventKey][]eventHandler
}

func NewEventProcessor() *EventProcessor {
	return &EventProcessor{handlers: make(map[eventKey][]eventHandler)}
}

// AddHandler subscribes method of target to event of source. A repeated
// subscription is kept once.
func (p *EventProcessor) AddHandler(source values.Value, event string, target values.Context, method string) {
	key := eventKey{source, token.Fold(event)}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range p.handlers[key] {
		if h.target == target && token.EqualFold(h.method, method) {
			return
		}
	}
	p.handlers[key] = append(p.handlers[key], eventHandler{target, method})
}

func (p *EventProcessor) RemoveHandler(source values.Value, event string, target values.Context, method string) {
	key := eventKey{source, token.Fold(event)}
	p.mu.Lock()
	defer p.mu.Unlock()
	list := p.handlers[key]
	for i, h := range list {
		if h.target == target && token.EqualFold(h.method, method) {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(p.handlers, key)
		return
	}
	p.handlers[key] = list
}

// HandlerCount reports how many handlers listen to event of source.
func (p *EventProcessor) HandlerCount(source values.Value, event string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers[eventKey{source, token.Fold(event)}])
}

// HandleEvent calls every handler of event in subscription order and
// stops at the first error.
func (p *EventProcessor) HandleEvent(source values.Value, event string, args []values.Value) error {
	p.mu.RLock()
	list := append([]eventHandler(nil), p.handlers[eventKey{source, token.Fold(event)}]...)
	p.mu.RUnlock()

	for _, h := range list {
		n, ok := findHandlerMethod(h.target, h.method)
		if !ok {
			return values.MethodNotFound(h.method)
		}
		var err error
		if obj, isScript := h.target.(*ScriptObject); isScript {
			_, err = obj.machine.ExecuteMethod(obj, n, args)
		} else {
			_, err = h.target.CallMethod(n, args)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
