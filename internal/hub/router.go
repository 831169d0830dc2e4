package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"tradehub/internal/metrics"
	"tradehub/internal/models"
	"tradehub/logger"
)

// State is the router's connection lifecycle position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticated
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Handlers receives the typed hub messages. A nil handler drops its
// message. Each signal handler is given the time the message arrived,
// not the time it was sent.
type Handlers struct {
	UserPayload       func(strategies []StrategyPayload) error
	BuySignal         func(signal Signal, receivedAt time.Time) error
	SellSignal        func(signal Signal, receivedAt time.Time) error
	CloseTradedSignal func(signal Signal, receivedAt time.Time) error
	StopTradedSignal  func(signal Signal, receivedAt time.Time) error
}

// Router owns the hub connection state and routes inbound events to
// handlers. There is one router per process; all state mutation happens
// on the Run goroutine, so no locking is needed beyond the state word
// itself, which is atomic so other goroutines can observe it.
type Router struct {
	transport     Transport
	handlers      Handlers
	apiKey        string
	tradedChannel string
	state         atomic.Int32
	shutdown      func(error)
	shutdownOnce  sync.Once
	now           func() time.Time
	log           *logger.Entry
}

func NewRouter(transport Transport, handlers Handlers, apiKey, tradedChannel string, shutdown func(error)) *Router {
	if shutdown == nil {
		shutdown = func(error) {}
	}
	return &Router{
		transport:     transport,
		handlers:      handlers,
		apiKey:        apiKey,
		tradedChannel: tradedChannel,
		shutdown:      shutdown,
		now:           time.Now,
		log:           logger.GetLogger().WithComponent("hub_router"),
	}
}

// State reports the current lifecycle state.
func (r *Router) State() State {
	return State(r.state.Load())
}

func (r *Router) setState(s State) {
	r.state.Store(int32(s))
}

// Run connects and processes events until the context is cancelled, the
// transport's event channel closes, or a fatal error occurs. Connect
// failures are always fatal and escalate to the shutdown collaborator.
func (r *Router) Run(ctx context.Context) error {
	r.setState(StateConnecting)
	r.log.Info("connecting to the hub")

	if err := r.transport.Start(ctx); err != nil {
		r.log.WithError(err).Error("unable to connect to the hub")
		r.terminate(err)
		return err
	}

	for {
		select {
		case <-ctx.Done():
			r.transport.Stop()
			r.setState(StateDisconnected)
			return ctx.Err()
		case ev, ok := <-r.transport.Events():
			if !ok {
				r.setState(StateDisconnected)
				return nil
			}
			if err := r.handle(ev); err != nil {
				return err
			}
		}
	}
}

// handle processes one event. A non-nil return ends Run.
func (r *Router) handle(ev Event) error {
	switch ev.Kind {
	case EventOpen:
		r.setState(StateConnected)
		r.log.Info("connected to the hub")
	case EventAuthenticated:
		r.setState(StateAuthenticated)
		r.log.Info("authenticated with the hub")
	case EventConnectError:
		r.log.WithError(ev.Err).Error("unable to connect to the hub")
		r.terminate(ev.Err)
		return ev.Err
	case EventError:
		if r.State() != StateAuthenticated {
			r.log.WithError(ev.Err).Error("received an error from the hub before authentication")
			r.terminate(ev.Err)
			return ev.Err
		}
		r.log.WithError(ev.Err).Warn("received an error from the hub")
	case EventDisconnect:
		// The transport reconnects on its own; authentication does not
		// survive the drop.
		r.setState(StateDisconnected)
		r.log.Warn("connection to the hub has been interrupted")
	case EventMessage:
		r.dispatch(ev)
	}
	return nil
}

// dispatch routes a typed message to its handler. Handler errors and
// panics are swallowed here so one failing handler never takes down the
// connection or blocks later messages.
func (r *Router) dispatch(ev Event) {
	receivedAt := r.now()
	logger.IncrementSignalReceived(ev.Channel, len(ev.Data))
	metrics.IncrementSignal(ev.Channel)

	switch ev.Channel {
	case ChannelUserPayload:
		var strategies []StrategyPayload
		if !r.decode(ev, &strategies) {
			return
		}
		if r.handlers.UserPayload != nil {
			r.invoke(ev.Channel, func() error { return r.handlers.UserPayload(strategies) })
		}
	case ChannelBuySignal:
		r.dispatchSignal(ev, receivedAt, r.handlers.BuySignal)
	case ChannelSellSignal:
		r.dispatchSignal(ev, receivedAt, r.handlers.SellSignal)
	case ChannelCloseTradedSignal:
		r.dispatchSignal(ev, receivedAt, r.handlers.CloseTradedSignal)
	case ChannelStopTradedSignal:
		r.dispatchSignal(ev, receivedAt, r.handlers.StopTradedSignal)
	default:
		r.log.WithFields(logger.Fields{"channel": ev.Channel}).Debug("ignoring message on unknown channel")
	}
}

func (r *Router) dispatchSignal(ev Event, receivedAt time.Time, handler func(Signal, time.Time) error) {
	var signal Signal
	if !r.decode(ev, &signal) {
		return
	}
	if handler == nil {
		return
	}
	r.invoke(ev.Channel, func() error { return handler(signal, receivedAt) })
}

func (r *Router) decode(ev Event, out interface{}) bool {
	if err := json.Unmarshal(ev.Data, out); err != nil {
		r.log.WithError(err).WithFields(logger.Fields{"channel": ev.Channel}).Warn("failed to decode message")
		return false
	}
	return true
}

func (r *Router) invoke(channel string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			logger.IncrementHandlerFailure()
			r.log.WithFields(logger.Fields{"channel": channel, "panic": p}).Error("handler panicked")
		}
	}()
	if err := fn(); err != nil {
		logger.IncrementHandlerFailure()
		r.log.WithError(err).WithFields(logger.Fields{"channel": channel}).Warn("handler failed")
	}
}

// EmitSignalTraded notifies the hub that a signal was acted on.
func (r *Router) EmitSignalTraded(symbol, strategyID, strategyName string, quantity decimal.Decimal, tradingType models.TradingType) error {
	payload := newSignalTraded(r.apiKey, symbol, strategyID, strategyName, quantity, tradingType)
	if err := r.transport.Emit(r.tradedChannel, payload); err != nil {
		return fmt.Errorf("failed to emit traded signal: %w", err)
	}
	return nil
}

// terminate marks the router dead and invokes the shutdown collaborator
// exactly once, no matter how many fatal events arrive.
func (r *Router) terminate(err error) {
	r.setState(StateTerminated)
	r.shutdownOnce.Do(func() {
		r.shutdown(err)
	})
}
