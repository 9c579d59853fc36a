package execution

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/charleschow/arb-engine/internal/alerts"
	"github.com/charleschow/arb-engine/internal/busproto"
	"github.com/charleschow/arb-engine/internal/telemetry"
)

// KillSwitchEvent is published on busproto.ChanKillSwitch by any
// producer (a risk check, an operator command, a future circuit on
// repeated order errors) to engage or release the switch.
type KillSwitchEvent struct {
	Engage bool   `json:"engage"`
	Reason string `json:"reason"`
}

// killSwitch is an atomic.Bool plus the bus event that flips it,
// modeled on 0xtitan6-polymarket-mm/internal/risk.Manager's KillSignal
// channel, generalized from a cooldown-timer trigger to an explicit
// engage/release switch per spec — there is no implicit expiry here;
// release requires its own event.
type killSwitch struct {
	engaged atomic.Bool
}

func (k *killSwitch) engage() { k.engaged.Store(true) }
func (k *killSwitch) release() { k.engaged.Store(false) }
func (k *killSwitch) isEngaged() bool { return k.engaged.Load() }

func (s *Service) onKillSwitch(env busproto.Envelope, raw []byte) {
	var evt KillSwitchEvent
	if err := json.Unmarshal(env.Payload, &evt); err != nil {
		telemetry.Warnf("execution: bad kill switch payload: %v", err)
		return
	}
	if evt.Engage {
		s.kill.engage()
		telemetry.Warnf("execution: kill switch engaged: %s", evt.Reason)
		s.notifier.Send(alerts.KillSwitchTriggered, evt.Reason, map[string]string{"action": "engage"})
	} else {
		s.kill.release()
		telemetry.Infof("execution: kill switch released: %s", evt.Reason)
	}
}

// EngageKillSwitch lets any in-process caller (e.g. a future
// repeated-error circuit) trip the switch without going through the
// bus round trip; it still publishes the event so other execution
// replicas see it too.
func (s *Service) EngageKillSwitch(ctx context.Context, reason string) {
	s.kill.engage()
	s.notifier.Send(alerts.KillSwitchTriggered, reason, map[string]string{"action": "engage"})
	if err := s.b.Publish(ctx, busproto.ChanKillSwitch, "kill_switch", "", 0, KillSwitchEvent{Engage: true, Reason: reason}); err != nil {
		telemetry.Warnf("execution: publish kill switch engage: %v", err)
	}
}
