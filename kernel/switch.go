package kernel

import "ember/hal"

// SwitchService is the scheduler's side of the SwitchSlots rendezvous with
// the switch routine. Slots are only touched with interrupts masked.
type SwitchService struct {
	cpu   hal.CPU
	slots *hal.SwitchSlots
}

func newSwitchService(cpu hal.CPU) SwitchService {
	return SwitchService{cpu: cpu, slots: cpu.SwitchSlots()}
}

// RequestSwitch arms the switch exception if there is a target and it is not
// the thread being switched from.
func (s *SwitchService) RequestSwitch() {
	state := s.cpu.DisableInterrupts()
	defer s.cpu.RestoreInterrupts(state)

	if s.slots.To != 0 && s.slots.To != s.slots.From {
		s.cpu.PendSwitch()
	}
}

// Slots returns the current slot values.
func (s *SwitchService) Slots() (from, to hal.Address) {
	state := s.cpu.DisableInterrupts()
	defer s.cpu.RestoreInterrupts(state)
	return s.slots.From, s.slots.To
}

func (s *SwitchService) set(from, to hal.Address) {
	s.slots.From = from
	s.slots.To = to
}

// cancel withdraws a request the routine has not consumed yet.
func (s *SwitchService) cancel() {
	s.cpu.CancelSwitch()
	s.slots.To = 0
}

// consumed reports whether the routine has run since the last set.
func (s *SwitchService) consumed() bool { return s.slots.To == 0 }

// saved is the SP the routine pushed the outgoing registers to.
func (s *SwitchService) saved() hal.Address { return s.slots.From }
