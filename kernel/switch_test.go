package kernel

import "testing"

func TestRequestSwitch(t *testing.T) {
	tests := []struct {
		name     string
		from, to uint32
		want     bool
	}{
		{"first switch", 0, 0x2000_0100, true},
		{"between threads", 0x2000_0100, 0x2000_0200, true},
		{"to self", 0x2000_0100, 0x2000_0100, false},
		{"no target", 0x2000_0100, 0, false},
		{"empty", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := newFakeCPU()
			sw := newSwitchService(cpu)
			sw.set(tt.from, tt.to)

			sw.RequestSwitch()
			if cpu.pended != tt.want {
				t.Fatalf("RequestSwitch() pended = %v, want %v", cpu.pended, tt.want)
			}
			if cpu.primask {
				t.Fatalf("interrupts left masked")
			}
		})
	}
}

func TestSwitchServiceCancel(t *testing.T) {
	cpu := newFakeCPU()
	sw := newSwitchService(cpu)
	sw.set(0x2000_0100, 0x2000_0200)
	sw.RequestSwitch()

	sw.cancel()
	if cpu.pended {
		t.Fatalf("pended after cancel")
	}
	from, to := sw.Slots()
	if from != 0x2000_0100 || to != 0 {
		t.Fatalf("Slots() = %#x, %#x, want %#x, 0", from, to, 0x2000_0100)
	}
	if !sw.consumed() {
		t.Fatalf("consumed() = false after cancel")
	}
}
