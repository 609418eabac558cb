//go:build tinygo && cortexm

package hal

// #include <stdint.h>
// struct ember_switch_slots {
// 	volatile uint32_t from_sp;
// 	volatile uint32_t to_sp;
// };
// extern struct ember_switch_slots ember_switch_service;
import "C"

import (
	"device/arm"
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// System control space registers shared by ARMv7-M and ARMv8-M.
var (
	scbICSR  = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000ED04)))
	scbSHPR3 = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000ED20)))
	systCSR  = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000E010)))
	systRVR  = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000E014)))
	systCVR  = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000E018)))
)

const (
	icsrPendSVSet = 1 << 28
	icsrPendSVClr = 1 << 27

	shpr3PendSVPos = 16

	systEnable    = 1 << 0
	systTickInt   = 1 << 1
	systClkSource = 1 << 2

	// SysTick fires every 10ms.
	ticksPerSecond = 100
)

const heapSize = 16 << 10

var heapArena [heapSize]byte

var tickHandler func()

type cortexM struct{}

func newCortexM() *cortexM {
	scbSHPR3.ReplaceBits(0xFF, 0xFF, shpr3PendSVPos)
	return &cortexM{}
}

func (cortexM) DisableInterrupts() IRQState { return IRQState(interrupt.Disable()) }

func (cortexM) RestoreInterrupts(state IRQState) { interrupt.Restore(interrupt.State(state)) }

// ICSR is write-one-to-act; zero bits are ignored.
func (cortexM) PendSwitch()   { scbICSR.Set(icsrPendSVSet) }
func (cortexM) CancelSwitch() { scbICSR.Set(icsrPendSVClr) }

func (cortexM) SwitchSlots() *SwitchSlots {
	return (*SwitchSlots)(unsafe.Pointer(&C.ember_switch_service))
}

// EntryPC returns the function pointer of fn. A TinyGo func value is a
// {context, fn} pair; the context is dropped.
func (cortexM) EntryPC(fn Entry) Address {
	words := (*[2]uintptr)(unsafe.Pointer(&fn))
	return Address(words[1])
}

func (cortexM) IdleEntry() Entry { return idleLoop }

func (cortexM) Nop() { arm.Asm("nop") }

func (cortexM) StartTick(handler func()) {
	tickHandler = handler
	systRVR.Set(machine.CPUFrequency()/ticksPerSecond - 1)
	systCVR.Set(0)
	systCSR.Set(systEnable | systTickInt | systClkSource)
}

func (cortexM) HeapRegion() (Address, uint32) {
	return Address(uintptr(unsafe.Pointer(&heapArena[0]))), heapSize
}

func (cortexM) Load32(addr Address) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(addr)))
}

func (cortexM) Store32(addr Address, v uint32) {
	*(*uint32)(unsafe.Pointer(uintptr(addr))) = v
}

func idleLoop(Address) {
	for {
		arm.Asm("wfi")
	}
}

//export SysTick_Handler
func sysTickHandler() {
	if tickHandler != nil {
		tickHandler()
	}
}
