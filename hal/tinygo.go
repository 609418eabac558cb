//go:build tinygo && cortexm

package hal

import (
	"machine"
)

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	cpu    *cortexM
}

// New returns a Cortex-M HAL implementation for boards with an on-board LED
// (Pico 2 / RP2350 and similar).
//
// UART: UART0 on the board's default UART pins, 115200 8N1.
func New() HAL {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART_TX_PIN,
		RX:       machine.UART_RX_PIN,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		cpu:    newCortexM(),
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) Display() Display { return noDisplay{} }
func (h *tinyGoHAL) CPU() CPU         { return h.cpu }
