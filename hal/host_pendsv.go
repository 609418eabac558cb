//go:build !tinygo

package hal

// pendSVHandler is the simulated PendSV_Handler. It runs the instruction
// sequence of pendsv_cortexm.c in the same order against the simulated
// register file and RAM:
//
//	    mrs   r3, primask
//	    cpsid i
//	    ldr   r0, [r2, #0]      @ From
//	    ldr   r1, [r2, #4]      @ To
//	    cbz   r0, 1f
//	    mrs   r0, psp
//	    stmdb r0!, {r4-r11}
//	1:  ldmia r1!, {r4-r11}
//	    msr   psp, r1
//	    str   r0, [r2, #0]
//	    str   zero, [r2, #4]
//	    msr   primask, r3
//	    orr   lr, lr, #4
func (m *Machine) pendSVHandler() {
	m.switches.Add(1)

	r3 := m.primask
	m.primask = true

	r2 := &m.slots
	r0, r1 := r2.From, r2.To
	if r0 != 0 {
		r0 = m.stmdb(m.psp, 4, 11)
	}
	r1 = m.ldmia(r1, 4, 11)
	m.psp = r1
	r2.From, r2.To = r0, 0

	m.primask = r3
	m.lr |= 0x4
}

// stmdb pushes rLo..rHi below sp, lowest register at the lowest address, and
// returns the new sp.
func (m *Machine) stmdb(sp uint32, lo, hi int) uint32 {
	sp -= uint32(hi-lo+1) * 4
	for i := lo; i <= hi; i++ {
		m.Store32(sp+uint32(i-lo)*4, m.r[i])
	}
	return sp
}

// ldmia loads rLo..rHi upwards from sp and returns the new sp.
func (m *Machine) ldmia(sp uint32, lo, hi int) uint32 {
	for i := lo; i <= hi; i++ {
		m.r[i] = m.Load32(sp)
		sp += 4
	}
	return sp
}
