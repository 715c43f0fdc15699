package vm

// Timer is an 8-bit countdown that stops at zero.
type Timer struct {
	value uint8
}

func (t *Timer) Set(v uint8) {
	t.value = v
}

func (t *Timer) Value() uint8 {
	return t.value
}

// Tick decrements the timer unless it already reached zero.
func (t *Timer) Tick() {
	if t.value > 0 {
		t.value--
	}
}

// Active reports whether the timer is still counting.
func (t *Timer) Active() bool {
	return t.value > 0
}
