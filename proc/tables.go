package proc

import "biscuit32/sync2"

/// AllocFD installs fd in the lowest free file-descriptor slot and
/// returns that slot, or ok=false if the table is full.
func (p *PCB) AllocFD(fd *FileDescriptor) (int, bool) {
	for i := range p.FDs {
		if p.FDs[i] == nil {
			p.FDs[i] = fd
			return i, true
		}
	}
	return 0, false
}

/// FreeFDSlots reports how many descriptor-table slots are empty.
func (p *PCB) FreeFDSlots() int {
	n := 0
	for _, fd := range p.FDs {
		if fd == nil {
			n++
		}
	}
	return n
}

/// CloseFD clears slot i, returning false if i is out of range or
/// already empty.
func (p *PCB) CloseFD(i int) bool {
	if i < 0 || i >= len(p.FDs) || p.FDs[i] == nil {
		return false
	}
	p.FDs[i] = nil
	return true
}

/// DupFD copies the descriptor at slot i into the lowest free slot,
/// returning the new slot, or ok=false if i is invalid or the table
/// is full.
func (p *PCB) DupFD(i int) (int, bool) {
	if i < 0 || i >= len(p.FDs) || p.FDs[i] == nil {
		return 0, false
	}
	return p.AllocFD(p.FDs[i])
}

/// AllocSem installs a fresh semaphore of initial count n in the lowest
/// free slot and returns it.
func (p *PCB) AllocSem(n int) (int, bool) {
	for i := range p.Semaphores {
		if p.Semaphores[i] == nil {
			p.Semaphores[i] = sync2.NewSemaphore(n)
			return i, true
		}
	}
	return 0, false
}

/// Sem returns the semaphore at slot i, or ok=false if i is out of
/// range or empty.
func (p *PCB) Sem(i int) (*sync2.Semaphore, bool) {
	if i < 0 || i >= len(p.Semaphores) || p.Semaphores[i] == nil {
		return nil, false
	}
	return p.Semaphores[i], true
}

/// CloseSem clears slot i, returning false if it was already empty or
/// out of range.
func (p *PCB) CloseSem(i int) bool {
	if i < 0 || i >= len(p.Semaphores) || p.Semaphores[i] == nil {
		return false
	}
	p.Semaphores[i] = nil
	return true
}
