package grbl

// writeRealtime writes a single control byte, bypassing the queue and the ledger.
func (e *Engine) writeRealtime(b byte) error {
	err := e.w.write([]byte{b})
	if err == nil || err == ErrClosed {
		return err
	}
	return &LinkError{Op: "write", Err: err}
}
