package grbl

import (
	"bytes"
	"context"
	"strings"
)

// maxLineLength bounds a response line; a longer line is dropped as noise up
// to its newline.
const maxLineLength = 1024

// readLines reads newline-terminated lines from link and passes each
// non-empty trimmed line to handle. It returns nil once ctx is done and the
// read error otherwise. Read timeouts are not errors.
func readLines(ctx context.Context, link Link, handle func(string)) error {
	buf := make([]byte, 256)
	var partial []byte
	discarding := false
	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := link.Read(buf)
		if n > 0 {
			partial = append(partial, buf[:n]...)
			for {
				i := bytes.IndexByte(partial, '\n')
				if i < 0 {
					break
				}
				line := strings.TrimSpace(string(partial[:i]))
				partial = partial[i+1:]
				if discarding {
					discarding = false
					continue
				}
				if line != "" {
					handle(line)
				}
			}
			if len(partial) > maxLineLength {
				partial = nil
				discarding = true
			}
		}
		if err != nil && !isTimeout(err) {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}
