package recognition

import (
	"bufio"
	"io"
	"strings"
)

// WatchQuit calls stop when a line reading "q" arrives on r.
// It returns when r is exhausted or stop was called.
func WatchQuit(r io.Reader, stop func()) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if strings.EqualFold(strings.TrimSpace(scanner.Text()), "q") {
			stop()
			return
		}
	}
}
