package notifier

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteEvent writes ev in text/event-stream framing:
//
//	event: <type>
//	data: <json>
//	<blank line>
func WriteEvent(w io.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

// WriteHeartbeat writes a comment line that clients ignore but proxies count
// as traffic.
func WriteHeartbeat(w io.Writer) error {
	_, err := io.WriteString(w, ": heartbeat\n\n")
	return err
}
