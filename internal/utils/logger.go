package utils

import (
	"log"
	"strings"
)

// LogEvent writes one "[MODULE] action=... request_id=... msg=..." line.
// Services log store failures and orphaned files through it, and the audit
// LogSink uses it for admin actions. Multi-line driver errors are folded onto
// one line; a missing request id is logged as "-".
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	if req == "" {
		req = "-"
	}
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, NormalizeSpace(message))
}
