package escalation

import (
	"fmt"
	"strings"
	"time"
)

// authorityMessage formats the alert sent to the configured authority
// contact. It carries the incident id so responders can reference it.
func authorityMessage(r *Record) string {
	var sb strings.Builder
	sb.WriteString("EMERGENCY ALERT - VisionGlove Security System\n")
	fmt.Fprintf(&sb, "Threat Level: %d (%s)\n", int(r.Level), r.Level)
	fmt.Fprintf(&sb, "Location: %s\n", r.Location)
	fmt.Fprintf(&sb, "Time: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "Incident ID: %s\n", r.ID)
	sb.WriteString("Immediate response required.")
	return sb.String()
}

// contactMessage formats the alert sent to personal emergency contacts.
func contactMessage(level int, location string, at time.Time) string {
	var sb strings.Builder
	sb.WriteString("VisionGlove Alert\n")
	fmt.Fprintf(&sb, "Alert Level: %d\n", level)
	fmt.Fprintf(&sb, "Location: %s\n", location)
	fmt.Fprintf(&sb, "Time: %s\n", at.Format("15:04:05"))
	if level >= 3 {
		sb.WriteString("EMERGENCY - Authorities have been contacted.")
	} else {
		sb.WriteString("Monitoring situation.")
	}
	return sb.String()
}
