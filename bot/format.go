package bot

import (
	"fmt"
	"strings"
	"time"

	"codegate/entity"
)

const dateLayout = "2006-01-02 15:04"

func formatTerm(c *entity.ActivationCode) string {
	if c.IsLifetime() {
		return "lifetime"
	}
	return fmt.Sprintf("%d days", c.Days())
}

func formatDate(t time.Time) string {
	return Sanitize(t.UTC().Format(dateLayout))
}

func formatCodeDetail(d *entity.CodeDetail, now time.Time) string {
	c := d.Code
	status := "active"
	if !c.IsActive {
		status = "*disabled*"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Code* `%s`\n", Sanitize(c.Code)))
	sb.WriteString(fmt.Sprintf("Status: %s\n", status))
	sb.WriteString(fmt.Sprintf("Term: %s\n", formatTerm(c)))
	sb.WriteString(fmt.Sprintf("Devices: %d of %d\n", d.Live, c.MaxDevices))
	sb.WriteString(fmt.Sprintf("App: %s, profiles: %d of %d\n", Sanitize(string(c.AppType)), len(d.Profiles), d.ProfileLimit))
	if c.Note != "" {
		sb.WriteString(fmt.Sprintf("Note: %s\n", Sanitize(c.Note)))
	}
	if c.FirstActivatedAt != nil {
		sb.WriteString(fmt.Sprintf("First activation: %s\n", formatDate(*c.FirstActivatedAt)))
	}
	sb.WriteString(fmt.Sprintf("Created: %s\n", formatDate(c.CreatedAt)))

	if d.LinkStats != nil {
		sb.WriteString(fmt.Sprintf("Links: %d scraped, %d generated, %d exported\n",
			d.LinkStats.TotalScraped, d.LinkStats.TotalGenerated, d.LinkStats.TotalExported))
	}

	if len(d.Sessions) > 0 {
		sb.WriteString("\n*Sessions*\n")
		for _, s := range d.Sessions {
			mark := ""
			if s.IsExpired(now) {
				mark = " \\(expired\\)"
			}
			sb.WriteString(fmt.Sprintf("`%s` until %s%s\n", Sanitize(s.DeviceId), formatDate(s.ExpiresAt), mark))
		}
	}
	return sb.String()
}

func formatStats(s *entity.Stats) string {
	return fmt.Sprintf("*Stats*\nCodes: %d \\(%d active\\)\nLive sessions: %d\nExpired sessions: %d",
		s.TotalCodes, s.ActiveCodes, s.LiveSessions, s.ExpiredSessions)
}

func formatCreated(res *entity.CreateResult) string {
	if !res.Success || res.Created == nil {
		return Sanitize(res.Message)
	}
	c := res.Created
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Created* `%s`\n", Sanitize(c.Code)))
	sb.WriteString(fmt.Sprintf("Devices: %d\n", c.MaxDevices))
	sb.WriteString(fmt.Sprintf("Term: %s\n", formatTerm(c)))
	if c.Note != "" {
		sb.WriteString(fmt.Sprintf("Note: %s\n", Sanitize(c.Note)))
	}
	return sb.String()
}

// formatUsage renders the totals and at most top rows of the busiest code-days.
func formatUsage(u *entity.UsageOverview, top int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Usage since %s*\n", Sanitize(u.Since)))
	sb.WriteString(fmt.Sprintf("Broadcasts: %d\nMessages: %d\nGroups joined: %d\nActive devices: %d\n",
		u.TotalBroadcasts, u.TotalMessages, u.TotalGroupsJoined, u.ActiveDevices))
	if len(u.TopCodes) == 0 {
		return sb.String()
	}
	sb.WriteString("\n*Top codes*\n")
	for i, row := range u.TopCodes {
		if i == top {
			break
		}
		code := row.Code
		if code == "" {
			code = "unknown"
		}
		sb.WriteString(fmt.Sprintf("`%s` %s: %d broadcasts, %d messages\n",
			Sanitize(code), Sanitize(row.Date), row.BroadcastsCount, row.MessagesSent))
	}
	return sb.String()
}
