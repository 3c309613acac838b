package main

import (
	"fmt"
	"io"
	"strings"

	"swingcoach/internal/analysis"
	"swingcoach/internal/api"
)

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

func renderSwingTable(out io.Writer, items []api.SwingSummary) string {
	columns := []column{
		{header: "ID"},
		{header: "Player"},
		{header: "Club"},
		{header: "Status"},
		{header: "Speed (mph)", align: alignRight},
		{header: "Carry (yd)", align: alignRight},
		{header: "Fav"},
		{header: "Created"},
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		fav := ""
		if item.Favorite {
			fav = "*"
		}
		rows = append(rows, []string{
			shortID(item.ID),
			item.PlayerID,
			item.ClubLabel,
			item.Status,
			formatOptional(item.ClubSpeedMph, "%.0f"),
			formatOptional(item.CarryYards, "%.0f"),
			fav,
			item.CreatedAt,
		})
	}
	return renderTable(out, columns, rows)
}

func renderDetail(out io.Writer, detail api.SwingDetail) string {
	colorize := shouldColorize(out)
	var b strings.Builder
	swing := detail.Swing

	writeSection(&b, colorize, "Swing "+swing.ID)
	fmt.Fprintf(&b, "  Player:     %s\n", swing.PlayerID)
	fmt.Fprintf(&b, "  Club:       %s\n", swing.ClubLabel)
	fmt.Fprintf(&b, "  Status:     %s\n", swing.Status)
	fmt.Fprintf(&b, "  Favorite:   %s\n", yesNo(swing.Favorite))
	fmt.Fprintf(&b, "  Transcoded: %s\n", yesNo(swing.Transcoded))
	fmt.Fprintf(&b, "  Created:    %s\n", swing.CreatedAt)
	if swing.ErrorMessage != "" {
		fmt.Fprintf(&b, "  Error:      %s\n", swing.ErrorMessage)
	}
	fmt.Fprintf(&b, "  Club speed: %s mph\n", formatOptional(detail.ClubSpeedMph, "%.1f"))
	fmt.Fprintf(&b, "  Carry:      %s yd\n", formatOptional(detail.CarryYards, "%.1f"))

	if a := detail.Analysis; a != nil {
		b.WriteString("\n")
		writeSection(&b, colorize, "Analysis ("+a.Source+")")
		fmt.Fprintf(&b, "  Club path: %s\n", a.ClubPath)
		fmt.Fprintf(&b, "  Keyframes: address %dms, top %dms, impact %dms, finish %dms\n",
			a.TimestampsMs.AddressMs, a.TimestampsMs.TopMs, a.TimestampsMs.ImpactMs, a.TimestampsMs.FinishMs)
		b.WriteString(renderTable(out, []column{
			{header: "Position"},
			{header: "Spine", align: alignRight},
			{header: "Shoulders", align: alignRight},
			{header: "Hips", align: alignRight},
			{header: "Lead arm", align: alignRight},
		}, [][]string{
			angleRow("Address", a.AddressAngles),
			angleRow("Top", a.TopAngles),
			angleRow("Impact", a.ImpactAngles),
			angleRow("Finish", a.FinishAngles),
		}))
		b.WriteString("\n")
		if len(a.OutOfRange) > 0 {
			fmt.Fprintf(&b, "  Outside plausible range: %s\n", strings.Join(a.OutOfRange, ", "))
		}
	}

	for _, roadmap := range detail.Roadmaps {
		b.WriteString("\n")
		writeSection(&b, colorize, "Roadmap: "+roadmap.Goal)
		if roadmap.Narrative != "" {
			fmt.Fprintf(&b, "  %s\n", roadmap.Narrative)
		}
		for _, drill := range roadmap.Drills {
			fmt.Fprintf(&b, "  - %s\n", drill)
		}
	}

	if detail.LaunchMonitor != nil {
		b.WriteString("\n")
		writeSection(&b, colorize, "Launch monitor")
		b.WriteString(renderLaunchMonitor(*detail.LaunchMonitor))
	}
	return b.String()
}

func renderLaunchMonitor(reading api.LaunchMonitor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Ball speed:   %s mph\n", formatOptional(reading.BallSpeedMph, "%.1f"))
	fmt.Fprintf(&b, "  Club speed:   %s mph\n", formatOptional(reading.ClubSpeedMph, "%.1f"))
	fmt.Fprintf(&b, "  Launch angle: %s deg\n", formatOptional(reading.LaunchAngleDeg, "%.1f"))
	fmt.Fprintf(&b, "  Spin rate:    %s rpm\n", formatOptional(reading.SpinRateRPM, "%.0f"))
	fmt.Fprintf(&b, "  Carry:        %s yd\n", formatOptional(reading.CarryYards, "%.1f"))
	fmt.Fprintf(&b, "  Total:        %s yd\n", formatOptional(reading.TotalYards, "%.1f"))
	return b.String()
}

func angleRow(label string, set analysis.AngleSet) []string {
	return []string{
		label,
		fmt.Sprintf("%.1f", set.SpineAngle),
		fmt.Sprintf("%.1f", set.ShoulderTurn),
		fmt.Sprintf("%.1f", set.HipTurn),
		fmt.Sprintf("%.1f", set.LeadArmAngle),
	}
}

func writeSection(b *strings.Builder, colorize bool, title string) {
	if colorize {
		title = ansiBold + title + ansiReset
	}
	b.WriteString(title)
	b.WriteString("\n")
}

func formatOptional(value *float64, format string) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf(format, *value)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
