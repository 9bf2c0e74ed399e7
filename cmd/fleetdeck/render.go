package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fleetdeck/internal/fleet"
)

const (
	progressBarWidth = 10
	shortIDLength    = 12
	maxNameWidth     = 32
)

var (
	counts     = message.NewPrinter(language.English)
	stateTitle = cases.Title(language.Und)
)

// renderFleet formats a snapshot as section header, optional listing error,
// worker table, and summary lines.
func renderFleet(snap fleet.Snapshot, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Fleet", colorize) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if snap.ListingError != "" {
		b.WriteString(renderStatusLine("Backend", statusError, snap.ListingError, colorize))
		b.WriteByte('\n')
	}

	if len(snap.Workers) == 0 {
		b.WriteString("No workers\n")
	} else {
		headers := []string{"ID", "Name", "State", "Progress", "Down", "Up", "Peers", "ETA", "Transfer"}
		aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
		b.WriteString(renderTable(headers, buildWorkerRows(snap.Workers, colorize), aligns, buildSummaryFooter(snap.Summary)))
		b.WriteByte('\n')
	}

	for _, line := range summaryLines(snap, colorize) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func buildWorkerRows(views []fleet.WorkerView, colorize bool) [][]string {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			shortID(view.ID),
			truncate(view.DisplayName, maxNameWidth),
			paint(stateLabel(view.Lifecycle), statusKindColor(lifecycleKind(view.Lifecycle)), colorize),
			progressBar(view.ProgressPercent),
			formatRate(view.DownloadRate),
			formatRate(view.UploadRate),
			formatPeers(view.ConnectedPeers, view.TotalPeers),
			view.ETA.String(),
			transferLabel(view),
		})
	}
	return rows
}

func buildSummaryFooter(summary fleet.Summary) []string {
	return []string{
		"",
		counts.Sprintf("%d workers", summary.ActiveWorkerCount),
		"",
		fmt.Sprintf("%d%%", summary.RoundedAverage()),
		formatRate(summary.TotalDownloadRate),
		formatRate(summary.TotalUploadRate),
	}
}

func summaryLines(snap fleet.Snapshot, colorize bool) []string {
	parts := make([]string, 0, len(fleet.LifecycleStates))
	for _, state := range fleet.LifecycleStates {
		if n := snap.Count(state); n > 0 {
			parts = append(parts, counts.Sprintf("%d %s", n, state))
		}
	}
	breakdown := "none"
	if len(parts) > 0 {
		breakdown = strings.Join(parts, ", ")
	}

	kind := statusOK
	switch {
	case snap.ListingError != "":
		kind = statusError
	case snap.Count(fleet.StateUnreachable) > 0:
		kind = statusWarn
	}

	lines := []string{
		renderStatusLine("Workers", kind, breakdown, colorize),
		renderStatusLine("Progress", statusInfo, fmt.Sprintf("%d%% average", snap.RoundedAverage()), colorize),
		renderStatusLine("Throughput", statusInfo,
			fmt.Sprintf("down %s, up %s", formatRate(snap.TotalDownloadRate), formatRate(snap.TotalUploadRate)), colorize),
	}
	if !snap.ObservedAt.IsZero() {
		lines = append(lines, renderStatusLine("Observed", statusInfo, snap.ObservedAt.Local().Format(time.TimeOnly), colorize))
	}
	return lines
}

func stateLabel(state fleet.LifecycleState) string {
	if state == "" {
		return "-"
	}
	return stateTitle.String(string(state))
}

func progressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * progressBarWidth / 100
	return fmt.Sprintf("%s%s %3d%%",
		strings.Repeat("█", filled),
		strings.Repeat("░", progressBarWidth-filled),
		percent)
}

func formatRate(bytesPerSecond int64) string {
	if bytesPerSecond <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}

func formatPeers(connected, total int) string {
	if connected == 0 && total == 0 {
		return "-"
	}
	return counts.Sprintf("%d/%d", connected, total)
}

// transferLabel is the torrent name plus byte progress, or the degraded
// detail when the status fetch failed.
func transferLabel(view fleet.WorkerView) string {
	if view.Degraded {
		if view.Detail == "" {
			return "status unavailable"
		}
		return truncate(view.Detail, maxNameWidth)
	}
	name := truncate(view.TorrentName, maxNameWidth)
	if view.BytesTotal <= 0 {
		return name
	}
	size := fmt.Sprintf("%s / %s", humanize.IBytes(uint64(view.BytesDownloaded)), humanize.IBytes(uint64(view.BytesTotal)))
	if name == "" {
		return size
	}
	return name + " (" + size + ")"
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
