package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"

	"github.com/charmbracelet/lipgloss"

	"github.com/re-cinq/fleetd/internal/fileutil"
)

// Send connects to the daemon socket, writes req as one JSON line, and
// reads back exactly one JSON line response.
func Send(req Request) (Response, error) {
	conn, err := net.Dial("unix", fileutil.SocketPath())
	if err != nil {
		return Response{}, fmt.Errorf("connecting to fleetd (is it running?): %w", err)
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("marshaling request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return Response{}, fmt.Errorf("writing request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return Response{}, fmt.Errorf("reading response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return Response{}, fmt.Errorf("parsing response: %w", err)
	}
	return resp, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	pausedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderWatches returns a column-aligned table of watches.
func RenderWatches(watches []WatchInfo) string {
	out := headerStyle.Render(fmt.Sprintf("%-14s %-10s %-8s %-30s %-14s", "ID", "BRANCH", "COMMIT", "REPO", "STATUS")) + "\n"
	for _, w := range watches {
		status := "running"
		if w.Paused {
			status = "paused"
		}
		row := fmt.Sprintf("%-14s %-10s %-8s %-30s %-14s", w.ID, w.ShortBranch, w.ShortCommit, w.ShortURL, status)
		if w.Paused {
			row = pausedStyle.Render(row)
		}
		out += row + "\n"
	}
	return out
}
