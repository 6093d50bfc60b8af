// Package report renders build summaries for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/rebundle/internal/core/domain"
)

// Render writes one line per target, grouped by cache group in the order
// the groups first appear in infos.
func Render(w io.Writer, infos []domain.BuildInfo) error {
	var order []string
	byGroup := make(map[string][]domain.BuildInfo)
	for _, info := range infos {
		if _, ok := byGroup[info.Group]; !ok {
			order = append(order, info.Group)
		}
		byGroup[info.Group] = append(byGroup[info.Group], info)
	}

	width := 0
	for _, info := range infos {
		width = max(width, len(info.Target))
	}

	var s strings.Builder
	for i, group := range order {
		if i > 0 {
			s.WriteString("\n")
		}
		s.WriteString(titleStyle.Render(strings.ToUpper(group)) + "\n")
		for _, info := range byGroup[group] {
			s.WriteString(line(info, width) + "\n")
		}
	}

	_, err := io.WriteString(w, s.String())
	return err
}

func line(info domain.BuildInfo, width int) string {
	style, icon := stateStyle(info.State)
	head := style.Render(fmt.Sprintf("%s %-*s", icon, width, info.Target))

	var details []string
	switch info.State {
	case domain.TargetBuilt:
		details = append(details, fmt.Sprintf("%d modules", info.ModuleCount))
		if info.Cached > 0 {
			details = append(details, fmt.Sprintf("%d cached", info.Cached))
		}
		details = append(details, info.Duration.Round(time.Millisecond).String())
	case domain.TargetFailed:
		if info.Err != nil {
			details = append(details, info.Err.Error())
		}
	default:
		details = append(details, string(info.State))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, head, "  ", detailStyle.Render(strings.Join(details, ", ")))
}

func stateStyle(state domain.TargetState) (lipgloss.Style, string) {
	switch state {
	case domain.TargetBuilt:
		return builtStyle, iconBuilt
	case domain.TargetFailed:
		return failedStyle, iconFailed
	case domain.TargetBuilding:
		return buildingStyle, iconBuilding
	default:
		return pendingStyle, iconUnbuilt
	}
}
