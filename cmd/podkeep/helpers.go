package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"podkeep/pkg/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	listenedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// resolveShow accepts either a numeric show id or a feed URL.
func (a *appContext) resolveShow(arg string) (*models.Show, error) {
	if strings.Contains(arg, "://") {
		show, err := a.db.GetShowByURL(arg)
		if err != nil {
			return nil, err
		}
		if show == nil {
			return nil, fmt.Errorf("no subscription for %s", arg)
		}
		return show, nil
	}

	id, err := parseID(arg)
	if err != nil {
		return nil, err
	}
	show, err := a.db.GetShowByID(id)
	if err != nil {
		return nil, err
	}
	if show == nil {
		return nil, fmt.Errorf("no show with id %d", id)
	}
	return show, nil
}

func formatDuration(ms *int64) string {
	if ms == nil {
		return ""
	}
	total := *ms / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func formatDate(t time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func formatState(e models.Entry) string {
	if e.Listened {
		return listenedStyle.Render("played")
	}
	if e.PositionMS > 0 {
		pos := e.PositionMS
		return dimStyle.Render(formatDuration(&pos))
	}
	return ""
}

func formatFavorite(favorite bool) string {
	if favorite {
		return favoriteStyle.Render("★")
	}
	return ""
}

// parsePosition accepts milliseconds, plain seconds with an "s" suffix,
// or clock forms like "12:34".
func parsePosition(arg string) (int64, error) {
	if strings.HasSuffix(arg, "ms") {
		v, err := strconv.ParseInt(strings.TrimSuffix(arg, "ms"), 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid position %q", arg)
		}
		return v, nil
	}
	if strings.HasSuffix(arg, "s") {
		v, err := strconv.ParseInt(strings.TrimSuffix(arg, "s"), 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid position %q", arg)
		}
		return v * 1000, nil
	}
	if strings.Contains(arg, ":") {
		parts := strings.Split(arg, ":")
		var total int64
		for _, part := range parts {
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil || v < 0 {
				return 0, fmt.Errorf("invalid position %q", arg)
			}
			total = total*60 + v
		}
		return total * 1000, nil
	}
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid position %q", arg)
	}
	return v * 1000, nil
}
