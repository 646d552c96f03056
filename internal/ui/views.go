package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/trax/internal/services"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1DB954")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginTop(1)

	docStyle = lipgloss.NewStyle().Margin(1, 2)
)

// playlistItem adapts a playlist for the list widget.
type playlistItem struct {
	playlist services.Playlist
}

func (i playlistItem) Title() string { return i.playlist.Name }

func (i playlistItem) Description() string {
	owner := i.playlist.Owner.DisplayName
	if owner == "" {
		owner = i.playlist.Owner.ID
	}
	return fmt.Sprintf("%d tracks · %s", i.playlist.Tracks.Total, owner)
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }

// trackItem adapts a track for the list widget.
type trackItem struct {
	track   services.Track
	addedAt string
}

func (i trackItem) Title() string { return i.track.Name }

func (i trackItem) Description() string {
	names := make([]string, len(i.track.Artists))
	for n, artist := range i.track.Artists {
		names[n] = artist.Name
	}
	desc := strings.Join(names, ", ")
	if i.track.Album.Name != "" {
		desc += " · " + i.track.Album.Name
	}
	if i.addedAt != "" {
		desc += " · added " + i.addedAt
	}
	return desc
}

func (i trackItem) FilterValue() string { return i.track.Name }

// View renders the current view.
func (m *Model) View() string {
	var body string
	switch m.view {
	case LoginView:
		body = m.loginView()
	case PlaylistListView:
		body = m.playlistListView()
	case TrackListView:
		body = m.trackListView()
	case SearchView:
		body = m.searchView()
	case CreateView:
		body = m.createView()
	}
	return docStyle.Render(body)
}

func (m *Model) loginView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("trax"))
	b.WriteString("\n")

	auth := m.state.Auth
	switch {
	case auth.Loading:
		b.WriteString("Authorizing... complete the login in your browser.\n")
	case auth.Err != "":
		b.WriteString(errorStyle.Render(auth.Err))
		b.WriteString("\n\nPress 'l' to try again.\n")
	default:
		b.WriteString("Press 'l' to log in with Spotify.\n")
	}

	b.WriteString(statusStyle.Render("q: quit"))
	return b.String()
}

func (m *Model) playlistListView() string {
	var b strings.Builder
	b.WriteString(m.playlistList.View())
	b.WriteString("\n")

	if pl := m.state.Playlist; pl.Err != "" {
		b.WriteString(errorStyle.Render(pl.Err))
		b.WriteString("\n")
	} else if pl.Loading {
		b.WriteString(subtitleStyle.Render("Loading..."))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render("enter: open · /: search · n: new · L: logout · q: quit"))
	return b.String()
}

func (m *Model) trackListView() string {
	var b strings.Builder
	b.WriteString(m.trackList.View())
	b.WriteString("\n")

	pl := m.state.Playlist
	if pl.Err != "" {
		b.WriteString(errorStyle.Render(pl.Err))
		b.WriteString("\n")
	} else if pl.Loading {
		b.WriteString(subtitleStyle.Render("Loading..."))
		b.WriteString("\n")
	} else if !pl.HasMore && len(pl.Tracks) > 0 {
		b.WriteString(subtitleStyle.Render(fmt.Sprintf("All %d tracks loaded", len(pl.Tracks))))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render("x: remove · /: search · esc: back · q: quit"))
	return b.String()
}

func (m *Model) searchView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Search"))
	b.WriteString("\n")
	b.WriteString(m.searchInput.View())
	b.WriteString("\n\n")

	s := m.state.Search
	switch {
	case s.Err != "":
		b.WriteString(errorStyle.Render(s.Err))
		b.WriteString("\n")
	case s.Loading:
		b.WriteString(subtitleStyle.Render("Searching..."))
		b.WriteString("\n")
	case strings.TrimSpace(s.Query) != "" && len(s.Results) == 0:
		b.WriteString(subtitleStyle.Render("No results"))
		b.WriteString("\n")
	default:
		b.WriteString(m.resultList.View())
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render("tab: focus · a: add to playlist · esc: back"))
	return b.String()
}

func (m *Model) createView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New Playlist"))
	b.WriteString("\n")
	b.WriteString(m.nameInput.View())
	b.WriteString("\n")
	b.WriteString(m.descInput.View())
	b.WriteString("\n")

	if m.formErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.formErr))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render("tab: next field · enter: create · esc: cancel"))
	return b.String()
}
