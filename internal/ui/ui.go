// package ui implements the interactive terminal client.
//
// The model renders from store snapshots and never mutates state itself:
// every user action becomes an orchestrator intent, and the store's
// subscription feed is bridged back into the program as messages.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trax/internal/services"
	"github.com/desertthunder/trax/internal/store"
	"github.com/desertthunder/trax/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	PlaylistListView
	TrackListView
	SearchView
	CreateView
)

// stateMsg delivers a store snapshot to the program.
type stateMsg store.State

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	orchestrator *tasks.Orchestrator
	store        *store.Store
	updates      <-chan store.State
	state        store.State
	width        int
	height       int

	playlistList list.Model
	trackList    list.Model
	resultList   list.Model
	searchInput  textinput.Model
	nameInput    textinput.Model
	descInput    textinput.Model
	formErr      string

	keys keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	enter  key.Binding
	back   key.Binding
	login  key.Binding
	logout key.Binding
	search key.Binding
	create key.Binding
	add    key.Binding
	remove key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		login: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "login"),
		),
		logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "logout"),
		),
		search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		create: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new playlist"),
		),
		add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add to playlist"),
		),
		remove: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "remove track"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, orchestrator *tasks.Orchestrator, st *store.Store) *Model {
	searchInput := textinput.New()
	searchInput.Placeholder = "Search tracks..."
	searchInput.CharLimit = 256

	nameInput := textinput.New()
	nameInput.Placeholder = "Playlist name"
	nameInput.CharLimit = 120

	descInput := textinput.New()
	descInput.Placeholder = "Description (optional)"
	descInput.CharLimit = 320

	playlists := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlists.Title = "Your Playlists"
	tracks := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	results.Title = "Search Results"

	return &Model{
		ctx:          ctx,
		view:         LoginView,
		orchestrator: orchestrator,
		store:        st,
		updates:      st.Subscribe(),
		state:        st.State(),
		playlistList: playlists,
		trackList:    tracks,
		resultList:   results,
		searchInput:  searchInput,
		nameInput:    nameInput,
		descInput:    descInput,
		keys:         newKeyMap(),
	}
}

// Init checks for a persisted session and starts listening for store updates.
func (m *Model) Init() tea.Cmd {
	m.orchestrator.Dispatch(m.ctx, tasks.CheckSession{})
	return m.waitForState()
}

// waitForState blocks on the store subscription and relays the next snapshot.
func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-m.updates)
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		m.resultList.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case stateMsg:
		m.applyState(store.State(msg))
		return m, m.waitForState()

	case tea.KeyMsg:
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case CreateView:
			return m.handleCreateKeys(msg)
		}
	}

	return m, nil
}

// applyState folds a new store snapshot into the widgets.
func (m *Model) applyState(next store.State) {
	prev := m.state
	m.state = next

	if !prev.Auth.Authenticated && next.Auth.Authenticated {
		m.view = PlaylistListView
		m.orchestrator.Dispatch(m.ctx, tasks.FetchPlaylists{})
	}
	if prev.Auth.Authenticated && !next.Auth.Authenticated {
		m.view = LoginView
	}

	items := make([]list.Item, len(next.Playlist.Playlists))
	for i, pl := range next.Playlist.Playlists {
		items[i] = playlistItem{playlist: pl}
	}
	m.playlistList.SetItems(items)

	trackItems := make([]list.Item, len(next.Playlist.Tracks))
	for i, entry := range next.Playlist.Tracks {
		trackItems[i] = trackItem{track: entry.Track, addedAt: entry.AddedAt}
	}
	m.trackList.SetItems(trackItems)
	if next.Playlist.Selected != nil {
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", next.Playlist.Selected.Name)
	}

	resultItems := make([]list.Item, len(next.Search.Results))
	for i, track := range next.Search.Results {
		resultItems[i] = trackItem{track: track}
	}
	m.resultList.SetItems(resultItems)
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.login):
		m.orchestrator.Dispatch(m.ctx, tasks.Login{})
	}
	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.logout):
		m.orchestrator.Dispatch(m.ctx, tasks.Logout{})
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.create):
		m.view = CreateView
		m.formErr = ""
		m.nameInput.SetValue("")
		m.descInput.SetValue("")
		m.nameInput.Focus()
		m.descInput.Blur()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.view = TrackListView
			m.orchestrator.Dispatch(m.ctx, tasks.SelectPlaylist{Playlist: item.playlist})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.search):
		m.view = SearchView
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.remove):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			if selected := m.state.Playlist.Selected; selected != nil {
				m.orchestrator.Dispatch(m.ctx, tasks.RemoveTrack{
					PlaylistID: selected.ID,
					TrackURI:   services.TrackURI(item.track.ID),
				})
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	m.maybeLoadMoreTracks()
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit) && !m.searchInput.Focused():
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.searchInput.Focused() {
			m.searchInput.Blur()
			return m, nil
		}
		m.view = PlaylistListView
		if m.state.Playlist.Selected != nil {
			m.view = TrackListView
		}
		return m, nil
	case msg.String() == "tab":
		if m.searchInput.Focused() {
			m.searchInput.Blur()
		} else {
			m.searchInput.Focus()
		}
		return m, nil
	case key.Matches(msg, m.keys.add) && !m.searchInput.Focused():
		if item, ok := m.resultList.SelectedItem().(trackItem); ok {
			if selected := m.state.Playlist.Selected; selected != nil {
				m.orchestrator.Dispatch(m.ctx, tasks.AddTrack{
					PlaylistID: selected.ID,
					TrackURI:   services.TrackURI(item.track.ID),
				})
			}
		}
		return m, nil
	}

	if m.searchInput.Focused() {
		var cmd tea.Cmd
		before := m.searchInput.Value()
		m.searchInput, cmd = m.searchInput.Update(msg)
		if after := m.searchInput.Value(); after != before {
			m.orchestrator.Dispatch(m.ctx, tasks.QueryChanged{Query: after})
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	m.maybeLoadMoreResults()
	return m, cmd
}

func (m *Model) handleCreateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = PlaylistListView
		return m, nil
	case "tab":
		if m.nameInput.Focused() {
			m.nameInput.Blur()
			m.descInput.Focus()
		} else {
			m.descInput.Blur()
			m.nameInput.Focus()
		}
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.nameInput.Value())
		description := strings.TrimSpace(m.descInput.Value())
		if err := validatePlaylistForm(name, description); err != "" {
			m.formErr = err
			return m, nil
		}
		m.formErr = ""
		m.view = PlaylistListView
		m.orchestrator.Dispatch(m.ctx, tasks.CreatePlaylist{Name: name, Description: description})
		return m, nil
	}

	var cmd tea.Cmd
	if m.nameInput.Focused() {
		m.nameInput, cmd = m.nameInput.Update(msg)
	} else {
		m.descInput, cmd = m.descInput.Update(msg)
	}
	return m, cmd
}

// validatePlaylistForm enforces the create-dialog constraints before any
// intent is dispatched; invalid input never reaches the orchestrator.
func validatePlaylistForm(name, description string) string {
	switch {
	case name == "":
		return "Playlist name is required"
	case len(name) > 100:
		return "Name too long"
	case len(description) > 300:
		return "Description too long"
	}
	return ""
}

// maybeLoadMoreTracks continues the listing when the cursor is within one and
// a half visible pages of the end, mirroring the scroll-distance trigger.
func (m *Model) maybeLoadMoreTracks() {
	if nearEnd(m.trackList) {
		m.orchestrator.Dispatch(m.ctx, tasks.LoadMoreTracks{})
	}
}

func (m *Model) maybeLoadMoreResults() {
	if nearEnd(m.resultList) {
		m.orchestrator.Dispatch(m.ctx, tasks.LoadMoreSearch{})
	}
}

func nearEnd(l list.Model) bool {
	total := len(l.Items())
	if total == 0 {
		return false
	}
	perPage := l.Paginator.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	remaining := total - l.Index() - 1
	return remaining <= perPage*3/2
}
