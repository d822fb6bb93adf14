// Command gallery is a terminal browser for completed groups. It lists
// groups from a running server and walks a group's image sequence with
// the arrow keys.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ke2007/MarkdownShare/internal/apiclient"
	"github.com/ke2007/MarkdownShare/internal/gallery"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	counterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

type screen int

const (
	screenGroupList screen = iota
	screenGallery
)

type groupsMsg struct {
	groups []apiclient.Group
}

type groupMsg struct {
	groupID string
	group   *apiclient.Group
}

type errMsg struct {
	err error
}

type model struct {
	client  *apiclient.Client
	screen  screen
	spin    spinner.Model
	loading bool
	err     error

	groups []apiclient.Group
	cursor int

	session *gallery.Session
	view    gallery.ViewUpdate
	groupID string
}

func initialModel(client *apiclient.Client) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return model{
		client:  client,
		spin:    sp,
		loading: true,
		session: gallery.NewSession(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.fetchGroups())
}

func (m model) fetchGroups() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		groups, err := m.client.ListCompletedGroups(ctx)
		if err != nil {
			return errMsg{err}
		}
		return groupsMsg{groups}
	}
}

func (m model) fetchGroup(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		group, err := m.client.GetGroup(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return groupMsg{groupID: id, group: group}
	}
}

func galleryImages(group *apiclient.Group) []gallery.Image {
	var images []gallery.Image
	for _, f := range group.Files {
		if f.Kind == "image" {
			images = append(images, gallery.Image{
				StorageName: f.StorageName,
				DisplayName: f.DisplayName,
			})
		}
	}
	return images
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case groupsMsg:
		m.loading = false
		m.err = nil
		m.groups = msg.groups
		if m.cursor >= len(m.groups) {
			m.cursor = 0
		}
		return m, nil

	case groupMsg:
		m.loading = false
		// A response for a group we already navigated away from is
		// stale; drop it.
		if m.screen != screenGallery || msg.groupID != m.groupID {
			return m, nil
		}
		if update, ok := m.session.Refresh(msg.groupID, galleryImages(msg.group)); ok {
			m.view = update
			if m.session.State() == gallery.Inactive {
				m.screen = screenGroupList
			}
		}
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	}

	switch m.screen {
	case screenGroupList:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.groups)-1 {
				m.cursor++
			}
		case "r":
			// In-flight requests suppress duplicate submission.
			if !m.loading {
				m.loading = true
				return m, tea.Batch(m.spin.Tick, m.fetchGroups())
			}
		case "enter":
			if m.loading || len(m.groups) == 0 {
				return m, nil
			}
			group := m.groups[m.cursor]
			images := galleryImages(&group)
			update := m.session.Enter(group.ID, images, "")
			if m.session.State() != gallery.Active {
				m.err = fmt.Errorf("group %q has fewer than two images", group.Name)
				return m, nil
			}
			m.err = nil
			m.screen = screenGallery
			m.groupID = group.ID
			m.view = update
		}

	case screenGallery:
		// Arrow handling is active exactly while the session says so.
		if !m.session.KeysEnabled() {
			break
		}
		switch msg.String() {
		case "left", "h":
			if update, ok := m.session.Previous(); ok {
				m.view = update
			}
		case "right", "l":
			if update, ok := m.session.Next(); ok {
				m.view = update
			}
		case "r":
			if !m.loading {
				m.loading = true
				return m, tea.Batch(m.spin.Tick, m.fetchGroup(m.groupID))
			}
		case "esc", "backspace":
			m.session.Leave()
			m.screen = screenGroupList
			m.groupID = ""
		}
	}

	return m, nil
}

func (m model) View() string {
	var b []byte

	switch m.screen {
	case screenGroupList:
		b = append(b, titleStyle.Render("MarkdownShare groups")...)
		b = append(b, '\n', '\n')
		if m.loading {
			b = append(b, m.spin.View()...)
			b = append(b, " loading..."...)
			b = append(b, '\n')
		}
		for i, g := range m.groups {
			line := fmt.Sprintf("%s (%d files)", g.Name, len(g.Files))
			if i == m.cursor {
				line = cursorStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b = append(b, line...)
			b = append(b, '\n')
		}
		if len(m.groups) == 0 && !m.loading {
			b = append(b, dimStyle.Render("no completed groups")...)
			b = append(b, '\n')
		}
		b = append(b, '\n')
		b = append(b, dimStyle.Render("enter: open gallery / r: refresh / q: quit")...)

	case screenGallery:
		b = append(b, titleStyle.Render(m.view.Title)...)
		b = append(b, '\n')
		b = append(b, counterStyle.Render(m.view.Counter)...)
		b = append(b, '\n', '\n')
		b = append(b, dimStyle.Render(m.client.FileURL(m.groupID, currentStorageName(m.session)))...)
		b = append(b, '\n', '\n')
		nav := ""
		if m.view.PrevEnabled {
			nav += "← prev  "
		}
		if m.view.NextEnabled {
			nav += "next →  "
		}
		b = append(b, dimStyle.Render(nav+"r: refresh / esc: back / q: quit")...)
		if m.loading {
			b = append(b, '\n')
			b = append(b, m.spin.View()...)
		}
	}

	if m.err != nil {
		b = append(b, '\n', '\n')
		b = append(b, errorStyle.Render(m.err.Error())...)
	}
	b = append(b, '\n')
	return string(b)
}

func currentStorageName(s *gallery.Session) string {
	if img, ok := s.Current(); ok {
		return img.StorageName
	}
	return ""
}

func main() {
	defaultURL := os.Getenv("MARKDOWNSHARE_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:3000"
	}
	addr := flag.String("addr", defaultURL, "base URL of the MarkdownShare server")
	flag.Parse()

	p := tea.NewProgram(initialModel(apiclient.New(*addr)))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "gallery error: %v\n", err)
		os.Exit(1)
	}
}
