// ped is a terminal paper-edit workstation for video transcripts.
//
// It loads a word-timestamped transcript, lets you mark highlight
// ranges over it and arrange them (plus section breaks) into a display
// sequence, and persists the arrangement as a JSON session for
// downstream cut tooling. The session file is watched, so an outside
// tool rewriting it shows up live.
//
// Usage:
//
//	ped                          # Auto-discover .paperedit/session.json
//	ped --transcript talk.json   # Start a fresh session over a transcript
//	ped --session <path>         # Use a specific session file
//	ped --json                   # Dump current state as JSON and exit
//	ped --view sequence          # Start in a specific view
//	ped --version                # Print version and exit
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/joho/godotenv"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/paperedit/paperedit/internal/config"
	"github.com/paperedit/paperedit/internal/datasource"
	"github.com/paperedit/paperedit/internal/engine"
	"github.com/paperedit/paperedit/internal/highlight"
	"github.com/paperedit/paperedit/internal/sequence"
	"github.com/paperedit/paperedit/internal/snapshot"
	"github.com/paperedit/paperedit/internal/transcript"
)

// Version is set via ldflags at build time (e.g. -X main.Version=v0.1.0).
var Version = "dev"

// parseViewFlag maps a --view flag string to a viewID.
func parseViewFlag(s string) (viewID, error) {
	switch strings.ToLower(s) {
	case "transcript", "t":
		return viewTranscript, nil
	case "sequence", "seq", "s":
		return viewSequence, nil
	default:
		return 0, fmt.Errorf("unknown view %q (valid: transcript, sequence)", s)
	}
}

// jsonOutput is the structure for --json mode. The sequence uses the
// session-file entry convention: clip descriptors, "N" for untitled
// breaks, {"type":"N","title":...} for titled ones.
type jsonOutput struct {
	Title    string     `json:"title"`
	Clips    []jsonClip `json:"clips"`
	Sequence []any      `json:"sequence"`
	Stats    jsonStats  `json:"stats"`
}

type jsonClip struct {
	ID         string  `json:"id"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Color      string  `json:"color"`
	Text       string  `json:"text,omitempty"`
	TokenStart int     `json:"token_start"`
	TokenEnd   int     `json:"token_end"`
}

type jsonBreak struct {
	Type  string `json:"type"`
	Title string `json:"title"`
}

type jsonStats struct {
	Tokens     int     `json:"tokens"`
	Highlights int     `json:"highlights"`
	Breaks     int     `json:"breaks"`
	Duration   float64 `json:"duration_seconds"`
	Selected   float64 `json:"selected_seconds"`
}

func main() {
	_ = godotenv.Load() // best-effort: pick up PAPEREDIT_SESSION etc. from .env

	sessionFlag := flag.String("session", "", "path to session.json (default: auto-discover)")
	transcriptFlag := flag.String("transcript", "", "transcript file for a fresh session (overrides the session's reference)")
	jsonMode := flag.Bool("json", false, "dump current state as JSON and exit (no TUI)")
	viewFlag := flag.String("view", "", "start in specific view (transcript|sequence)")
	noAutosave := flag.Bool("no-autosave", false, "do not write the session after every edit (save with 's')")
	debugFlag := flag.Bool("debug", false, "log debug output to ped.log")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("ped %s\n", Version)
		os.Exit(0)
	}

	if *debugFlag || os.Getenv("PED_DEBUG") != "" {
		f, err := tea.LogToFile("ped.log", "ped")
		if err != nil {
			fmt.Fprintf(os.Stderr, "ped: debug log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(nopWriter{})
	}

	cfgPath, err := config.Path()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ped: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ped: %v\n", err)
		os.Exit(1)
	}

	// Resolve the session path: flag > discovery. A missing session is
	// fine when --transcript names a fresh source to edit.
	sessionPath := *sessionFlag
	if sessionPath == "" {
		sessionPath, err = datasource.Discover()
		if err != nil {
			if *transcriptFlag == "" {
				fmt.Fprintf(os.Stderr, "ped: %v (pass --transcript to start a new session)\n", err)
				os.Exit(1)
			}
			sessionPath = filepath.Join(".paperedit", "session.json")
		}
	}
	abs, err := filepath.Abs(sessionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ped: resolve %s: %v\n", sessionPath, err)
		os.Exit(1)
	}
	sessionPath = abs

	st, err := loadState(sessionPath, *transcriptFlag, cfg.Palette)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ped: %v\n", err)
		os.Exit(1)
	}

	// --json mode: build snapshot, print JSON, exit.
	if *jsonMode {
		snap := snapshot.Build(st.title, st.eng)
		out := buildJSONOutput(snap, st.eng)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "ped: json: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// The watcher needs the session directory to exist, even before the
	// first save creates the file itself.
	if err := os.MkdirAll(filepath.Dir(sessionPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "ped: %v\n", err)
		os.Exit(1)
	}
	w, err := datasource.NewWatcher(sessionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ped: watch: %v\n", err)
		os.Exit(1)
	}

	m := newModel(st, w)
	m.autosave = cfg.Autosave && !*noAutosave
	if v, err := parseViewFlag(cfg.DefaultView); err == nil {
		m.activeView = v
	}

	// Apply --view flag.
	if *viewFlag != "" {
		v, err := parseViewFlag(*viewFlag)
		if err != nil {
			w.Close()
			fmt.Fprintf(os.Stderr, "ped: %v\n", err)
			os.Exit(1)
		}
		m.activeView = v
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	// Feed session file changes into the TUI.
	go func() {
		for range w.Changes() {
			p.Send(sessionChangedMsg{})
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ped: %v\n", err)
		os.Exit(1)
	}
}

// nopWriter silences the stdlib logger when debug logging is off; a
// TUI cannot share stdout with log output.
type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// editState is everything loadState assembles before the TUI starts.
type editState struct {
	eng           *engine.Engine
	palette       *highlight.Palette
	sessionPath   string
	transcriptRef string // as recorded in the session file
	title         string
}

// loadState opens (or initializes) the session at sessionPath and the
// transcript it references. transcriptOverride, when set, replaces the
// session's transcript reference.
func loadState(sessionPath, transcriptOverride string, paletteColors []string) (*editState, error) {
	var entries []engine.SavedEntry
	transcriptRef := transcriptOverride

	if _, err := os.Stat(sessionPath); err == nil {
		sess, err := datasource.LoadSession(sessionPath)
		if err != nil {
			return nil, err
		}
		entries = sess.Entries
		if transcriptRef == "" {
			transcriptRef = sess.Transcript
		}
	}
	if transcriptRef == "" {
		return nil, fmt.Errorf("%s has no transcript reference (pass --transcript)", sessionPath)
	}

	title, tokens, err := datasource.LoadTranscript(datasource.ResolveTranscript(sessionPath, transcriptRef))
	if err != nil {
		return nil, err
	}

	pal := highlight.NewPalette(paletteColors...)
	eng := engine.Restore(tokens, entries, engine.WithPalette(pal))
	return &editState{
		eng:           eng,
		palette:       pal,
		sessionPath:   sessionPath,
		transcriptRef: transcriptRef,
		title:         title,
	}, nil
}

// buildJSONOutput converts the session state into the JSON dump
// structure.
func buildJSONOutput(snap *snapshot.DataSnapshot, eng *engine.Engine) jsonOutput {
	clips := make([]jsonClip, len(snap.Clips))
	for i, c := range snap.Clips {
		jc := jsonClip{ID: c.ID, Start: c.Start, End: c.End, Color: c.Color, Text: c.Text}
		if i < len(snap.Highlights) {
			jc.TokenStart = snap.Highlights[i].Start
			jc.TokenEnd = snap.Highlights[i].End
		}
		clips[i] = jc
	}

	seq := make([]any, 0, len(snap.Rows))
	for _, en := range eng.Export() {
		switch {
		case en.Clip != nil:
			seq = append(seq, jsonClip{ID: en.Clip.ID, Start: en.Clip.Start, End: en.Clip.End, Color: en.Clip.Color, Text: en.Clip.Text})
		case en.Break != nil && en.Break.Title == "":
			seq = append(seq, "N")
		case en.Break != nil:
			seq = append(seq, jsonBreak{Type: "N", Title: en.Break.Title})
		}
	}

	return jsonOutput{
		Title:    snap.Title,
		Clips:    clips,
		Sequence: seq,
		Stats: jsonStats{
			Tokens:     snap.TokenCount,
			Highlights: snap.HighlightCount,
			Breaks:     snap.BreakCount,
			Duration:   snap.Duration,
			Selected:   snap.Selected,
		},
	}
}

// --- Messages ---

type sessionChangedMsg struct{}

type sessionReloadedMsg struct {
	eng *engine.Engine
	err error
}

type savedMsg struct {
	err error
}

type tickMsg struct{}

// --- Key bindings ---

type keyMap struct {
	Quit    key.Binding
	Tab     key.Binding
	Help    key.Binding
	Left    key.Binding
	Right   key.Binding
	Up      key.Binding
	Down    key.Binding
	Mark    key.Binding
	Enter   key.Binding
	Esc     key.Binding
	Delete  key.Binding
	Grab    key.Binding
	Select  key.Binding
	Break   key.Binding
	Title   key.Binding
	Order   key.Binding
	Resize  key.Binding
	ResizeL key.Binding
	Save    key.Binding
}

var keys = keyMap{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/l", "step token")),
	Right:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("", "")),
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("j/k", "jump / move row")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("", "")),
	Mark:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "mark range")),
	Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Esc:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Delete:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
	Grab:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grab / drop with enter")),
	Select:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	Break:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "insert break")),
	Title:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "retitle break")),
	Order:   key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "arrange by timeline")),
	Resize:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r/R", "resize end/start edge")),
	ResizeL: key.NewBinding(key.WithKeys("R"), key.WithHelp("", "")),
	Save:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
}

// viewKeys maps number keys to views for fast navigation.
var viewKeys = map[string]viewID{
	"1": viewTranscript,
	"2": viewSequence,
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Mark, k.Grab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Up, k.Mark, k.Resize, k.Delete},
		{k.Grab, k.Select, k.Break, k.Title, k.Order},
		{k.Tab, k.Save, k.Help, k.Quit},
	}
}

// contextHelp returns help text for the current view and gesture state.
func contextHelp(m uiModel) string {
	switch {
	case m.titling:
		return "enter: set title | esc: cancel"
	case m.resize != nil:
		return "h/l: drag edge | enter: drop | esc: cancel"
	case m.drag != nil:
		return "j/k: move block | enter: drop | esc: cancel"
	case m.activeView == viewTranscript && m.anchor >= 0:
		return "h/l j/k: extend | enter: highlight | esc: cancel | 1/2: views"
	case m.activeView == viewTranscript:
		return "h/l j/k: move | v: mark | r/R: resize | x: delete | tab: next | ?: help | q: quit"
	default:
		return "j/k: move | space: select | g: grab | b: break | t: title | T: timeline | x: delete | ?: help | q: quit"
	}
}

// --- Views ---

type viewID int

const (
	viewTranscript viewID = iota
	viewSequence
	viewCount // sentinel
)

func (v viewID) String() string {
	switch v {
	case viewTranscript:
		return "Transcript"
	case viewSequence:
		return "Sequence"
	}
	return "?"
}

// --- Model ---

type uiModel struct {
	eng     *engine.Engine
	snap    *snapshot.DataSnapshot
	watcher *datasource.Watcher
	palette *highlight.Palette

	sessionPath   string
	transcriptRef string
	title         string

	activeView viewID
	width      int
	height     int

	// Transcript view: token cursor and, while marking, the anchor.
	cursor int
	anchor int // -1 when not marking

	// Sequence view.
	seqCursor int
	selected  map[string]bool

	// In-flight gestures. At most one is non-nil at a time.
	drag         *engine.ReorderDrag
	dragPos      int
	resize       *engine.ResizeDrag
	resizeCursor int

	// Break retitling.
	titling    bool
	titleID    string
	titleInput textinput.Model

	autosave bool
	dirty    bool
	lastSave time.Time

	help     help.Model
	showHelp bool

	status     string
	statusTime time.Time
}

func newModel(st *editState, w *datasource.Watcher) uiModel {
	ti := textinput.New()
	ti.Placeholder = "section title"
	ti.CharLimit = 80
	ti.Width = 40

	return uiModel{
		eng:           st.eng,
		snap:          snapshot.Build(st.title, st.eng),
		watcher:       w,
		palette:       st.palette,
		sessionPath:   st.sessionPath,
		transcriptRef: st.transcriptRef,
		title:         st.title,
		anchor:        -1,
		selected:      make(map[string]bool),
		titleInput:    ti,
		help:          help.New(),
		lastSave:      time.Now(),
	}
}

func (m uiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case sessionChangedMsg:
		// Our own saves come back through the watcher too; only reload
		// when the write was not ours and nothing local is pending.
		if time.Since(m.lastSave) < time.Second {
			return m, nil
		}
		if m.dirty || m.drag != nil || m.resize != nil || m.titling {
			m.status = "session changed on disk (local edits pending, not reloading)"
			m.statusTime = time.Now()
			return m, nil
		}
		log.Printf("session changed on disk, reloading")
		return m, m.reloadSession()

	case sessionReloadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("reload failed: %v", msg.err)
			m.statusTime = time.Now()
			return m, nil
		}
		m.eng = msg.eng
		m.snap = snapshot.Build(m.title, m.eng)
		m.clampCursors()
		m.status = "session reloaded from disk"
		m.statusTime = time.Now()

	case savedMsg:
		if msg.err != nil {
			log.Printf("save failed: %v", msg.err)
			m.status = fmt.Sprintf("save failed: %v", msg.err)
			m.statusTime = time.Now()
			return m, nil
		}
		m.dirty = false
		m.lastSave = time.Now()

	case tickMsg:
		return m, tickEvery()
	}

	return m, nil
}

func (m uiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Retitling captures all keys except the terminators.
	if m.titling {
		switch {
		case key.Matches(msg, keys.Enter):
			if m.eng.RetitleBreak(m.titleID, strings.TrimSpace(m.titleInput.Value())) {
				return m.afterEdit()
			}
			m.titling = false
			return m, nil
		case key.Matches(msg, keys.Esc):
			m.titling = false
			return m, nil
		}
		var cmd tea.Cmd
		m.titleInput, cmd = m.titleInput.Update(msg)
		return m, cmd
	}

	// An active resize drag owns the movement keys.
	if m.resize != nil {
		switch {
		case key.Matches(msg, keys.Left):
			m.resizeCursor = m.eng.Tokens().Clamp(m.resizeCursor - 1)
			return m, nil
		case key.Matches(msg, keys.Right):
			m.resizeCursor = m.eng.Tokens().Clamp(m.resizeCursor + 1)
			return m, nil
		case key.Matches(msg, keys.Up):
			m.resizeCursor = m.eng.Tokens().Clamp(m.resizeCursor - jumpTokens)
			return m, nil
		case key.Matches(msg, keys.Down):
			m.resizeCursor = m.eng.Tokens().Clamp(m.resizeCursor + jumpTokens)
			return m, nil
		case key.Matches(msg, keys.Enter):
			iv, err := m.resize.Drop(m.resizeCursor)
			m.resize = nil
			if err != nil {
				m.status = dropError(err)
				m.statusTime = time.Now()
				return m, nil
			}
			m.cursor = iv.End
			return m.afterEdit()
		case key.Matches(msg, keys.Esc):
			m.resize.Cancel()
			m.resize = nil
			return m, nil
		case key.Matches(msg, keys.Quit):
			return m.quit()
		}
		return m, nil
	}

	// An active reorder drag owns the movement keys.
	if m.drag != nil {
		remaining := m.snap.HighlightCount + m.snap.BreakCount - len(m.drag.IDs())
		switch {
		case key.Matches(msg, keys.Up):
			if m.dragPos > 0 {
				m.dragPos--
			}
			return m, nil
		case key.Matches(msg, keys.Down):
			if m.dragPos < remaining {
				m.dragPos++
			}
			return m, nil
		case key.Matches(msg, keys.Enter):
			_, err := m.drag.Drop(m.dragPos)
			m.drag = nil
			if err != nil {
				m.status = dropError(err)
				m.statusTime = time.Now()
				return m, nil
			}
			m.selected = make(map[string]bool)
			return m.afterEdit()
		case key.Matches(msg, keys.Esc):
			m.drag.Cancel()
			m.drag = nil
			return m, nil
		case key.Matches(msg, keys.Quit):
			return m.quit()
		}
		return m, nil
	}

	// View shortcuts are always available outside gestures.
	if v, ok := viewKeys[msg.String()]; ok {
		m.activeView = v
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()

	case key.Matches(msg, keys.Tab):
		m.activeView = (m.activeView + 1) % viewCount

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp

	case key.Matches(msg, keys.Save):
		return m, m.saveSession()

	case key.Matches(msg, keys.Esc):
		m.anchor = -1

	default:
		if m.activeView == viewTranscript {
			return m.handleTranscriptKey(msg)
		}
		return m.handleSequenceKey(msg)
	}

	return m, nil
}

// jumpTokens is the j/k stride in the transcript view; h/l step by one.
const jumpTokens = 10

func (m uiModel) handleTranscriptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ix := m.eng.Tokens()
	switch {
	case key.Matches(msg, keys.Left):
		m.cursor = ix.Clamp(m.cursor - 1)

	case key.Matches(msg, keys.Right):
		m.cursor = ix.Clamp(m.cursor + 1)

	case key.Matches(msg, keys.Up):
		m.cursor = ix.Clamp(m.cursor - jumpTokens)

	case key.Matches(msg, keys.Down):
		m.cursor = ix.Clamp(m.cursor + jumpTokens)

	case key.Matches(msg, keys.Mark):
		m.anchor = m.cursor

	case key.Matches(msg, keys.Enter):
		if m.anchor < 0 {
			return m, nil
		}
		// A deliberate mark-and-confirm on one token is an explicit ask
		// for a single-token highlight.
		_, err := m.eng.CreateHighlight(m.anchor, m.cursor, highlight.AllowPoint())
		m.anchor = -1
		if err != nil {
			m.status = dropError(err)
			m.statusTime = time.Now()
			return m, nil
		}
		return m.afterEdit()

	case key.Matches(msg, keys.Delete):
		if iv, ok := m.eng.HighlightAt(m.cursor); ok {
			m.eng.DeleteHighlight(iv.ID)
			return m.afterEdit()
		}

	case key.Matches(msg, keys.Resize), key.Matches(msg, keys.ResizeL):
		iv, ok := m.eng.HighlightAt(m.cursor)
		if !ok {
			m.status = "no highlight under cursor"
			m.statusTime = time.Now()
			return m, nil
		}
		edge := highlight.EdgeEnd
		pos := iv.End
		if key.Matches(msg, keys.ResizeL) {
			edge = highlight.EdgeStart
			pos = iv.Start
		}
		drag, err := m.eng.StartResize(iv.ID, edge)
		if err != nil {
			m.status = dropError(err)
			m.statusTime = time.Now()
			return m, nil
		}
		m.resize = drag
		m.resizeCursor = pos
	}

	return m, nil
}

func (m uiModel) handleSequenceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.snap.Rows
	switch {
	case key.Matches(msg, keys.Up):
		if m.seqCursor > 0 {
			m.seqCursor--
		}

	case key.Matches(msg, keys.Down):
		if m.seqCursor < len(rows)-1 {
			m.seqCursor++
		}

	case key.Matches(msg, keys.Select):
		if row, ok := m.cursorRow(); ok {
			if m.selected[row.Entry.ID] {
				delete(m.selected, row.Entry.ID)
			} else {
				m.selected[row.Entry.ID] = true
			}
		}

	case key.Matches(msg, keys.Grab):
		row, ok := m.cursorRow()
		if !ok {
			return m, nil
		}
		drag, err := m.eng.StartReorder(row.Entry.ID, selectedIDs(m.selected))
		if err != nil {
			m.status = dropError(err)
			m.statusTime = time.Now()
			return m, nil
		}
		// Grabbing outside the selection collapses it; mirror that in
		// the UI state so the render agrees with the engine.
		m.selected = make(map[string]bool)
		for _, id := range drag.IDs() {
			m.selected[id] = true
		}
		m.drag = drag
		m.dragPos = insertPosFor(m.snap.Rows, drag.IDs(), row.Entry.ID)

	case key.Matches(msg, keys.Break):
		m.eng.InsertBreak(m.seqCursor, "")
		return m.afterEdit()

	case key.Matches(msg, keys.Title):
		row, ok := m.cursorRow()
		if !ok || row.Entry.Kind != sequence.KindBreak {
			m.status = "no break under cursor"
			m.statusTime = time.Now()
			return m, nil
		}
		m.titling = true
		m.titleID = row.Entry.ID
		m.titleInput.SetValue(row.Entry.Title)
		m.titleInput.CursorEnd()
		return m, m.titleInput.Focus()

	case key.Matches(msg, keys.Order):
		m.eng.ArrangeByTimeline()
		return m.afterEdit()

	case key.Matches(msg, keys.Delete):
		row, ok := m.cursorRow()
		if !ok {
			return m, nil
		}
		if row.Entry.Kind == sequence.KindBreak {
			m.eng.RemoveBreak(row.Entry.ID)
		} else {
			m.eng.DeleteHighlight(row.Entry.ID)
		}
		delete(m.selected, row.Entry.ID)
		return m.afterEdit()

	case key.Matches(msg, keys.Enter):
		// Drill into the transcript at the clip's first token.
		if row, ok := m.cursorRow(); ok && row.Entry.Kind == sequence.KindHighlight {
			if iv, found := m.eng.Highlight(row.Entry.ID); found {
				m.cursor = iv.Start
				m.activeView = viewTranscript
			}
		}
	}

	return m, nil
}

func (m uiModel) cursorRow() (snapshot.Row, bool) {
	if m.seqCursor < 0 || m.seqCursor >= len(m.snap.Rows) {
		return snapshot.Row{}, false
	}
	return m.snap.Rows[m.seqCursor], true
}

func (m uiModel) quit() (tea.Model, tea.Cmd) {
	m.watcher.Close()
	if m.dirty {
		// Last-chance write so an un-autosaved session is not lost.
		sess := m.sessionDoc()
		if err := datasource.SaveSession(m.sessionPath, sess); err != nil {
			log.Printf("final save failed: %v", err)
		}
	}
	return m, tea.Quit
}

// afterEdit runs after every committed mutation: rebuild the snapshot,
// clamp cursors against the new state, and persist when autosaving.
func (m uiModel) afterEdit() (tea.Model, tea.Cmd) {
	m.titling = false
	m.snap = snapshot.Build(m.title, m.eng)
	m.clampCursors()
	m.dirty = true
	if m.autosave {
		return m, m.saveSession()
	}
	return m, nil
}

func (m *uiModel) clampCursors() {
	m.cursor = m.eng.Tokens().Clamp(m.cursor)
	if len(m.snap.Rows) == 0 {
		m.seqCursor = 0
	} else if m.seqCursor >= len(m.snap.Rows) {
		m.seqCursor = len(m.snap.Rows) - 1
	}
	for id := range m.selected {
		if _, ok := m.eng.Highlight(id); ok {
			continue
		}
		found := false
		for _, row := range m.snap.Rows {
			if row.Entry.ID == id {
				found = true
				break
			}
		}
		if !found {
			delete(m.selected, id)
		}
	}
}

// sessionDoc assembles the persisted form of the current state.
func (m uiModel) sessionDoc() *datasource.Session {
	return &datasource.Session{
		Version:    1,
		Transcript: m.transcriptRef,
		Entries:    m.eng.Export(),
	}
}

func (m uiModel) saveSession() tea.Cmd {
	sess := m.sessionDoc()
	path := m.sessionPath
	return func() tea.Msg {
		return savedMsg{err: datasource.SaveSession(path, sess)}
	}
}

func (m uiModel) reloadSession() tea.Cmd {
	path := m.sessionPath
	tokens := m.eng.Tokens().Tokens()
	pal := m.palette
	return func() tea.Msg {
		sess, err := datasource.LoadSession(path)
		if err != nil {
			return sessionReloadedMsg{err: err}
		}
		eng := engine.Restore(tokens, sess.Entries, engine.WithPalette(pal))
		return sessionReloadedMsg{eng: eng}
	}
}

// selectedIDs flattens the selection set for the engine.
func selectedIDs(sel map[string]bool) []string {
	out := make([]string, 0, len(sel))
	for id := range sel {
		if sel[id] {
			out = append(out, id)
		}
	}
	return out
}

// insertPosFor returns the drop position that keeps a freshly grabbed
// block where it stands: the number of non-dragged rows above the
// grabbed row.
func insertPosFor(rows []snapshot.Row, dragIDs []string, grabID string) int {
	dragged := make(map[string]bool, len(dragIDs))
	for _, id := range dragIDs {
		dragged[id] = true
	}
	pos := 0
	for _, row := range rows {
		if row.Entry.ID == grabID {
			break
		}
		if !dragged[row.Entry.ID] {
			pos++
		}
	}
	return pos
}

// dropError renders gesture errors in status-bar language.
func dropError(err error) string {
	switch {
	case errors.Is(err, highlight.ErrOverlap):
		return "overlaps an existing highlight"
	case errors.Is(err, highlight.ErrPointRange):
		return "range covers a single token"
	case errors.Is(err, highlight.ErrNotFound):
		return "highlight is gone"
	case errors.Is(err, engine.ErrDropInFlight):
		return "still applying the previous drop"
	case errors.Is(err, engine.ErrDragDone):
		return "drag already finished"
	case errors.Is(err, sequence.ErrEmptyDrag):
		return "nothing to drag"
	}
	return err.Error()
}

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#CBA6F7")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#CBA6F7")).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#6C7086")).
				Background(lipgloss.Color("#313244")).
				Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#89B4FA"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086"))

	markStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#F5E0DC"))

	cursorStyle = lipgloss.NewStyle().
			Reverse(true)

	breakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387"))

	grabbedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9E2AF"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F38BA8"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CDD6F4")).
			Background(lipgloss.Color("#1E1E2E"))
)

// clipStyle renders text on a highlight's own color, picking a dark or
// light foreground for contrast.
func clipStyle(hex string) lipgloss.Style {
	fg := "#1E1E2E"
	if c, err := colorful.Hex(hex); err == nil {
		if _, _, l := c.Hsl(); l < 0.5 {
			fg = "#CDD6F4"
		}
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(fg)).
		Background(lipgloss.Color(hex))
}

// swatch is the color chip shown next to a clip row.
func swatch(hex string) string {
	if hex == "" {
		return "  "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("██")
}

// --- View rendering ---

func (m uiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderTitleBar())
	b.WriteRune('\n')
	b.WriteString(m.renderTabBar())
	b.WriteRune('\n')
	b.WriteRune('\n')

	contentHeight := m.height - 5 // title + tabs + status + padding
	if m.showHelp {
		contentHeight -= 3
	}

	var content string
	// Split-pane on wide terminals: transcript and sequence side by
	// side, which is how a paper edit is actually worked.
	if m.width >= 140 {
		leftWidth := m.width/2 - 1
		rightWidth := m.width - leftWidth - 3 // 3 for separator
		left := m.renderTranscript(leftWidth, contentHeight)
		right := m.renderSequence(rightWidth, contentHeight)
		content = renderSplitPane(left, right, leftWidth, rightWidth, contentHeight)
	} else {
		switch m.activeView {
		case viewTranscript:
			content = m.renderTranscript(m.width-2, contentHeight)
		case viewSequence:
			content = m.renderSequence(m.width-2, contentHeight)
		}
	}

	// Truncate each line to terminal width so content doesn't wrap
	// on resize. Uses ANSI-aware width measurement.
	content = truncateLines(content, m.width)

	b.WriteString(content)

	// Pad to fill screen.
	rendered := strings.Count(b.String(), "\n")
	for rendered < m.height-2 {
		b.WriteRune('\n')
		rendered++
	}

	// Help / status bar.
	if m.showHelp {
		b.WriteString(m.help.View(keys))
	} else {
		b.WriteString(m.renderStatusBar())
	}

	return b.String()
}

func (m uiModel) renderTitleBar() string {
	title := titleStyle.Render("paperedit · " + m.title)
	stats := dimStyle.Render(fmt.Sprintf(
		"%d tokens | %d clips | %d breaks | %s of %s selected",
		m.snap.TokenCount,
		m.snap.HighlightCount,
		m.snap.BreakCount,
		timecode(m.snap.Selected),
		timecode(m.snap.Duration),
	))
	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(title)-lipgloss.Width(stats)-2))
	return title + gap + stats
}

func (m uiModel) renderTabBar() string {
	var tabs []string
	for i := viewID(0); i < viewCount; i++ {
		if i == m.activeView {
			tabs = append(tabs, tabActiveStyle.Render(i.String()))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(i.String()))
		}
	}
	return strings.Join(tabs, " ")
}

func (m uiModel) renderStatusBar() string {
	left := " " + contextHelp(m)
	if m.status != "" && time.Since(m.statusTime) < 4*time.Second {
		left = " " + errorStyle.Render(m.status)
	}

	var right string
	switch {
	case m.dirty:
		right = "unsaved edits "
	case m.autosave:
		right = fmt.Sprintf("autosaved %s ago ", shortDuration(time.Since(m.lastSave)))
	default:
		right = fmt.Sprintf("saved %s ago ", shortDuration(time.Since(m.lastSave)))
	}

	gap := strings.Repeat(" ", max(0, m.width-lipgloss.Width(left)-lipgloss.Width(right)))
	return statusBarStyle.Render(left + gap + right)
}

// --- Transcript view ---

// tokenRow is one visual line of the transcript flow: the token
// positions it carries.
type tokenRow struct {
	from, to int // closed range of token positions
}

// layoutTokens flows the token stream into rows of at most width
// visible columns, one space between tokens.
func layoutTokens(ix *transcript.Index, width int) []tokenRow {
	if width < 8 {
		width = 8
	}
	var rows []tokenRow
	col := 0
	start := 0
	for i := 0; i < ix.Len(); i++ {
		w := runewidth.StringWidth(ix.Token(i).Text)
		need := w
		if col > 0 {
			need++ // leading space
		}
		if col > 0 && col+need > width {
			rows = append(rows, tokenRow{from: start, to: i - 1})
			start = i
			col = w
			continue
		}
		col += need
	}
	if ix.Len() > 0 {
		rows = append(rows, tokenRow{from: start, to: ix.Len() - 1})
	}
	return rows
}

// tokenColor resolves the highlight color shown for a token, taking an
// active resize preview into account: the dragged range shows in the
// clip's color, the vacated part of the original range shows bare.
func (m uiModel) tokenColor(idx int) string {
	if m.resize != nil {
		res, err := m.resize.Over(m.resizeCursor)
		if err == nil {
			orig := m.resize.Interval()
			if idx >= res.Start && idx <= res.End {
				return orig.Color
			}
			if orig.Contains(idx) {
				return ""
			}
		}
	}
	return m.snap.ColorAt(idx)
}

func (m uiModel) renderTranscript(width, height int) string {
	var b strings.Builder
	ix := m.eng.Tokens()

	if ix.Len() == 0 {
		b.WriteString(dimStyle.Render("  (empty transcript)"))
		b.WriteRune('\n')
		return b.String()
	}

	pos := ix.Token(m.cursor)
	header := headerStyle.Render("Transcript")
	b.WriteString(header)
	b.WriteString(dimStyle.Render(fmt.Sprintf("  token %d/%d · %s", m.cursor+1, ix.Len(), timecode(pos.Start))))
	if m.anchor >= 0 {
		lo, hi := m.anchor, m.cursor
		if lo > hi {
			lo, hi = hi, lo
		}
		b.WriteString(markStyle.Render(fmt.Sprintf(" marking %d tokens ", hi-lo+1)))
	}
	if m.resize != nil {
		if res, err := m.resize.Over(m.resizeCursor); err == nil {
			b.WriteString(breakStyle.Render(fmt.Sprintf(" resize %s edge: [%d,%d] %s ",
				m.resize.Edge(), res.Start, res.End, res.Mode)))
		}
	}
	b.WriteRune('\n')
	b.WriteRune('\n')

	rows := layoutTokens(ix, width-2)

	// Keep the cursor row in the visible window.
	visible := height - 3
	if visible < 1 {
		visible = 1
	}
	cursorRow := 0
	for i, row := range rows {
		if m.cursor >= row.from && m.cursor <= row.to {
			cursorRow = i
			break
		}
	}
	top := 0
	if cursorRow >= visible {
		top = cursorRow - visible + 1
	}

	markLo, markHi := -1, -1
	if m.anchor >= 0 {
		markLo, markHi = m.anchor, m.cursor
		if markLo > markHi {
			markLo, markHi = markHi, markLo
		}
	}

	for ri := top; ri < len(rows) && ri < top+visible; ri++ {
		row := rows[ri]
		b.WriteString("  ")
		for i := row.from; i <= row.to; i++ {
			text := ix.Token(i).Text
			color := m.tokenColor(i)
			marked := i >= markLo && i <= markHi

			style := lipgloss.NewStyle()
			switch {
			case marked:
				style = markStyle
			case color != "":
				style = clipStyle(color)
			}
			if i == m.cursor || (m.resize != nil && i == m.resizeCursor) {
				style = style.Reverse(true).Bold(true)
			}
			b.WriteString(style.Render(text))

			// Style the joining space too when both neighbors sit in
			// the same range, so a clip reads as one solid band.
			if i < row.to {
				next := m.tokenColor(i + 1)
				nextMarked := i+1 >= markLo && i+1 <= markHi
				switch {
				case marked && nextMarked:
					b.WriteString(markStyle.Render(" "))
				case color != "" && next == color:
					b.WriteString(clipStyle(color).Render(" "))
				default:
					b.WriteString(" ")
				}
			}
		}
		b.WriteRune('\n')
	}

	if iv, ok := m.eng.HighlightAt(m.cursor); ok && m.resize == nil {
		b.WriteRune('\n')
		b.WriteString(swatch(iv.Color))
		b.WriteString(dimStyle.Render(fmt.Sprintf(" clip [%d,%d] · %s – %s",
			iv.Start, iv.End, timecode(m.snap.ClipStart(iv)), timecode(m.snap.ClipEnd(iv)))))
		b.WriteRune('\n')
	}

	return b.String()
}

// --- Sequence view ---

func (m uiModel) renderSequence(width, height int) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Sequence"))
	if m.drag != nil {
		b.WriteString(grabbedStyle.Render(fmt.Sprintf("  moving %d entries", len(m.drag.IDs()))))
	} else if n := len(selectedIDs(m.selected)); n > 0 {
		b.WriteString(selectedStyle.Render(fmt.Sprintf("  %d selected", n)))
	}
	b.WriteRune('\n')
	b.WriteRune('\n')

	rows := m.snap.Rows
	dragSet := map[string]bool{}
	if m.drag != nil {
		for _, id := range m.drag.IDs() {
			dragSet[id] = true
		}
		if preview, err := m.drag.Preview(m.dragPos); err == nil {
			rows = m.previewRows(preview)
		}
	}

	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("  (no clips yet — mark ranges in the transcript with v)"))
		b.WriteRune('\n')
		return b.String()
	}

	for i, row := range rows {
		prefix := "  "
		if m.drag == nil && i == m.seqCursor {
			prefix = "> "
		}
		if dragSet[row.Entry.ID] {
			prefix = grabbedStyle.Render("┃ ")
		} else if m.selected[row.Entry.ID] {
			prefix = selectedStyle.Render("* ")
		}

		if row.Entry.Kind == sequence.KindBreak {
			b.WriteString(prefix)
			b.WriteString(m.renderBreakRow(row.Entry, width))
			b.WriteRune('\n')
			continue
		}

		c := row.Clip
		head := fmt.Sprintf("%s %s–%s  ", swatch(c.Color), timecode(c.Start), timecode(c.End))
		textWidth := width - lipgloss.Width(head) - 4
		if textWidth < 16 {
			textWidth = 16
		}
		lines := strings.Split(wordwrap.String(c.Text, textWidth), "\n")
		for li, line := range lines {
			if li == 0 {
				b.WriteString(prefix)
				b.WriteString(head)
			} else {
				b.WriteString("  ")
				b.WriteString(strings.Repeat(" ", lipgloss.Width(head)))
			}
			if dragSet[row.Entry.ID] {
				b.WriteString(grabbedStyle.Render(line))
			} else if m.drag == nil && i == m.seqCursor {
				b.WriteString(cursorStyle.Render(line))
			} else {
				b.WriteString(line)
			}
			b.WriteRune('\n')
		}
	}

	if m.titling {
		b.WriteRune('\n')
		b.WriteString("  ")
		b.WriteString(breakStyle.Render("title: "))
		b.WriteString(m.titleInput.View())
		b.WriteRune('\n')
	}

	// Trim to the window; the cursor row stays visible.
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if len(lines) > height && height > 0 {
		anchorLine := m.seqCursor + 2 // header and blank line above rows
		top := 0
		if anchorLine >= height {
			top = anchorLine - height + 1
		}
		if top+height > len(lines) {
			top = max(0, len(lines)-height)
		}
		lines = lines[top : top+height]
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m uiModel) renderBreakRow(en sequence.Entry, width int) string {
	label := " break "
	if en.Title != "" {
		label = " " + en.Title + " "
	}
	rule := width - lipgloss.Width(label) - 10
	if rule < 4 {
		rule = 4
	}
	return breakStyle.Render("────" + label + strings.Repeat("─", rule))
}

// previewRows maps a previewed order back to renderable rows using the
// clips of the current snapshot.
func (m uiModel) previewRows(entries []sequence.Entry) []snapshot.Row {
	byID := make(map[string]engine.Clip, len(m.snap.Clips))
	for _, c := range m.snap.Clips {
		byID[c.ID] = c
	}
	rows := make([]snapshot.Row, 0, len(entries))
	for _, en := range entries {
		row := snapshot.Row{Entry: en}
		if en.Kind == sequence.KindHighlight {
			row.Clip = byID[en.ID]
		}
		rows = append(rows, row)
	}
	return rows
}

// --- Split-pane rendering ---

// renderSplitPane renders two content panes side by side with a
// vertical separator.
func renderSplitPane(left, right string, leftWidth, rightWidth, maxHeight int) string {
	leftLines := strings.Split(left, "\n")
	rightLines := strings.Split(right, "\n")

	maxLines := max(len(leftLines), len(rightLines))
	if maxLines > maxHeight {
		maxLines = maxHeight
	}
	for len(leftLines) < maxLines {
		leftLines = append(leftLines, "")
	}
	for len(rightLines) < maxLines {
		rightLines = append(rightLines, "")
	}

	sep := dimStyle.Render("│")
	var b strings.Builder
	for i := 0; i < maxLines; i++ {
		b.WriteString(padOrTruncate(leftLines[i], leftWidth))
		b.WriteString(" ")
		b.WriteString(sep)
		b.WriteString(" ")
		b.WriteString(ansi.Truncate(rightLines[i], rightWidth, ""))
		b.WriteRune('\n')
	}
	return b.String()
}

// padOrTruncate pads or truncates a line to the target visible width,
// ANSI-aware in both directions.
func padOrTruncate(line string, width int) string {
	w := lipgloss.Width(line)
	if w > width {
		return ansi.Truncate(line, width, "")
	}
	return line + strings.Repeat(" ", width-w)
}

// --- Helpers ---

// truncateLines truncates each line in content to at most width visible
// characters, preserving ANSI escape codes. This prevents terminal line
// wrapping when the window is resized narrower.
func truncateLines(content string, width int) string {
	if width <= 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = ansi.Truncate(line, width, "")
		}
	}
	return strings.Join(lines, "\n")
}

// timecode formats seconds as m:ss.t, or h:mm:ss.t for long footage.
func timecode(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	h := int(sec) / 3600
	mn := int(sec) / 60 % 60
	s := sec - float64(int(sec)/60*60)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%04.1f", h, mn, s)
	}
	return fmt.Sprintf("%d:%04.1f", mn, s)
}

func shortDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
