// Package datasource reads and writes ped session and transcript files
// and discovers the session for the working tree.
package datasource

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paperedit/paperedit/internal/engine"
	"github.com/paperedit/paperedit/internal/transcript"
)

const (
	defaultDir     = ".paperedit"
	defaultSession = ".paperedit/session.json"
)

// breakLiteral is the compact wire form of an untitled section break.
// Titled breaks use the object form {"type":"N","title":...}; both
// shapes are resolved into engine.SavedEntry once, at decode time.
const breakLiteral = "N"

// Discover finds the session file path.
// Priority: PAPEREDIT_SESSION env var > .paperedit/session.json in CWD
// > walk up parents.
func Discover() (string, error) {
	if env := os.Getenv("PAPEREDIT_SESSION"); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env, nil
		}
		return "", fmt.Errorf("PAPEREDIT_SESSION=%q: %w", env, os.ErrNotExist)
	}

	// Check CWD first.
	if _, err := os.Stat(defaultSession); err == nil {
		abs, err := filepath.Abs(defaultSession)
		if err != nil {
			return "", fmt.Errorf("resolve absolute path for %s: %w", defaultSession, err)
		}
		return abs, nil
	}

	// Walk up parent directories.
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, defaultSession)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no session found (looked for %s)", defaultSession)
}

// Session is the persisted state of one paper edit.
type Session struct {
	Version    int
	Transcript string // transcript path, relative to the session file unless absolute
	Entries    []engine.SavedEntry
}

type sessionFile struct {
	Version    int            `json:"version"`
	Transcript string         `json:"transcript,omitempty"`
	Entries    []sessionEntry `json:"entries"`
}

// sessionEntry adapts one display-order element to the wire: a clip
// descriptor object, or a break as either the literal "N" or the
// titled object form.
type sessionEntry struct {
	entry engine.SavedEntry
}

type clipJSON struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Color string  `json:"color,omitempty"`
	Text  string  `json:"text,omitempty"`
}

type breakJSON struct {
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

func (se sessionEntry) MarshalJSON() ([]byte, error) {
	switch {
	case se.entry.Clip != nil:
		c := se.entry.Clip
		return json.Marshal(clipJSON{ID: c.ID, Start: c.Start, End: c.End, Color: c.Color, Text: c.Text})
	case se.entry.Break != nil:
		if se.entry.Break.Title == "" {
			return json.Marshal(breakLiteral)
		}
		return json.Marshal(breakJSON{Type: breakLiteral, Title: se.entry.Break.Title})
	}
	return nil, errors.New("session entry has no payload")
}

func (se *sessionEntry) UnmarshalJSON(data []byte) error {
	var lit string
	if err := json.Unmarshal(data, &lit); err == nil {
		if lit != breakLiteral {
			return fmt.Errorf("unknown entry literal %q", lit)
		}
		se.entry = engine.SavedEntry{Break: &engine.SavedBreak{}}
		return nil
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("session entry: %w", err)
	}
	if probe.Type == breakLiteral {
		var b breakJSON
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		se.entry = engine.SavedEntry{Break: &engine.SavedBreak{Title: b.Title}}
		return nil
	}
	if probe.Type != "" {
		return fmt.Errorf("unknown entry type %q", probe.Type)
	}

	var c clipJSON
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	se.entry = engine.SavedEntry{Clip: &engine.Clip{ID: c.ID, Start: c.Start, End: c.End, Color: c.Color, Text: c.Text}}
	return nil
}

// LoadSession reads a session file.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s := &Session{Version: sf.Version, Transcript: sf.Transcript}
	for _, se := range sf.Entries {
		s.Entries = append(s.Entries, se.entry)
	}
	return s, nil
}

// SaveSession writes the session as indented JSON, creating the parent
// directory when needed.
func SaveSession(path string, s *Session) error {
	sf := sessionFile{
		Version:    s.Version,
		Transcript: s.Transcript,
		Entries:    make([]sessionEntry, 0, len(s.Entries)),
	}
	if sf.Version == 0 {
		sf.Version = 1
	}
	for _, en := range s.Entries {
		sf.Entries = append(sf.Entries, sessionEntry{entry: en})
	}

	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// ResolveTranscript resolves a session's transcript path against the
// session file location.
func ResolveTranscript(sessionPath, transcriptPath string) string {
	if transcriptPath == "" || filepath.IsAbs(transcriptPath) {
		return transcriptPath
	}
	return filepath.Join(filepath.Dir(sessionPath), transcriptPath)
}

type transcriptFile struct {
	Title  string      `json:"title,omitempty"`
	Tokens []tokenJSON `json:"tokens"`
}

type tokenJSON struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// whisperFile is the subset of whisper-style ASR output we read, so a
// raw transcription can be opened without conversion.
type whisperFile struct {
	Segments []struct {
		Words []struct {
			Word  string  `json:"word"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"words"`
	} `json:"segments"`
}

// LoadTranscript reads a transcript: the native tokens shape first,
// whisper-style segments/words as a fallback. It returns the transcript
// title (file base name when the file carries none) and the tokens.
func LoadTranscript(path string) (string, []transcript.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read transcript: %w", err)
	}

	var tf transcriptFile
	if err := json.Unmarshal(data, &tf); err == nil && len(tf.Tokens) > 0 {
		toks := make([]transcript.Token, len(tf.Tokens))
		for i, t := range tf.Tokens {
			toks[i] = transcript.Token{Text: t.Text, Start: t.Start, End: t.End}
		}
		title := tf.Title
		if title == "" {
			title = baseName(path)
		}
		return title, toks, nil
	}

	var wf whisperFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return "", nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var toks []transcript.Token
	for _, seg := range wf.Segments {
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			toks = append(toks, transcript.Token{Text: text, Start: w.Start, End: w.End})
		}
	}
	if len(toks) == 0 {
		return "", nil, fmt.Errorf("%s: no tokens", path)
	}
	return baseName(path), toks, nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
