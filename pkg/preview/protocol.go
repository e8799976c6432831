package preview

import (
	"fmt"
	"strings"
)

// Protocol is a way of putting pixels on a terminal.
type Protocol int

const (
	None Protocol = iota
	Halfblocks
	Kitty
	ITerm2
	Sixel
)

var protocolNames = map[Protocol]string{
	None:       "none",
	Halfblocks: "halfblocks",
	Kitty:      "kitty",
	ITerm2:     "iterm2",
	Sixel:      "sixel",
}

func (p Protocol) String() string {
	if s, ok := protocolNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// ParseProtocol reads a --preview value. "auto" and "" detect from env.
func ParseProtocol(s string, env func(string) string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Detect(env), nil
	case "none", "off":
		return None, nil
	case "halfblocks":
		return Halfblocks, nil
	case "kitty":
		return Kitty, nil
	case "iterm2":
		return ITerm2, nil
	case "sixel":
		return Sixel, nil
	}
	return None, fmt.Errorf("preview: unknown protocol %q", s)
}

// Detect picks the best protocol for the terminal described by env
// (os.Getenv in production). Over SSH the graphics protocols are skipped
// for halfblocks.
func Detect(env func(string) string) Protocol {
	if env("SSH_TTY") != "" || env("SSH_CONNECTION") != "" {
		return Halfblocks
	}
	switch strings.ToLower(env("TERM_PROGRAM")) {
	case "ghostty", "kitty", "wezterm":
		return Kitty
	case "iterm.app":
		return ITerm2
	}
	switch term := env("TERM"); {
	case term == "xterm-ghostty", term == "xterm-kitty":
		return Kitty
	case env("KITTY_WINDOW_ID") != "":
		return Kitty
	case env("ITERM_SESSION_ID") != "", env("LC_TERMINAL") == "iTerm2":
		return ITerm2
	case env("WEZTERM_EXECUTABLE") != "":
		return Kitty
	}
	return Halfblocks
}
