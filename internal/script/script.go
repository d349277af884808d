// Package script turns extracted document text into a two-host dialogue. The
// generator asks a chat-completion model for the raw script; the parser then
// splits the model's free text into ordered speaker-tagged lines.
package script

import "errors"

// Line is one utterance of the dialogue. Speaker is always one of the two
// host names configured for the run.
type Line struct {
	Speaker string
	Text    string
}

// ErrEmptyScript reports that a non-empty model response contained no lines
// matching the "Name: text" convention. Callers can retry generation or fail
// the run; the parser itself does not decide.
var ErrEmptyScript = errors.New("script: no dialogue lines parsed")
