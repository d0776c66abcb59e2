package document

import (
	"fmt"

	"github.com/makadata/maka/data"
)

// Edit records one splice of a document: observations [Start, End) were
// replaced by New, displacing Old. Applying an edit's inverse to the
// resulting snapshot restores the original sequence.
type Edit struct {
	Name  string
	Start int
	End   int
	Old   []*data.Observation
	New   []*data.Observation
}

// Inverse returns the edit that undoes this one.
func (e *Edit) Inverse() *Edit {
	return &Edit{
		Name:  e.Name + " Inverse",
		Start: e.Start,
		End:   e.Start + len(e.New),
		Old:   e.New,
		New:   e.Old,
	}
}

// History tracks the edits applied to a logical document and its saved
// position, supporting undo, redo, and dirty-state queries. Hosts pair a
// History with the current Document snapshot, applying the edits Undo and
// Redo return.
type History struct {
	edits    []*Edit
	pos      int
	savedPos int
}

// NewHistory returns the history of an unedited, saved document.
func NewHistory() *History { return &History{} }

// Append records a newly performed edit, discarding any undone edits
// beyond the current position.
func (h *History) Append(e *Edit) {
	h.edits = h.edits[:h.pos]
	if h.savedPos > h.pos {
		// The saved state was in the discarded redo tail and is no longer
		// reachable.
		h.savedPos = -1
	}
	h.edits = append(h.edits, e)
	h.pos++
}

// CanUndo reports whether there is an edit to undo.
func (h *History) CanUndo() bool { return h.pos > 0 }

// CanRedo reports whether there is an undone edit to redo.
func (h *History) CanRedo() bool { return h.pos < len(h.edits) }

// UndoName returns the name of the edit Undo would revert.
func (h *History) UndoName() (string, bool) {
	if !h.CanUndo() {
		return "", false
	}
	return h.edits[h.pos-1].Name, true
}

// RedoName returns the name of the edit Redo would reapply.
func (h *History) RedoName() (string, bool) {
	if !h.CanRedo() {
		return "", false
	}
	return h.edits[h.pos].Name, true
}

// Undo steps back one edit and returns its inverse for the caller to
// apply to the current snapshot.
func (h *History) Undo() (*Edit, error) {
	if !h.CanUndo() {
		return nil, fmt.Errorf("nothing to undo")
	}
	h.pos--
	return h.edits[h.pos].Inverse(), nil
}

// Redo steps forward one undone edit and returns it for the caller to
// apply.
func (h *History) Redo() (*Edit, error) {
	if !h.CanRedo() {
		return nil, fmt.Errorf("nothing to redo")
	}
	e := h.edits[h.pos]
	h.pos++
	return e, nil
}

// Saved reports whether the document is at its last saved position.
func (h *History) Saved() bool { return h.pos == h.savedPos }

// MarkSaved records the current position as the saved state.
func (h *History) MarkSaved() { h.savedPos = h.pos }
