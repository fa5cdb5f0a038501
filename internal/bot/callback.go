// Package bot implements the Telegram-facing layer: the callback token
// codec, message/keyboard rendering, and the update router.
//
// This file defines the token codec. Every inline button carries one opaque
// token; the two token families are a small tagged union decoded by a single
// entry function that dispatches on the leading tag. Telegram caps callback
// data at 64 bytes, which the fixed 4-segment layout stays well under.
package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// tokenSep joins token segments. Kinds and directions are fixed enumerations
// and pages are decimal digits, so the separator cannot appear in a segment.
const tokenSep = ":"

// Leading tags of the two token families.
const (
	tagPagination = "pagination"
	tagMovie      = "movie"
)

// ErrBadToken is returned for any callback token that does not match one of
// the two known shapes. The router turns it into a logged no-op plus a
// transient notice; it must never crash the dispatch loop.
var ErrBadToken = errors.New("malformed callback token")

// ContentKind discriminates the two paged views.
type ContentKind string

const (
	KindHistory ContentKind = "history"
	KindStats   ContentKind = "stats"
)

// Direction is a one-page navigation step.
type Direction string

const (
	DirNext Direction = "next"
	DirPrev Direction = "prev"
)

// PaginationToken resumes a paged view one step from the page it was
// rendered at. Page is the page currently shown, not the target.
type PaginationToken struct {
	Kind ContentKind
	Dir  Direction
	Page int
}

// Encode renders the token as "pagination:<kind>:<dir>:<page>".
func (t PaginationToken) Encode() string {
	return strings.Join([]string{tagPagination, string(t.Kind), string(t.Dir), strconv.Itoa(t.Page)}, tokenSep)
}

// Target returns the page the navigation step asks for. No clamping happens
// here; the store yields an empty window for out-of-range pages and the
// router decides what to do with it.
func (t PaginationToken) Target() int {
	if t.Dir == DirNext {
		return t.Page + 1
	}
	return t.Page - 1
}

// MovieToken identifies one catalog result in a selection list.
type MovieToken struct {
	MovieID int
}

// Encode renders the token as "movie:<id>".
func (t MovieToken) Encode() string {
	return tagMovie + tokenSep + strconv.Itoa(t.MovieID)
}

// ParseCallback decodes a callback token into one of the two token values.
// The leading segment selects the family before the rest is validated, since
// the families are structurally different. Any shape violation yields
// ErrBadToken.
func ParseCallback(data string) (any, error) {
	parts := strings.Split(data, tokenSep)

	switch parts[0] {
	case tagPagination:
		return parsePagination(parts)
	case tagMovie:
		return parseMovie(parts)
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", ErrBadToken, parts[0])
	}
}

func parsePagination(parts []string) (PaginationToken, error) {
	if len(parts) != 4 {
		return PaginationToken{}, fmt.Errorf("%w: want 4 segments, got %d", ErrBadToken, len(parts))
	}

	kind := ContentKind(parts[1])
	if kind != KindHistory && kind != KindStats {
		return PaginationToken{}, fmt.Errorf("%w: unknown content kind %q", ErrBadToken, parts[1])
	}

	dir := Direction(parts[2])
	if dir != DirNext && dir != DirPrev {
		return PaginationToken{}, fmt.Errorf("%w: unknown direction %q", ErrBadToken, parts[2])
	}

	page, err := strconv.Atoi(parts[3])
	if err != nil || page < 1 {
		return PaginationToken{}, fmt.Errorf("%w: page segment %q is not a positive integer", ErrBadToken, parts[3])
	}

	return PaginationToken{Kind: kind, Dir: dir, Page: page}, nil
}

func parseMovie(parts []string) (MovieToken, error) {
	if len(parts) != 2 {
		return MovieToken{}, fmt.Errorf("%w: want 2 segments, got %d", ErrBadToken, len(parts))
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil || id < 1 {
		return MovieToken{}, fmt.Errorf("%w: movie id segment %q is not a positive integer", ErrBadToken, parts[1])
	}
	return MovieToken{MovieID: id}, nil
}
