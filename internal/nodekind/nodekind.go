// Package nodekind defines the tri-state node kind shared by the working
// copy, the RA session, and the pair normalizer (CopyPair.src_kind
// is one of {file, dir, none}).
package nodekind

// Kind classifies what a path denotes, once its existence has been
// checked. KindNone means the path does not exist.
type Kind int

const (
	KindNone Kind = iota
	KindFile
	KindDir
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	default:
		return "none"
	}
}
