package provider

import (
	"os"
	"os/exec"
)

type EntryKind string

const (
	// A path to an existing compiler executable.
	EntryFile EntryKind = "file"

	// A git revision of the compiler repository to build from source.
	EntryRevision EntryKind = "revision"
)

// Entry is one comparison operand: where a compiler build comes from and
// the side it is bound to ("left" or "right").
type Entry struct {
	Kind EntryKind
	Data string
	Name string
}

// ToEntry classifies the operand. A path to an executable file wins;
// otherwise the operand is checked against the repository's object store.
// Returns nil when it is neither.
func ToEntry(repo, name, pathOrRevision string) *Entry {
	if info, err := os.Stat(pathOrRevision); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
		return &Entry{Kind: EntryFile, Data: pathOrRevision, Name: name}
	}
	if revisionExists(repo, pathOrRevision) {
		return &Entry{Kind: EntryRevision, Data: pathOrRevision, Name: name}
	}
	return nil
}

func revisionExists(repo, revision string) bool {
	cmd := exec.Command("git", "cat-file", "-e", revision)
	cmd.Dir = repo
	return cmd.Run() == nil
}
