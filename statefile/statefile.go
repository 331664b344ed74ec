// Package statefile persists reporter state between CLI invocations.
//
// The file holds one msgpack document {version, state, saved_at}. Writes
// go to a temporary file in the same directory which is then renamed over
// the target, so a reader never sees a partial document.
package statefile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/rpreport/reporter"
	"github.com/justapithecus/rpreport/types"
)

// DefaultPath is used when neither flag nor config names a state file.
const DefaultPath = ".rpreport-state"

// MaxFileSize bounds how much Load will read.
const MaxFileSize = 1 << 20

// ErrorKind classifies load failures.
type ErrorKind int

const (
	// ErrorCorrupt indicates the file is not a valid document.
	ErrorCorrupt ErrorKind = iota
	// ErrorVersion indicates a document written by an unknown version.
	ErrorVersion
	// ErrorTooLarge indicates the file exceeds MaxFileSize.
	ErrorTooLarge
)

// Error is returned by Load for unusable files.
type Error struct {
	Kind ErrorKind
	Path string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("state file %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("state file %s: %s", e.Path, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// document is the on-disk layout.
type document struct {
	Version int            `msgpack:"version"`
	State   reporter.State `msgpack:"state"`
	SavedAt time.Time      `msgpack:"saved_at"`
}

// Load reads the state at path. A missing file yields reporter.NewState().
func Load(path string) (reporter.State, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return reporter.NewState(), nil
	}
	if err != nil {
		return reporter.State{}, fmt.Errorf("stat state file: %w", err)
	}
	if info.Size() > MaxFileSize {
		return reporter.State{}, &Error{
			Kind: ErrorTooLarge,
			Path: path,
			Msg:  fmt.Sprintf("size %d exceeds %d", info.Size(), MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return reporter.State{}, fmt.Errorf("read state file: %w", err)
	}

	var doc document
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return reporter.State{}, &Error{Kind: ErrorCorrupt, Path: path, Msg: "decode failed", Err: err}
	}
	if doc.Version != types.StateFileVersion {
		return reporter.State{}, &Error{
			Kind: ErrorVersion,
			Path: path,
			Msg:  fmt.Sprintf("unsupported version %d (want %d)", doc.Version, types.StateFileVersion),
		}
	}
	return doc.State, nil
}

// Save writes state to path atomically.
func Save(path string, state reporter.State) error {
	data, err := msgpack.Marshal(&document{
		Version: types.StateFileVersion,
		State:   state,
		SavedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Remove deletes the state file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}
