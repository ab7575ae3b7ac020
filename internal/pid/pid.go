package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/diskvigil/diskvigil/internal/errors"
)

const pidFile = "diskvigild.pid"

func path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write claims the PID file for this process. A file left behind by a dead
// process is overwritten; a file held by a live process means another daemon
// owns the drives and Write returns ErrAlreadyRunning.
func Write() error {
	errFactory := errors.New()

	if owner, ok, err := currentOwner(); err != nil {
		return err
	} else if ok && processAlive(owner) {
		return errFactory.New(errors.ErrAlreadyRunning)
	}

	if err := os.WriteFile(path(), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the PID file. A missing file is not an error.
func Remove() error {
	if err := os.Remove(path()); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}
	return nil
}

func currentOwner() (int, bool, error) {
	raw, err := os.ReadFile(path())
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.New().Wrap(errors.ErrInternal, err)
	}

	owner, err := strconv.Atoi(string(raw))
	if err != nil {
		// Corrupt PID file, treat as stale.
		return 0, false, nil
	}
	return owner, true, nil
}

func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
