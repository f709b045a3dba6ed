//go:build unix

package steampipe

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// isolate starts the engine in its own process group so that plugin processes it spawns
// are killed with it when the query is canceled.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
