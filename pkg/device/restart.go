package device

// ExitRestarter leaves the restart to the service manager: Restart returns
// ErrRestart and the caller exits the process.
type ExitRestarter struct{}

// Restart returns ErrRestart.
func (ExitRestarter) Restart() error { return ErrRestart }

// RebootRestarter flushes filesystems and reboots the board.
type RebootRestarter struct{}

// Restart reboots. It only returns on failure.
func (RebootRestarter) Restart() error { return reboot() }
