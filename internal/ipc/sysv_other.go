//go:build !(linux && (amd64 || arm64))

package ipc

import "github.com/ceyewan/shmbreaker/xerrors"

func newSysVBackend(*Config) (Backend, error) {
	return nil, xerrors.Wrapf(ErrUnsupported, "driver %q", DriverSysV)
}
