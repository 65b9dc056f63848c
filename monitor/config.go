package monitor

import (
	"io/ioutil"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/mberk/shepherd/coordinator"
)

// SnapshotSource provides the read-only monitoring view of a training
// run.
type SnapshotSource interface {
	Snapshot() coordinator.Snapshot
}

// Config encapsulates the settings for configuring a monitor instance.
type Config struct {
	// The source of run snapshots, typically the coordinator.
	Source SnapshotSource

	// The address to listen for incoming requests.
	ListenAddr string

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.ListenAddr == "" {
		err = multierror.Append(err, xerrors.Errorf("listen address has not been specified"))
	}
	if cfg.Source == nil {
		err = multierror.Append(err, xerrors.Errorf("snapshot source has not been provided"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}
