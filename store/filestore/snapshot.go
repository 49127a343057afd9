package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"

	"github.com/wippyai/typegraph/errors"
	"github.com/wippyai/typegraph/store"
)

// SchemaVersion is written into every snapshot.
const SchemaVersion = "1.0.0"

// schemaRange lists the snapshot versions this package can read.
const schemaRange = ">= 1.0.0, < 2.0.0"

// Snapshot is the on-disk form of a store.
type Snapshot struct {
	Schema        string                  `json:"schema"`
	Types         []store.RawType         `json:"types"`
	Members       []store.RawMember       `json:"members"`
	Substitutions []store.RawSubstitution `json:"substitutions,omitempty"`
}

// ReadSnapshot reads and validates the snapshot at path. A missing file is
// an empty snapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Snapshot{Schema: SchemaVersion}, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindBackend, err, "read snapshot")
	}
	return DecodeSnapshot(data)
}

// DecodeSnapshot parses data and checks its schema version.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindSchema, err, "decode snapshot")
	}
	if err := checkSchema(s.Schema); err != nil {
		return nil, err
	}
	return &s, nil
}

func checkSchema(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return errors.New(errors.PhaseLoad, errors.KindSchema).
			Value(version).
			Cause(err).
			Detail("snapshot schema version is not a semantic version").
			Build()
	}
	c, err := semver.NewConstraint(schemaRange)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return errors.New(errors.PhaseLoad, errors.KindSchema).
			Value(version).
			Detail("snapshot schema %s is not in %s", v, schemaRange).
			Build()
	}
	return nil
}

// WriteSnapshot writes s to path through a temporary file in the same
// directory, so readers never see a partial file.
func WriteSnapshot(path string, s *Snapshot) error {
	if s.Schema == "" {
		s.Schema = SchemaVersion
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
