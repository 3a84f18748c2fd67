package config

import (
	"os"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/determined-ai/jobsched/pkg/model"
)

// JobsFile is the format of a batch of jobs submitted at startup.
type JobsFile struct {
	Jobs []model.Job `json:"jobs"`
}

// LoadJobs reads a YAML jobs file. Jobs without an id are given a random one.
func LoadJobs(path string) ([]model.Job, error) {
	bs, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "error reading jobs file")
	}
	return ParseJobs(bs)
}

// ParseJobs parses the contents of a YAML jobs file.
func ParseJobs(bs []byte) ([]model.Job, error) {
	var file JobsFile
	if err := yaml.Unmarshal(bs, &file, yaml.DisallowUnknownFields); err != nil {
		return nil, errors.Wrap(err, "error parsing jobs file")
	}
	for i := range file.Jobs {
		if file.Jobs[i].ID == "" {
			file.Jobs[i].ID = model.NewJobID()
		}
	}
	return file.Jobs, nil
}
