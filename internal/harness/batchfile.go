package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/syncstore/internal/provider"
)

// BatchFile is a standalone operation sequence, the format the CLI
// apply command reads. It shares the step grammar with scenarios but
// carries no schema or expectations: it targets an existing database.
type BatchFile struct {
	Operations []Step `yaml:"operations"`
}

// LoadBatchFile reads and parses a batch YAML file.
func LoadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var bf BatchFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&bf); err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}

	if len(bf.Operations) == 0 {
		return nil, fmt.Errorf("batch file %s: operations must contain at least one step", path)
	}
	for i, s := range bf.Operations {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("batch file %s: operation %d: %w", path, i, err)
		}
	}
	return &bf, nil
}

// ProviderOperations converts the file's steps into provider
// operations.
func (bf *BatchFile) ProviderOperations() ([]provider.Operation, error) {
	return operations(bf.Operations)
}
